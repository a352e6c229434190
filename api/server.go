// Package api serves the HTTP control surface of a running engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/logging"
)

// Cycler moves a display on to its next animation.
type Cycler interface {
	Cycle() *anim.Timer
	Current() string
}

// Calibrator runs a calibration sequence.
type Calibrator interface {
	Start() *anim.Timer
}

type Api struct {
	engine     *anim.Engine
	gatherer   prometheus.Gatherer
	cycler     Cycler
	calibrator Calibrator
	static     string
	log        *slog.Logger
}

type Option func(*Api)

// WithGatherer serves the metrics of g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(a *Api) { a.gatherer = g }
}

func WithCycler(c Cycler) Option {
	return func(a *Api) { a.cycler = c }
}

func WithCalibrator(c Calibrator) Option {
	return func(a *Api) { a.calibrator = c }
}

// WithStatic serves the files under dir on every unmatched GET.
func WithStatic(dir string) Option {
	return func(a *Api) { a.static = dir }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Api) { a.log = l }
}

func NewApi(engine *anim.Engine, opts ...Option) *Api {
	a := new(Api)
	a.engine = engine
	a.log = logging.NewNop()
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler builds the router.
func (a *Api) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/nodes", a.listNodes)
	r.Route("/nodes/{id}", func(r chi.Router) {
		r.Get("/", a.getNode)
		r.Post("/seek", a.seekNode)
		r.Post("/{action}", a.controlNode)
	})
	r.Post("/engine/{action}", a.controlEngine)
	r.Get("/engine", a.getEngine)
	if a.cycler != nil {
		r.Post("/cycle", a.cycle)
	}
	if a.calibrator != nil {
		r.Post("/calibrate", a.calibrate)
	}
	if a.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	}
	if a.static != "" {
		r.Handle("/*", http.FileServer(http.Dir(a.static)))
	}
	return r
}

// Serve listens on addr until ctx ends.
func (a *Api) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}

type engineStatus struct {
	Paused  bool   `json:"paused"`
	Running int    `json:"running"`
	Current string `json:"current,omitempty"`
}

func (a *Api) getEngine(w http.ResponseWriter, _ *http.Request) {
	var s engineStatus
	a.engine.Do(func(e *anim.Engine) {
		s.Paused = e.Paused()
		s.Running = e.Running()
		if a.cycler != nil {
			s.Current = a.cycler.Current()
		}
	})
	a.writeJSON(w, http.StatusOK, s)
}

func (a *Api) controlEngine(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	ok := true
	a.engine.Do(func(e *anim.Engine) {
		switch action {
		case "pause":
			e.Pause()
		case "resume":
			e.Resume()
		default:
			ok = false
		}
	})
	if !ok {
		a.writeError(w, http.StatusNotFound, fmt.Errorf("unknown engine action %q", action))
		return
	}
	a.log.Info("engine control", "action", action)
	a.getEngine(w, r)
}

func (a *Api) listNodes(w http.ResponseWriter, _ *http.Request) {
	var out []anim.Status
	a.engine.Do(func(e *anim.Engine) {
		for _, n := range e.Nodes() {
			out = append(out, n.Status())
		}
	})
	if out == nil {
		out = []anim.Status{}
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *Api) getNode(w http.ResponseWriter, r *http.Request) {
	a.withNode(w, r, func(*anim.Timer) error { return nil })
}

var actions = map[string]func(*anim.Timer){
	"play":      func(t *anim.Timer) { t.Play() },
	"pause":     func(t *anim.Timer) { t.Pause() },
	"resume":    func(t *anim.Timer) { t.Resume() },
	"reverse":   func(t *anim.Timer) { t.Reverse() },
	"alternate": func(t *anim.Timer) { t.Alternate() },
	"restart":   func(t *anim.Timer) { t.Restart() },
	"reset":     func(t *anim.Timer) { t.Reset() },
	"cancel":    func(t *anim.Timer) { t.Cancel() },
	"revert":    func(t *anim.Timer) { t.Revert() },
	"complete":  func(t *anim.Timer) { t.Complete() },
}

func (a *Api) controlNode(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	fn, ok := actions[action]
	if !ok {
		a.writeError(w, http.StatusNotFound, fmt.Errorf("unknown node action %q", action))
		return
	}
	a.withNode(w, r, func(t *anim.Timer) error {
		fn(t)
		a.log.Info("node control", "id", t.ID(), "action", action)
		return nil
	})
}

type seekRequest struct {
	Time     string   `json:"time"`
	Progress *float64 `json:"progress"`
}

var errBadRequest = errors.New("bad request")

func (a *Api) seekNode(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	a.withNode(w, r, func(t *anim.Timer) error {
		switch {
		case req.Progress != nil:
			if *req.Progress < 0 || *req.Progress > 1 {
				return fmt.Errorf("%w: progress %v outside [0, 1]", errBadRequest, *req.Progress)
			}
			t.SetProgress(*req.Progress)
		case req.Time != "":
			d, err := time.ParseDuration(req.Time)
			if err != nil {
				return fmt.Errorf("%w: %w", errBadRequest, err)
			}
			t.Seek(d)
		default:
			return fmt.Errorf("%w: seek needs a time or a progress", errBadRequest)
		}
		return nil
	})
}

// withNode runs fn on the node named in the URL with the engine locked and
// answers with the node status.
func (a *Api) withNode(w http.ResponseWriter, r *http.Request, fn func(*anim.Timer) error) {
	id := chi.URLParam(r, "id")
	var status anim.Status
	var err error
	a.engine.Do(func(e *anim.Engine) {
		var n *anim.Timer
		if n, err = e.Node(id); err != nil {
			return
		}
		if err = fn(n); err != nil {
			return
		}
		status = n.Status()
	})
	switch {
	case errors.Is(err, anim.ErrUnknownNode):
		a.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, errBadRequest):
		a.writeError(w, http.StatusBadRequest, err)
	case err != nil:
		a.writeError(w, http.StatusInternalServerError, err)
	default:
		a.writeJSON(w, http.StatusOK, status)
	}
}

func (a *Api) cycle(w http.ResponseWriter, r *http.Request) {
	if a.cycler.Cycle() == nil {
		a.writeError(w, http.StatusConflict, errors.New("nothing to cycle to"))
		return
	}
	a.getEngine(w, r)
}

func (a *Api) calibrate(w http.ResponseWriter, _ *http.Request) {
	t := a.calibrator.Start()
	var status anim.Status
	a.engine.Do(func(*anim.Engine) { status = t.Status() })
	a.writeJSON(w, http.StatusAccepted, status)
}

func (a *Api) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("response encode failed", "error", err)
	}
}

func (a *Api) writeError(w http.ResponseWriter, code int, err error) {
	a.log.Warn("request failed", "status", code, "error", err)
	a.writeJSON(w, code, map[string]string{"error": err.Error()})
}
