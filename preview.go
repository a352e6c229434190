package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matt-g-everett/ledmotion/api"
	"github.com/matt-g-everett/ledmotion/stream"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Play the scene in the terminal without a broker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		every, _ := cmd.Flags().GetDuration("every")
		serveAPI, _ := cmd.Flags().GetBool("api")
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		preview := stream.NewPreview(os.Stdout, a.strip, every)
		if err := a.setupEngine(nil, preview); err != nil {
			return err
		}
		ctrl := stream.NewController(a.engine, a.cycleIDs(), a.config.Cycle.Interval, a.config.Cycle.Fade, nil,
			a.log.With("component", "controller"))
		ctrl.Start()

		var server *api.Api
		if serveAPI {
			server = api.NewApi(a.engine,
				api.WithGatherer(a.registry),
				api.WithCycler(ctrl),
				api.WithLogger(a.log.With("component", "api")))
		}
		err = a.serve(cmd.Context(), ctrl, server)
		fmt.Println()
		return err
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().Duration("every", 50*time.Millisecond, "Minimum time between redraws.")
	previewCmd.Flags().Bool("api", false, "Serve the HTTP API as well.")
}
