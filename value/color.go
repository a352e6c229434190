package value

import (
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matt-g-everett/ledmotion/util"
)

var namedColors = map[string][4]float64{
	"transparent": {0, 0, 0, 0},
	"black":       {0, 0, 0, 1},
	"white":       {255, 255, 255, 1},
	"red":         {255, 0, 0, 1},
	"lime":        {0, 255, 0, 1},
	"green":       {0, 128, 0, 1},
	"blue":        {0, 0, 255, 1},
	"yellow":      {255, 255, 0, 1},
	"cyan":        {0, 255, 255, 1},
	"magenta":     {255, 0, 255, 1},
	"orange":      {255, 165, 0, 1},
	"purple":      {128, 0, 128, 1},
	"pink":        {255, 192, 203, 1},
	"gray":        {128, 128, 128, 1},
	"grey":        {128, 128, 128, 1},
}

// ParseColor parses hex (#rgb, #rgba, #rrggbb, #rrggbbaa), rgb()/rgba(),
// hsl()/hsla() and a handful of named colours into r, g, b (0-255) and
// alpha (0-1).
func ParseColor(s string) ([4]float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return [4]float64{}, false
	}
	if s[0] == '#' {
		return parseHex(s)
	}
	lower := strings.ToLower(s)
	if c, ok := namedColors[lower]; ok {
		return c, true
	}
	switch {
	case strings.HasPrefix(lower, "rgb"):
		return parseRGB(lower)
	case strings.HasPrefix(lower, "hsl"):
		return parseHSL(lower)
	}
	return [4]float64{}, false
}

func parseHex(s string) ([4]float64, bool) {
	alpha := 1.0
	switch len(s) {
	case 4, 7:
	case 5:
		a, err := strconv.ParseUint(s[4:5], 16, 8)
		if err != nil {
			return [4]float64{}, false
		}
		alpha = float64(a) / 15
		s = s[:4]
	case 9:
		a, err := strconv.ParseUint(s[7:9], 16, 8)
		if err != nil {
			return [4]float64{}, false
		}
		alpha = float64(a) / 255
		s = s[:7]
	default:
		return [4]float64{}, false
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return [4]float64{}, false
	}
	r, g, b := c.RGB255()
	return [4]float64{float64(r), float64(g), float64(b), roundAlpha(alpha)}, true
}

// channels extracts the numbers between the parentheses of a functional
// colour notation. Percentages are returned as-is with a flag.
func channels(s string) ([]float64, []bool, bool) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return nil, nil, false
	}
	body := strings.NewReplacer(",", " ", "/", " ").Replace(s[open+1 : len(s)-1])
	fields := strings.Fields(body)
	nums := make([]float64, 0, len(fields))
	pct := make([]bool, 0, len(fields))
	for _, f := range fields {
		isPct := strings.HasSuffix(f, "%")
		f = strings.TrimSuffix(f, "%")
		f = strings.TrimSuffix(f, "deg")
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, nil, false
		}
		nums = append(nums, n)
		pct = append(pct, isPct)
	}
	return nums, pct, len(nums) >= 3
}

func parseRGB(s string) ([4]float64, bool) {
	nums, pct, ok := channels(s)
	if !ok {
		return [4]float64{}, false
	}
	var out [4]float64
	for i := 0; i < 3; i++ {
		n := nums[i]
		if pct[i] {
			n = n * 255 / 100
		}
		out[i] = math.Round(util.Clamp(n, 0, 255))
	}
	out[3] = alphaChannel(nums, pct)
	return out, true
}

func parseHSL(s string) ([4]float64, bool) {
	nums, _, ok := channels(s)
	if !ok {
		return [4]float64{}, false
	}
	h := math.Mod(nums[0], 360)
	if h < 0 {
		h += 360
	}
	c := colorful.Hsl(h, util.Clamp(nums[1]/100, 0, 1), util.Clamp(nums[2]/100, 0, 1))
	r, g, b := c.Clamped().RGB255()
	return [4]float64{float64(r), float64(g), float64(b), alphaChannel(nums, nil)}, true
}

func alphaChannel(nums []float64, pct []bool) float64 {
	if len(nums) < 4 {
		return 1
	}
	a := nums[3]
	if pct != nil && pct[3] {
		a /= 100
	}
	return roundAlpha(util.Clamp(a, 0, 1))
}

func roundAlpha(a float64) float64 {
	return math.Round(a*1000) / 1000
}
