package widget

import "image/color"

// Style selects widget colors either by a named preset or by raw RGB(A)
// fields. A recognized preset wins wholesale; raw fields are only consulted
// when no preset matches.
type Style struct {
	Preset     string `json:"style,omitempty"`
	TextColor  []int  `json:"text_color,omitempty"`
	BgColor    []int  `json:"bg_color,omitempty"`
	Background *bool  `json:"background,omitempty"`
}

type resolvedStyle struct {
	text       color.NRGBA
	bg         color.NRGBA
	background bool
}

var stylePresets = map[string]resolvedStyle{
	"classic": {
		text:       color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		bg:         color.NRGBA{A: 180},
		background: true,
	},
	"clean": {
		text:       color.NRGBA{A: 255},
		bg:         color.NRGBA{R: 255, G: 255, B: 255, A: 200},
		background: true,
	},
	"minimal": {
		text: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	},
}

// KnownStylePreset reports whether name is a built-in style preset.
func KnownStylePreset(name string) bool {
	_, ok := stylePresets[name]
	return ok
}

// StylePresets lists the built-in style preset names in display order.
func StylePresets() []string {
	return []string{"classic", "clean", "minimal"}
}

func resolveStyle(s Style) resolvedStyle {
	if rs, ok := stylePresets[s.Preset]; ok {
		return rs
	}

	rs := stylePresets["classic"]
	if len(s.TextColor) >= 3 {
		rs.text = color.NRGBA{
			R: clampColor(s.TextColor[0]),
			G: clampColor(s.TextColor[1]),
			B: clampColor(s.TextColor[2]),
			A: 255,
		}
	}
	if len(s.BgColor) >= 3 {
		alpha := 180
		if len(s.BgColor) >= 4 {
			alpha = s.BgColor[3]
		}
		rs.bg = color.NRGBA{
			R: clampColor(s.BgColor[0]),
			G: clampColor(s.BgColor[1]),
			B: clampColor(s.BgColor[2]),
			A: clampColor(alpha),
		}
	}
	if s.Background != nil {
		rs.background = *s.Background
	}
	return rs
}

func clampColor(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
