package widget

import "math"

const (
	AlignLeft   = "left"
	AlignRight  = "right"
	AlignCenter = "center"
)

// Position places a widget either by a named preset or by raw percentages of
// the display dimensions.
type Position struct {
	Preset string  `json:"preset,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
}

type anchor struct {
	x, y   float64 // percent of display width/height
	align  string
	bottom bool // anchor the widget's bottom edge at y
}

var positionPresets = map[string]anchor{
	"top_left":      {x: 3, y: 4, align: AlignLeft},
	"top_right":     {x: 97, y: 4, align: AlignRight},
	"bottom_left":   {x: 3, y: 96, align: AlignLeft, bottom: true},
	"bottom_right":  {x: 97, y: 96, align: AlignRight, bottom: true},
	"center_top":    {x: 50, y: 4, align: AlignCenter},
	"center_bottom": {x: 50, y: 96, align: AlignCenter, bottom: true},
}

// KnownPreset reports whether name is a built-in position preset.
func KnownPreset(name string) bool {
	_, ok := positionPresets[name]
	return ok
}

// PositionPresets lists the built-in preset names in display order.
func PositionPresets() []string {
	return []string{"top_left", "top_right", "bottom_left", "bottom_right", "center_top", "center_bottom"}
}

// PlacePixels resolves p into absolute top-left coordinates for a widget of
// the given rendered size. Right and center alignment subtract the rendered
// width so the anchor, not the corner, lands at the requested percentage;
// bottom anchors do the same with the rendered height. Raw percentages use
// plain top-left semantics.
func PlacePixels(p Position, displayWidth, displayHeight, width, height int) (int, int) {
	a, ok := positionPresets[p.Preset]
	if !ok {
		a = anchor{x: p.X, y: p.Y, align: AlignLeft}
	}

	x := int(math.Round(a.x / 100 * float64(displayWidth)))
	switch a.align {
	case AlignRight:
		x -= width
	case AlignCenter:
		x -= width / 2
	}

	y := int(math.Round(a.y / 100 * float64(displayHeight)))
	if a.bottom {
		y -= height
	}
	return x, y
}
