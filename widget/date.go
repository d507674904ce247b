package widget

import (
	"encoding/json"
	"image"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const dateLayout = "Mon, 02 Jan"

// DateWidget renders the current date as a small card anchored to one of the
// display corners. Font size, padding and corner radius all scale with the
// display so the card reads the same in landscape and portrait.
type DateWidget struct {
	settings Settings
	now      func() time.Time

	lastWidth  int
	lastHeight int
}

// DateDefinition describes the date widget for registry registration.
func DateDefinition() Definition {
	return Definition{
		Type: "date",
		New: func(cfg json.RawMessage, orientation string) (Widget, error) {
			s, err := ParseSettings(cfg)
			if err != nil {
				return nil, err
			}
			s.Orientation = orientation
			return NewDate(s), nil
		},
		Defaults: Settings{
			Enabled:  true,
			Position: Position{Preset: "bottom_right"},
			Style:    Style{Preset: "classic"},
		},
	}
}

func NewDate(s Settings) *DateWidget {
	return &DateWidget{settings: s, now: time.Now}
}

// Render draws the date text over an optional rounded background. Returns nil
// when the widget is disabled.
func (d *DateWidget) Render(displayWidth, displayHeight int) (*image.NRGBA, error) {
	if !d.settings.Enabled {
		return nil, nil
	}

	size := dateFontSize(d.settings.Orientation, displayWidth, displayHeight)
	face, err := newFace(size)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	style := resolveStyle(d.settings.Style)
	text := d.now().Format(dateLayout)

	drawer := &font.Drawer{Face: face}
	textWidth := drawer.MeasureString(text).Ceil()
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	textHeight := ascent + metrics.Descent.Ceil()

	padding := 0
	if style.background {
		padding = max(8, int(0.3*float64(size)))
	}

	width := textWidth + 2*padding
	height := textHeight + 2*padding
	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	if style.background {
		radius := max(4, int(0.15*float64(size)))
		fillRoundedRect(img, img.Bounds(), radius, style.bg)
	}

	drawer.Dst = img
	drawer.Src = image.NewUniform(style.text)
	drawer.Dot = fixed.P(padding, padding+ascent)
	drawer.DrawString(text)

	d.lastWidth, d.lastHeight = width, height
	return img, nil
}

// PositionPixels resolves placement using the size of the last render.
func (d *DateWidget) PositionPixels(displayWidth, displayHeight int) (int, int) {
	return PlacePixels(d.settings.Position, displayWidth, displayHeight, d.lastWidth, d.lastHeight)
}

// dateFontSize scales with the display's long edge, clamped so the text stays
// readable without dominating the photo.
func dateFontSize(orientation string, displayWidth, displayHeight int) int {
	if orientation == "portrait" {
		return clampInt(displayHeight/30, 18, 28)
	}
	return clampInt(displayWidth/25, 20, 32)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
