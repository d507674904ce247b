// Package compose builds display-ready frame buffers from photos and widgets
package compose

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"sort"

	"github.com/disintegration/imaging"

	"inkframe/store"
	"inkframe/util"
	"inkframe/widget"
)

// Panel dimensions of the Inky Impression 7.3" the frame drives.
const (
	DisplayWidth  = 800
	DisplayHeight = 480
)

// Dimensions returns the target canvas size for an orientation.
func Dimensions(orientation string) (int, int) {
	if orientation == store.OrientationPortrait {
		return DisplayHeight, DisplayWidth
	}
	return DisplayWidth, DisplayHeight
}

// Compositor renders photos with widget overlays at panel resolution.
type Compositor struct {
	registry *widget.Registry
}

func New(registry *widget.Registry) *Compositor {
	return &Compositor{registry: registry}
}

// PrepareDisplayImage loads one photo and produces the final opaque frame
// buffer: orientation-corrected, resized to the panel, enabled widgets
// composited on top and the result flattened over white.
func (c *Compositor) PrepareDisplayImage(photoPath string, cfg store.DisplayConfig) (*image.NRGBA, error) {
	f, err := os.Open(photoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open photo: %w", err)
	}
	defer f.Close()

	img, err := util.DecodeImage(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", photoPath, err)
	}

	// Portrait-shaped sources get rotated to fill the panel instead of being
	// squashed into the wrong aspect.
	bounds := img.Bounds()
	if bounds.Dy() > bounds.Dx() {
		img = imaging.Rotate90(img)
	}

	width, height := Dimensions(cfg.Orientation)
	base := imaging.Resize(img, width, height, imaging.Lanczos)

	for _, widgetType := range sortedWidgetTypes(cfg.Widgets) {
		raw := cfg.Widgets[widgetType]
		if !widget.Enabled(raw) {
			continue
		}
		def, ok := c.registry.Lookup(widgetType)
		if !ok {
			slog.Warn("unknown widget type in config, skipping", "type", widgetType)
			continue
		}
		base = c.applyWidget(base, def, raw, cfg.Orientation, width, height)
	}

	// Flatten over white so the panel never receives transparency.
	out := imaging.New(width, height, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	return imaging.Overlay(out, base, image.Pt(0, 0), 1.0), nil
}

// applyWidget renders and composites one widget. Any failure, including a
// panic inside the widget, leaves the image untouched.
func (c *Compositor) applyWidget(base *image.NRGBA, def widget.Definition, raw json.RawMessage, orientation string, width, height int) (out *image.NRGBA) {
	out = base
	defer func() {
		if r := recover(); r != nil {
			slog.Error("widget panicked during composition", "type", def.Type, "panic", r)
			out = base
		}
	}()

	w, err := def.New(raw, orientation)
	if err != nil {
		slog.Warn("widget rejected its config, skipping", "type", def.Type, "error", err)
		return base
	}
	overlay, err := w.Render(width, height)
	if err != nil {
		slog.Warn("widget render failed, skipping", "type", def.Type, "error", err)
		return base
	}
	if overlay == nil {
		return base
	}

	x, y := w.PositionPixels(width, height)
	x = clampInt(x, 0, max(0, width-overlay.Bounds().Dx()))
	y = clampInt(y, 0, max(0, height-overlay.Bounds().Dy()))
	return imaging.Overlay(base, overlay, image.Pt(x, y), 1.0)
}

func sortedWidgetTypes(widgets map[string]json.RawMessage) []string {
	types := make([]string, 0, len(widgets))
	for t := range widgets {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
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
