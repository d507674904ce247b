package widget

import (
	"image"
	"image/color"
)

// fillRoundedRect paints a rounded rectangle into an otherwise transparent
// image. Pixels are set directly; blending against the photo happens later
// when the widget is composited.
func fillRoundedRect(img *image.NRGBA, r image.Rectangle, radius int, c color.NRGBA) {
	if m := min(r.Dx(), r.Dy()) / 2; radius > m {
		radius = m
	}
	rr := radius * radius

	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dx := 0
			if v := r.Min.X + radius - x; v > 0 {
				dx = v
			} else if v := x - (r.Max.X - 1 - radius); v > 0 {
				dx = v
			}
			dy := 0
			if v := r.Min.Y + radius - y; v > 0 {
				dy = v
			} else if v := y - (r.Max.Y - 1 - radius); v > 0 {
				dy = v
			}
			if dx*dx+dy*dy > rr {
				continue
			}
			img.SetNRGBA(x, y, c)
		}
	}
}
