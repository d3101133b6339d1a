package visual

import (
	"github.com/lucasb-eyer/go-colorful"
)

var (
	// Black is the resting color of a grid cell.
	Black = colorful.Color{}
	// KeyRest is the resting color of a keyboard key.
	KeyRest, _ = colorful.Hex("#333333")
)

// Hue returns the fully saturated color for h degrees.
func Hue(h float64) colorful.Color {
	return colorful.Hsl(h, 1, 0.5)
}

// RGB8 builds a color from 0..255 channel values, clamping each.
func RGB8(r, g, b float64) colorful.Color {
	return colorful.Color{R: r / 255, G: g / 255, B: b / 255}.Clamped()
}

// brightness is the HSV value of c.
func brightness(c colorful.Color) float64 {
	return max(c.R, c.G, c.B)
}
