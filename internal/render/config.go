package render

import "image/color"

// Fixed drawing constants shared by the layers.
var (
	// Logical surface size; every layer surface and the output use it.
	DefaultWidth  = 1920
	DefaultHeight = 1080

	// Corner radius of the icon plate and clip.
	CornerRadius = 30.0

	// Watermark placement and size.
	WatermarkInset = 20.0
	WatermarkSize  = 14.0

	// Shadow color used for the title extrusion.
	ExtrusionColor = color.NRGBA{A: 0x80}
)
