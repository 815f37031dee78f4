package player

import "image"

// RGBA converts the NV12 frame into an interleaved RGBA image using a
// fixed-point BT.601 approximation, honoring the row stride reported by
// the backend (stride may exceed width due to memory alignment).
func (f *Frame) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	ySize := f.Stride * f.Height

	for y := 0; y < f.Height; y++ {
		yRow := f.Data[y*f.Stride:]
		uvRow := f.Data[ySize+(y/2)*f.Stride:]
		out := img.Pix[y*img.Stride:]

		for x := 0; x < f.Width; x++ {
			// NV12 chroma is interleaved U,V per 2x2 block.
			c := int32(yRow[x]) - 16
			d := int32(uvRow[x&^1]) - 128
			e := int32(uvRow[x|1]) - 128

			o := x * 4
			out[o] = clamp8((298*c + 409*e + 128) >> 8)
			out[o+1] = clamp8((298*c - 100*d - 208*e + 128) >> 8)
			out[o+2] = clamp8((298*c + 516*d + 128) >> 8)
			out[o+3] = 0xff
		}
	}
	return img
}

func clamp8(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
