package operations

import (
	"image"

	"github.com/disintegration/imaging"
)

type Resizer struct {
	filter imaging.ResampleFilter
}

func NewResizer() *Resizer {
	return &Resizer{filter: imaging.Lanczos}
}

// Fit scales img down so its width does not exceed maxWidth, preserving the
// aspect ratio. Images that already fit are returned as is.
func (r *Resizer) Fit(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	if maxWidth <= 0 || bounds.Dx() <= maxWidth {
		return img
	}
	return imaging.Resize(img, maxWidth, 0, r.filter)
}

// ToSRGB converts img to 8-bit non-premultiplied RGBA. CMYK and grey inputs
// are mapped through their colour models.
func ToSRGB(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba
	}
	return imaging.Clone(img)
}

// Orient applies an EXIF orientation (1-8) to the pixels so the result
// displays upright without the tag.
func Orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}
