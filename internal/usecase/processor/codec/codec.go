// Package codec turns raw bytes into decoded images and back. Encoders never
// emit metadata; callers re-attach it through the metadata package.
package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"image-batch/internal/domain"
	"image-batch/internal/usecase/processor/metadata"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// MaxPixels bounds the canvas a single item may decode to.
var MaxPixels = 80_000_000

// EncodeOptions controls the output encoders.
type EncodeOptions struct {
	Quality int
	// Progressive is accepted for JPEG but the pure Go encoder only writes
	// baseline streams.
	Progressive    bool
	MaxCompression bool
}

// DetectFormat sniffs the container type of data.
func DetectFormat(data []byte) (domain.ImageFormat, bool) {
	if len(data) == 0 {
		return "", false
	}
	return domain.FormatFromMime(mimetype.Detect(data).String())
}

// Decode parses data into a RawImage, including the orientation, colour
// profile and textual tags found in its container.
func Decode(data []byte) (*domain.RawImage, error) {
	format, ok := DetectFormat(data)
	if !ok {
		return nil, fmt.Errorf("%w: unrecognised content %s", domain.ErrDecode, mimetype.Detect(data).String())
	}

	cfg, err := decodeConfig(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty canvas %dx%d", domain.ErrDecode, cfg.Width, cfg.Height)
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return nil, fmt.Errorf("%w: canvas %dx%d exceeds pixel limit", domain.ErrDecode, cfg.Width, cfg.Height)
	}

	img, err := decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	// Malformed metadata never fails an otherwise decodable image.
	info, _ := metadata.Read(data, format)

	bounds := img.Bounds()
	raw := &domain.RawImage{
		Data:        data,
		Image:       img,
		Format:      format,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Orientation: info.Orientation,
		HasAlpha:    hasAlpha(img),
		ColorModel:  colorModel(img),
		ICCProfile:  info.ICCProfile,
	}
	if raw.Orientation == 0 {
		raw.Orientation = 1
	}
	return raw, nil
}

func decodeConfig(data []byte, format domain.ImageFormat) (image.Config, error) {
	r := bytes.NewReader(data)
	switch format {
	case domain.FormatJPEG:
		return jpeg.DecodeConfig(r)
	case domain.FormatPNG:
		return png.DecodeConfig(r)
	case domain.FormatGIF:
		return gif.DecodeConfig(r)
	case domain.FormatWebP:
		return webp.DecodeConfig(r)
	case domain.FormatBMP:
		return bmp.DecodeConfig(r)
	case domain.FormatTIFF:
		return tiff.DecodeConfig(r)
	}
	return image.Config{}, fmt.Errorf("no decoder for %s", format)
}

func decode(data []byte, format domain.ImageFormat) (image.Image, error) {
	r := bytes.NewReader(data)
	switch format {
	case domain.FormatJPEG:
		return jpeg.Decode(r)
	case domain.FormatPNG:
		return png.Decode(r)
	case domain.FormatGIF:
		// First frame only.
		return gif.Decode(r)
	case domain.FormatWebP:
		return webp.Decode(r)
	case domain.FormatBMP:
		return bmp.Decode(r)
	case domain.FormatTIFF:
		return tiff.Decode(r)
	}
	return nil, fmt.Errorf("no decoder for %s", format)
}

// Encode writes img in format. The result carries no metadata.
func Encode(img image.Image, format domain.ImageFormat, opts EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, img, format, opts); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrEncode, format, err)
	}
	return buf.Bytes(), nil
}

func encode(w io.Writer, img image.Image, format domain.ImageFormat, opts EncodeOptions) error {
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = domain.DefaultQuality
	}

	switch format {
	case domain.FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case domain.FormatPNG:
		level := png.DefaultCompression
		if opts.MaxCompression {
			level = png.BestCompression
		}
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(level))
	case domain.FormatGIF:
		return imaging.Encode(w, img, imaging.GIF, imaging.GIFNumColors(256))
	case domain.FormatBMP:
		return imaging.Encode(w, img, imaging.BMP)
	case domain.FormatTIFF:
		return imaging.Encode(w, img, imaging.TIFF)
	case domain.FormatWebP:
		return nativewebp.Encode(w, img, nil)
	}
	return fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, format)
}

// hasAlpha reports whether any pixel is not fully opaque.
func hasAlpha(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16, *image.CMYK, *image.YCbCr:
		return false
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}

func colorModel(img image.Image) domain.ColorModel {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return domain.ColorGray
	case *image.CMYK:
		return domain.ColorCMYK
	}
	return domain.ColorSRGB
}
