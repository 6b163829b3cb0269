package domain

import (
	"image"
	"strings"
)

type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
	FormatGIF  ImageFormat = "gif"
	FormatWebP ImageFormat = "webp"
	FormatBMP  ImageFormat = "bmp"
	FormatTIFF ImageFormat = "tiff"
)

func (f ImageFormat) MimeType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatGIF:
		return "image/gif"
	case FormatWebP:
		return "image/webp"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

func (f ImageFormat) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return "." + string(f)
}

// FormatFromMime maps a MIME type or format name onto a known format.
func FormatFromMime(mime string) (ImageFormat, bool) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	mime = strings.TrimPrefix(mime, "image/")
	switch mime {
	case "jpeg", "jpg", "pjpeg":
		return FormatJPEG, true
	case "png":
		return FormatPNG, true
	case "gif":
		return FormatGIF, true
	case "webp":
		return FormatWebP, true
	case "bmp", "x-ms-bmp":
		return FormatBMP, true
	case "tiff", "tif":
		return FormatTIFF, true
	}
	return "", false
}

type ColorModel string

const (
	ColorSRGB ColorModel = "srgb"
	ColorGray ColorModel = "gray"
	ColorCMYK ColorModel = "cmyk"
)

// RawImage is a decoded image together with the intrinsic metadata read from
// its container. It is owned by a single batch item for its whole lifetime.
type RawImage struct {
	Data        []byte
	Image       image.Image
	Format      ImageFormat
	Width       int
	Height      int
	Orientation int
	HasAlpha    bool
	ColorModel  ColorModel
	ICCProfile  []byte
}

// ProcessedImage is the encoded result of running one item through the engine.
type ProcessedImage struct {
	Data     []byte
	Format   ImageFormat
	MimeType string
	Width    int
	Height   int
	// Notes lists where the output deviates from what the options asked for.
	Notes []string
}

func (p *ProcessedImage) Size() int {
	return len(p.Data)
}
