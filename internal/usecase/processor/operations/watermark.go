package operations

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"image-batch/internal/domain"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

const (
	watermarkAngle   = 45
	watermarkMargin  = 0.03
	minWatermarkSize = 10
	shadowOffset     = 2
)

type Watermarker struct {
	once sync.Once
	font *truetype.Font
	err  error
}

func NewWatermarker() *Watermarker {
	return &Watermarker{}
}

func (w *Watermarker) loadFont() (*truetype.Font, error) {
	w.once.Do(func() {
		w.font, w.err = truetype.Parse(goregular.TTF)
	})
	return w.font, w.err
}

// Apply renders text at roughly min(width,height)/10, rotates it onto the
// rising diagonal and composites it semi-transparently at the anchor.
func (w *Watermarker) Apply(img image.Image, p Params) (*image.NRGBA, error) {
	f, err := w.loadFont()
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	text := p.Text
	if text == "" {
		text = domain.DefaultWatermarkText
	}

	dst := imaging.Clone(img)
	width, height := dst.Rect.Dx(), dst.Rect.Dy()
	size := max(minWatermarkSize, min(width, height)/10)

	layer, err := renderText(f, text, float64(size))
	if err != nil {
		return nil, err
	}
	rotated := imaging.Rotate(layer, watermarkAngle, color.Transparent)

	pos := anchor(p.Position, dst.Rect, rotated.Bounds(), int(float64(min(width, height))*watermarkMargin))
	return imaging.Overlay(dst, rotated, pos, domain.DefaultWatermarkOpacity), nil
}

// renderText draws white text with a dark drop shadow on a transparent layer
// sized to the text.
func renderText(f *truetype.Font, text string, size float64) (*image.NRGBA, error) {
	face := truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	defer face.Close()

	metrics := face.Metrics()
	d := &font.Drawer{Face: face}
	advance := d.MeasureString(text).Ceil()
	lineHeight := (metrics.Ascent + metrics.Descent).Ceil()
	if advance <= 0 || lineHeight <= 0 {
		return nil, fmt.Errorf("failed to measure watermark text %q", text)
	}

	pad := int(size / 4)
	layer := image.NewNRGBA(image.Rect(0, 0, advance+2*pad+shadowOffset, lineHeight+2*pad+shadowOffset))
	baseline := pad + metrics.Ascent.Ceil()

	d.Dst = layer
	d.Src = image.NewUniform(color.NRGBA{A: 200})
	d.Dot = fixed.P(pad+shadowOffset, baseline+shadowOffset)
	d.DrawString(text)

	d.Src = image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	d.Dot = fixed.P(pad, baseline)
	d.DrawString(text)

	return layer, nil
}

func anchor(pos domain.WatermarkPosition, canvas, mark image.Rectangle, margin int) image.Point {
	cw, ch := canvas.Dx(), canvas.Dy()
	mw, mh := mark.Dx(), mark.Dy()

	left, right := margin, cw-mw-margin
	top, bottom := margin, ch-mh-margin
	centerX, centerY := (cw-mw)/2, (ch-mh)/2

	switch pos {
	case domain.WatermarkTopLeft:
		return image.Pt(left, top)
	case domain.WatermarkTopRight:
		return image.Pt(right, top)
	case domain.WatermarkTopCenter:
		return image.Pt(centerX, top)
	case domain.WatermarkBottomLeft:
		return image.Pt(left, bottom)
	case domain.WatermarkBottomRight:
		return image.Pt(right, bottom)
	case domain.WatermarkBottomCenter:
		return image.Pt(centerX, bottom)
	default:
		return image.Pt(centerX, centerY)
	}
}
