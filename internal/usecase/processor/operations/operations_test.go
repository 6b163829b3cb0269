package operations

import (
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"image-batch/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pattern(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 3), G: uint8(y * 3), B: uint8((x + y) % 256), A: 255})
		}
	}
	return img
}

func seeded(intensity int) Params {
	return Params{Intensity: intensity, Rand: rand.New(rand.NewPCG(1, 2))}
}

func TestScrambleZeroIntensityIsIdentity(t *testing.T) {
	src := pattern(80, 60)
	s := NewScrambler()

	for _, kind := range []domain.ScrambleType{
		domain.ScramblePixelShift,
		domain.ScrambleBlurRegions,
		domain.ScrambleColorShift,
		domain.ScrambleNoise,
	} {
		t.Run(string(kind), func(t *testing.T) {
			out, err := s.Scramble(src, kind, seeded(0))
			require.NoError(t, err)
			assert.Equal(t, src.Pix, out.Pix)
		})
	}
}

func TestScrambleFullIntensityChangesPixels(t *testing.T) {
	src := pattern(80, 60)
	s := NewScrambler()

	for _, kind := range []domain.ScrambleType{
		domain.ScramblePixelShift,
		domain.ScrambleWatermark,
		domain.ScrambleBlurRegions,
		domain.ScrambleColorShift,
		domain.ScrambleNoise,
	} {
		t.Run(string(kind), func(t *testing.T) {
			out, err := s.Scramble(src, kind, seeded(100))
			require.NoError(t, err)
			assert.Equal(t, src.Bounds(), out.Bounds())
			assert.NotEqual(t, src.Pix, out.Pix)
		})
	}
}

func TestScrambleLeavesSourceUntouched(t *testing.T) {
	src := pattern(40, 40)
	before := append([]byte(nil), src.Pix...)

	_, err := NewScrambler().Scramble(src, domain.ScramblePixelShift, seeded(100))
	require.NoError(t, err)
	assert.Equal(t, before, src.Pix)
}

func TestScrambleTypeErrors(t *testing.T) {
	s := NewScrambler()

	_, err := s.Scramble(pattern(8, 8), "", seeded(50))
	assert.ErrorIs(t, err, domain.ErrMissingScrambleType)

	_, err = s.Scramble(pattern(8, 8), "swirl", seeded(50))
	assert.ErrorIs(t, err, domain.ErrUnknownScrambleType)
}

func TestPixelShiftSwapsEveryBlockAtFullIntensity(t *testing.T) {
	// 80x80 gives 4px blocks: every block has a distinct colour.
	src := image.NewNRGBA(image.Rect(0, 0, 80, 80))
	for by := 0; by < 20; by++ {
		for bx := 0; bx < 20; bx++ {
			c := color.NRGBA{R: uint8(bx * 12), G: uint8(by * 12), B: 7, A: 255}
			for y := 0; y < 4; y++ {
				for x := 0; x < 4; x++ {
					src.SetNRGBA(bx*4+x, by*4+y, c)
				}
			}
		}
	}

	out, err := NewPixelShifter().Apply(src, seeded(100))
	require.NoError(t, err)

	// Block contents stay intact: every block is uniform after shuffling.
	for by := 0; by < 20; by++ {
		for bx := 0; bx < 20; bx++ {
			want := out.NRGBAAt(bx*4, by*4)
			assert.Equal(t, want, out.NRGBAAt(bx*4+3, by*4+3))
		}
	}
	assert.NotEqual(t, src.Pix, out.Pix)
}

func TestNoiseIsMonochrome(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for i := range src.Pix {
		src.Pix[i] = 100
	}

	out, err := NewNoiser().Apply(src, seeded(100))
	require.NoError(t, err)
	for i := 0; i < len(out.Pix); i += 4 {
		assert.Equal(t, out.Pix[i], out.Pix[i+1])
		assert.Equal(t, out.Pix[i], out.Pix[i+2])
		assert.Equal(t, uint8(100), out.Pix[i+3])
	}
}

func TestWatermarkAnchors(t *testing.T) {
	canvas := image.Rect(0, 0, 200, 100)
	mark := image.Rect(0, 0, 40, 20)

	assert.Equal(t, image.Pt(80, 40), anchor(domain.WatermarkCenter, canvas, mark, 3))
	assert.Equal(t, image.Pt(3, 3), anchor(domain.WatermarkTopLeft, canvas, mark, 3))
	assert.Equal(t, image.Pt(157, 77), anchor(domain.WatermarkBottomRight, canvas, mark, 3))
	assert.Equal(t, image.Pt(80, 40), anchor("", canvas, mark, 3))
}

func TestResizerFit(t *testing.T) {
	r := NewResizer()

	out := r.Fit(pattern(1600, 1200), 800)
	assert.Equal(t, 800, out.Bounds().Dx())
	assert.Equal(t, 600, out.Bounds().Dy())

	small := pattern(300, 200)
	assert.Same(t, small, r.Fit(small, 800))
}

func TestToSRGBConvertsCMYK(t *testing.T) {
	cmyk := image.NewCMYK(image.Rect(0, 0, 2, 2))
	cmyk.Set(0, 0, color.CMYK{C: 255})

	out := ToSRGB(cmyk)
	px := out.NRGBAAt(0, 0)
	assert.Equal(t, uint8(0), px.R)
	assert.Equal(t, uint8(255), px.G)
	assert.Equal(t, uint8(255), px.B)
}

func TestOrient(t *testing.T) {
	src := pattern(6, 4)

	for orientation := 1; orientation <= 8; orientation++ {
		out := Orient(src, orientation)
		if orientation >= 5 {
			assert.Equal(t, image.Rect(0, 0, 4, 6), out.Bounds(), "orientation %d", orientation)
		} else {
			assert.Equal(t, image.Rect(0, 0, 6, 4), out.Bounds(), "orientation %d", orientation)
		}
	}

	assert.Same(t, image.Image(src), Orient(src, 1))
	flipped := Orient(src, 2).(*image.NRGBA)
	assert.Equal(t, src.NRGBAAt(5, 0), flipped.NRGBAAt(0, 0))
}
