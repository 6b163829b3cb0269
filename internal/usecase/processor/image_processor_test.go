package processor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"image-batch/internal/domain"
	"image-batch/internal/usecase/processor/metadata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/image/tiff"
)

func newTestProcessor() *ImageProcessor {
	zlog.Init()
	p := NewImageProcessor(&zlog.Logger)
	p.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	p.newRand = func() *rand.Rand { return rand.New(rand.NewPCG(7, 7)) }
	return p
}

func intensity(v int) *int {
	return &v
}

func fill(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

// taggedJPEG carries orientation, attribution and an ICC profile.
func taggedJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, fill(64, 48), &jpeg.Options{Quality: 90}))
	data, err := metadata.Rewrite(buf.Bytes(), domain.FormatJPEG, metadata.Block{
		Orientation: 6,
		Copyright:   "Someone Else",
		Artist:      "Original Author",
		ICCProfile:  []byte("fake-icc-profile"),
	}, 0, 0)
	require.NoError(t, err)
	return data
}

func TestProcessStrip(t *testing.T) {
	p := newTestProcessor()
	src := taggedJPEG(t)

	out, err := p.Process(context.Background(), src, domain.ProcessOptions{Action: domain.ActionStrip})
	require.NoError(t, err)
	assert.Equal(t, domain.FormatJPEG, out.Format)
	assert.Equal(t, "image/jpeg", out.MimeType)
	assert.Equal(t, 64, out.Width)

	info, err := metadata.Read(out.Data, domain.FormatJPEG)
	require.NoError(t, err)
	assert.Equal(t, 6, info.Orientation)
	assert.NotContains(t, info.Tags, "Copyright")
	assert.NotContains(t, info.Tags, "Artist")
	assert.Empty(t, info.ICCProfile)

	before, err := jpeg.Decode(bytes.NewReader(src))
	require.NoError(t, err)
	after, err := jpeg.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestProcessStripKeepsColorProfileWhenAsked(t *testing.T) {
	p := newTestProcessor()

	out, err := p.Process(context.Background(), taggedJPEG(t), domain.ProcessOptions{
		Action:           domain.ActionStrip,
		KeepColorProfile: true,
	})
	require.NoError(t, err)

	info, err := metadata.Read(out.Data, domain.FormatJPEG)
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-icc-profile"), info.ICCProfile)
}

func TestProcessAddOverwritesAttribution(t *testing.T) {
	p := newTestProcessor()

	for _, action := range []domain.Action{domain.ActionAdd, domain.ActionUpdate} {
		t.Run(string(action), func(t *testing.T) {
			out, err := p.Process(context.Background(), taggedJPEG(t), domain.ProcessOptions{
				Action:    action,
				Copyright: "© 2026 ACME",
				Author:    "Jane",
			})
			require.NoError(t, err)

			info, err := metadata.Read(out.Data, domain.FormatJPEG)
			require.NoError(t, err)
			assert.Equal(t, 6, info.Orientation)
			assert.Equal(t, "? 2026 ACME", info.Tags["Copyright"])
			assert.Equal(t, "Jane", info.Tags["Artist"])
			assert.Equal(t, domain.SoftwareTag, info.Tags["Software"])
			assert.Equal(t, "2026:03:04 05:06:07", info.Tags["DateTime"])
		})
	}
}

func TestProcessScrambleRemovesIdentifyingTags(t *testing.T) {
	p := newTestProcessor()

	out, err := p.Process(context.Background(), taggedJPEG(t), domain.ProcessOptions{
		Action:            domain.ActionScramble,
		ScrambleType:      domain.ScrambleNoise,
		ScrambleIntensity: intensity(80),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.FormatJPEG, out.Format)

	info, err := metadata.Read(out.Data, domain.FormatJPEG)
	require.NoError(t, err)
	assert.NotContains(t, info.Tags, "Copyright")
	assert.NotContains(t, info.Tags, "Artist")
	assert.NotContains(t, info.Tags, "GPSInfoIFDPointer")
}

func TestProcessScrambleRequiresType(t *testing.T) {
	p := newTestProcessor()

	_, err := p.Process(context.Background(), taggedJPEG(t), domain.ProcessOptions{Action: domain.ActionScramble})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingScrambleType)
	assert.True(t, domain.IsKind(err, domain.KindTransform))

	_, err = p.Process(context.Background(), taggedJPEG(t), domain.ProcessOptions{
		Action:       domain.ActionScramble,
		ScrambleType: "swirl",
	})
	assert.ErrorIs(t, err, domain.ErrUnknownScrambleType)
	assert.True(t, domain.IsKind(err, domain.KindTransform))
}

func TestProcessOptimizeLargePNG(t *testing.T) {
	p := newTestProcessor()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, fill(1600, 1200)))

	out, err := p.Process(context.Background(), buf.Bytes(), domain.ProcessOptions{
		Action:   domain.ActionStrip,
		Optimize: true,
		MaxWidth: 800,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.FormatJPEG, out.Format)
	assert.Equal(t, 800, out.Width)
	assert.Equal(t, 600, out.Height)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 600, cfg.Height)
}

func TestProcessOptimizeKeepsSmallPNG(t *testing.T) {
	p := newTestProcessor()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, fill(100, 50)))

	out, err := p.Process(context.Background(), buf.Bytes(), domain.ProcessOptions{
		Action:   domain.ActionStrip,
		Optimize: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.FormatPNG, out.Format)
	assert.Equal(t, 100, out.Width)
}

func TestProcessGIFIsReencoded(t *testing.T) {
	p := newTestProcessor()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, fill(20, 20), nil))

	out, err := p.Process(context.Background(), buf.Bytes(), domain.ProcessOptions{Action: domain.ActionAdd, Copyright: "x"})
	require.NoError(t, err)
	assert.Equal(t, domain.FormatGIF, out.Format)
	assert.Equal(t, "image/gif", out.MimeType)
}

func TestProcessCorruptInput(t *testing.T) {
	p := newTestProcessor()

	_, err := p.Process(context.Background(), []byte("<html>not an image</html>"), domain.ProcessOptions{Action: domain.ActionStrip})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDecode)
	assert.True(t, domain.IsKind(err, domain.KindTransform))
}

func TestOptimizedFormat(t *testing.T) {
	cases := []struct {
		name string
		raw  domain.RawImage
		want domain.ImageFormat
	}{
		{"large opaque png", domain.RawImage{Format: domain.FormatPNG, Width: 1200, Height: 1000}, domain.FormatJPEG},
		{"heavy opaque png", domain.RawImage{Format: domain.FormatPNG, Width: 10, Height: 10, Data: make([]byte, domain.LargePNGBytes+1)}, domain.FormatJPEG},
		{"large png with alpha", domain.RawImage{Format: domain.FormatPNG, Width: 1200, Height: 1000, HasAlpha: true}, domain.FormatPNG},
		{"small png", domain.RawImage{Format: domain.FormatPNG, Width: 10, Height: 10}, domain.FormatPNG},
		{"webp", domain.RawImage{Format: domain.FormatWebP}, domain.FormatWebP},
		{"jpeg", domain.RawImage{Format: domain.FormatJPEG}, domain.FormatJPEG},
		{"bmp", domain.RawImage{Format: domain.FormatBMP}, domain.FormatJPEG},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, optimizedFormat(&tc.raw))
		})
	}
}

func TestProcessNotesEncoderLimits(t *testing.T) {
	p := newTestProcessor()

	out, err := p.Process(context.Background(), taggedJPEG(t), domain.ProcessOptions{
		Action:   domain.ActionStrip,
		Optimize: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"jpeg is written baseline, not progressive",
		"colour profile removed without converting pixels to sRGB",
	}, out.Notes)

	out, err = p.Process(context.Background(), taggedJPEG(t), domain.ProcessOptions{
		Action:           domain.ActionStrip,
		KeepColorProfile: true,
	})
	require.NoError(t, err)
	assert.Empty(t, out.Notes)
}

func TestReencodeBakesOrientationWithoutContainer(t *testing.T) {
	p := newTestProcessor()
	src := fill(40, 20)

	out, err := p.reencode(&domain.RawImage{
		Image:       src,
		Format:      domain.FormatTIFF,
		Width:       40,
		Height:      20,
		Orientation: 6,
		ColorModel:  domain.ColorSRGB,
	}, domain.ProcessOptions{Action: domain.ActionStrip}.WithDefaults())
	require.NoError(t, err)
	assert.Equal(t, domain.FormatTIFF, out.Format)
	assert.Equal(t, 20, out.Width)
	assert.Equal(t, 40, out.Height)

	img, err := tiff.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 40), img.Bounds())
	// Rotating clockwise moves the top-left source pixel to the top-right.
	r, g, b, _ := img.At(19, 0).RGBA()
	wr, wg, wb, _ := src.At(0, 0).RGBA()
	assert.Equal(t, []uint32{wr, wg, wb}, []uint32{r, g, b})
}

func TestProcessTIFFKeepsOrientationWhenConverted(t *testing.T) {
	p := newTestProcessor()

	out, err := p.reencode(&domain.RawImage{
		Image:       fill(40, 20),
		Format:      domain.FormatTIFF,
		Width:       40,
		Height:      20,
		Orientation: 6,
		ColorModel:  domain.ColorSRGB,
	}, domain.ProcessOptions{Action: domain.ActionStrip, Optimize: true}.WithDefaults())
	require.NoError(t, err)
	assert.Equal(t, domain.FormatJPEG, out.Format)
	assert.Equal(t, 40, out.Width)

	info, err := metadata.Read(out.Data, domain.FormatJPEG)
	require.NoError(t, err)
	assert.Equal(t, 6, info.Orientation)
	assert.True(t, strings.HasPrefix(out.Notes[0], "jpeg"))
}
