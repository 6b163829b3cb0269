package processor

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"image-batch/internal/domain"
	"image-batch/internal/usecase/processor/codec"
	"image-batch/internal/usecase/processor/metadata"
	"image-batch/internal/usecase/processor/operations"

	"github.com/wb-go/wbf/zlog"
)

const exifDateTime = "2006:01:02 15:04:05"

type ImageProcessor struct {
	resizer   *operations.Resizer
	scrambler *operations.Scrambler
	logger    *zlog.Zerolog

	now     func() time.Time
	newRand func() *rand.Rand
}

func NewImageProcessor(logger *zlog.Zerolog) *ImageProcessor {
	return &ImageProcessor{
		resizer:   operations.NewResizer(),
		scrambler: operations.NewScrambler(),
		logger:    logger,
		now:       time.Now,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
}

// Process decodes data, applies the action described by opts and returns the
// encoded result. Every failure is a transform error.
func (p *ImageProcessor) Process(ctx context.Context, data []byte, opts domain.ProcessOptions) (*domain.ProcessedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewError(domain.KindTransform, "process", err)
	}
	opts = opts.WithDefaults()

	if opts.Action == domain.ActionScramble && opts.ScrambleType == "" {
		return nil, domain.NewError(domain.KindTransform, "scramble", domain.ErrMissingScrambleType)
	}

	raw, err := codec.Decode(data)
	if err != nil {
		p.logger.Error().Err(err).Int("size", len(data)).Msg("Failed to decode image")
		return nil, domain.NewError(domain.KindTransform, "decode", err)
	}

	p.logger.Debug().
		Str("action", string(opts.Action)).
		Str("format", string(raw.Format)).
		Int("width", raw.Width).
		Int("height", raw.Height).
		Bool("optimize", opts.Optimize).
		Msg("Starting image processing")

	var out *domain.ProcessedImage
	if p.needsPixels(raw, opts) {
		out, err = p.reencode(raw, opts)
	} else {
		out, err = p.rewriteInPlace(raw, opts)
	}
	if err != nil {
		p.logger.Error().Err(err).Str("action", string(opts.Action)).Str("format", string(raw.Format)).Msg("Image processing failed")
		return nil, domain.Wrap(domain.KindTransform, string(opts.Action), err)
	}

	p.logger.Debug().
		Str("action", string(opts.Action)).
		Str("format", string(out.Format)).
		Int("width", out.Width).
		Int("height", out.Height).
		Int("size", out.Size()).
		Msg("Image processing completed")

	return out, nil
}

// needsPixels reports whether the output requires decoding and re-encoding
// pixels rather than rewriting the container.
func (p *ImageProcessor) needsPixels(raw *domain.RawImage, opts domain.ProcessOptions) bool {
	switch {
	case opts.Action == domain.ActionScramble:
		return true
	case opts.Optimize:
		return true
	case !opts.KeepColorProfile && raw.ColorModel == domain.ColorCMYK:
		return true
	case !metadata.Supports(raw.Format):
		return true
	}
	return false
}

func (p *ImageProcessor) rewriteInPlace(raw *domain.RawImage, opts domain.ProcessOptions) (*domain.ProcessedImage, error) {
	block := p.metadataBlock(raw, opts, false)
	data, err := metadata.Rewrite(raw.Data, raw.Format, block, raw.Width, raw.Height)
	if err != nil {
		return nil, fmt.Errorf("failed to rewrite metadata: %w", err)
	}
	return &domain.ProcessedImage{
		Data:     data,
		Format:   raw.Format,
		MimeType: raw.Format.MimeType(),
		Width:    raw.Width,
		Height:   raw.Height,
		Notes:    p.notes(raw, opts, raw.Format),
	}, nil
}

func (p *ImageProcessor) reencode(raw *domain.RawImage, opts domain.ProcessOptions) (*domain.ProcessedImage, error) {
	img := raw.Image

	if opts.Action == domain.ActionScramble {
		scrambled, err := p.scrambler.Scramble(img, opts.ScrambleType, operations.Params{
			Intensity: opts.Intensity(),
			Text:      opts.WatermarkText,
			Position:  opts.WatermarkPosition,
			Rand:      p.newRand(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scramble image: %w", err)
		}
		img = scrambled
	}

	target := raw.Format
	if opts.Optimize {
		img = p.resizer.Fit(img, opts.MaxWidth)
		target = optimizedFormat(raw)
	}

	// The tag cannot be carried, so the rotation is applied to the pixels.
	if !metadata.Supports(target) && raw.Orientation > 1 {
		img = operations.Orient(img, raw.Orientation)
	}

	// None of the encoders write CMYK.
	converted := raw.ColorModel == domain.ColorCMYK
	if converted {
		img = operations.ToSRGB(img)
	}

	data, err := codec.Encode(img, target, codec.EncodeOptions{
		Quality:        opts.Quality,
		Progressive:    opts.Optimize,
		MaxCompression: opts.Optimize,
	})
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if metadata.Supports(target) {
		data, err = metadata.Rewrite(data, target, p.metadataBlock(raw, opts, converted), bounds.Dx(), bounds.Dy())
		if err != nil {
			return nil, fmt.Errorf("failed to attach metadata: %w", err)
		}
	}

	return &domain.ProcessedImage{
		Data:     data,
		Format:   target,
		MimeType: target.MimeType(),
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Notes:    p.notes(raw, opts, target),
	}, nil
}

// notes reports the encoder and colour management limits that applied to
// this output.
func (p *ImageProcessor) notes(raw *domain.RawImage, opts domain.ProcessOptions, target domain.ImageFormat) []string {
	var notes []string
	if opts.Optimize {
		switch target {
		case domain.FormatWebP:
			notes = append(notes, "webp is re-encoded lossless, quality not applied")
		case domain.FormatJPEG:
			notes = append(notes, "jpeg is written baseline, not progressive")
		}
	}
	if !opts.KeepColorProfile && raw.ColorModel != domain.ColorCMYK && len(raw.ICCProfile) > 0 {
		notes = append(notes, "colour profile removed without converting pixels to sRGB")
	}
	return notes
}

// metadataBlock is the complete metadata set the output carries. GPS and
// every other source tag are never copied.
func (p *ImageProcessor) metadataBlock(raw *domain.RawImage, opts domain.ProcessOptions, converted bool) metadata.Block {
	var b metadata.Block
	if raw.Orientation > 1 {
		b.Orientation = raw.Orientation
	}
	if opts.KeepColorProfile && !converted {
		b.ICCProfile = raw.ICCProfile
	}
	if opts.Action.WritesAttribution() {
		b.Copyright = opts.Copyright
		b.Artist = opts.Author
		b.Software = domain.SoftwareTag
		b.DateTime = p.now().Format(exifDateTime)
	}
	return b
}

// optimizedFormat picks the output container when optimising: large opaque
// PNGs become JPEG, other PNGs stay lossless, WebP and JPEG keep their format
// and everything else is converted to JPEG.
func optimizedFormat(raw *domain.RawImage) domain.ImageFormat {
	switch raw.Format {
	case domain.FormatPNG:
		if !raw.HasAlpha && (len(raw.Data) > domain.LargePNGBytes || raw.Width*raw.Height > domain.LargePNGPixels) {
			return domain.FormatJPEG
		}
		return domain.FormatPNG
	case domain.FormatWebP:
		return domain.FormatWebP
	}
	return domain.FormatJPEG
}
