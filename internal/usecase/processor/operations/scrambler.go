package operations

import (
	"fmt"
	"image"
	"math/rand/v2"

	"image-batch/internal/domain"
)

// Params configures one scramble run.
type Params struct {
	// Intensity is 0..100.
	Intensity int
	Text      string
	Position  domain.WatermarkPosition
	Rand      *rand.Rand
}

func (p Params) strength() float64 {
	return float64(min(max(p.Intensity, 0), 100)) / 100
}

type transform interface {
	Apply(img image.Image, p Params) (*image.NRGBA, error)
}

type Scrambler struct {
	transforms map[domain.ScrambleType]transform
}

func NewScrambler() *Scrambler {
	return &Scrambler{
		transforms: map[domain.ScrambleType]transform{
			domain.ScramblePixelShift:  NewPixelShifter(),
			domain.ScrambleWatermark:   NewWatermarker(),
			domain.ScrambleBlurRegions: NewRegionBlurrer(),
			domain.ScrambleColorShift:  NewColorShifter(),
			domain.ScrambleNoise:       NewNoiser(),
		},
	}
}

// Scramble applies the transform registered for kind. The source image is left
// untouched.
func (s *Scrambler) Scramble(img image.Image, kind domain.ScrambleType, p Params) (*image.NRGBA, error) {
	if kind == "" {
		return nil, domain.ErrMissingScrambleType
	}
	t, ok := s.transforms[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownScrambleType, kind)
	}
	if p.Rand == nil {
		p.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return t.Apply(img, p)
}
