package operations

import (
	"image"

	"github.com/disintegration/imaging"
)

const minBlockSize = 4

type PixelShifter struct{}

func NewPixelShifter() *PixelShifter {
	return &PixelShifter{}
}

// Apply swaps each full square block with another randomly chosen block with
// probability intensity/100. Partial blocks along the right and bottom edges
// never move.
func (s *PixelShifter) Apply(img image.Image, p Params) (*image.NRGBA, error) {
	dst := imaging.Clone(img)
	w, h := dst.Rect.Dx(), dst.Rect.Dy()

	block := max(minBlockSize, min(w, h)/20)
	cols, rows := w/block, h/block
	n := cols * rows
	if n < 2 {
		return dst, nil
	}

	prob := p.strength()
	for i := 0; i < n; i++ {
		if p.Rand.Float64() >= prob {
			continue
		}
		j := p.Rand.IntN(n - 1)
		if j >= i {
			j++
		}
		swapBlocks(dst, block, i%cols, i/cols, j%cols, j/cols)
	}
	return dst, nil
}

func swapBlocks(img *image.NRGBA, size, ax, ay, bx, by int) {
	rowBytes := size * 4
	tmp := make([]byte, rowBytes)
	for dy := 0; dy < size; dy++ {
		a := (ay*size+dy)*img.Stride + ax*rowBytes
		b := (by*size+dy)*img.Stride + bx*rowBytes
		copy(tmp, img.Pix[a:a+rowBytes])
		copy(img.Pix[a:a+rowBytes], img.Pix[b:b+rowBytes])
		copy(img.Pix[b:b+rowBytes], tmp)
	}
}
