package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	vp8xFlagICC   byte = 0x20
	vp8xFlagAlpha byte = 0x10
	vp8xFlagEXIF  byte = 0x08
	vp8xFlagXMP   byte = 0x04
)

type riffChunk struct {
	fourCC string
	data   []byte
}

func parseWebPChunks(data []byte) ([]riffChunk, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return nil, fmt.Errorf("not a webp stream")
	}

	size := int(binary.LittleEndian.Uint32(data[4:8])) + 8
	if size > len(data) {
		size = len(data)
	}

	var chunks []riffChunk
	i := 12
	for i+8 <= size {
		fourCC := string(data[i : i+4])
		n := int(binary.LittleEndian.Uint32(data[i+4 : i+8]))
		start := i + 8
		end := start + n
		if end > size {
			return nil, fmt.Errorf("chunk %q overruns stream", fourCC)
		}
		chunks = append(chunks, riffChunk{fourCC: fourCC, data: data[start:end]})
		i = end + n%2
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("webp stream has no chunks")
	}
	return chunks, nil
}

func writeWebPChunks(chunks []riffChunk) []byte {
	var body bytes.Buffer
	body.WriteString("WEBP")
	for _, c := range chunks {
		body.WriteString(c.fourCC)
		_ = binary.Write(&body, binary.LittleEndian, uint32(len(c.data)))
		body.Write(c.data)
		if len(c.data)%2 == 1 {
			body.WriteByte(0)
		}
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func readWebP(data []byte) (Info, error) {
	chunks, err := parseWebPChunks(data)
	if err != nil {
		return Info{}, err
	}

	var info Info
	for _, c := range chunks {
		switch c.fourCC {
		case "EXIF":
			raw := c.data
			// Some writers keep the JPEG-style prefix inside the chunk.
			raw = bytes.TrimPrefix(raw, exifHeader)
			info.EXIF = raw
		case "ICCP":
			info.ICCProfile = c.data
		}
	}
	info.Orientation, info.Tags = parseEXIF(info.EXIF)
	return info, nil
}

// rewriteWebP drops EXIF, XMP and ICCP chunks and re-adds what the block
// carries. A VP8X header is synthesised when the output needs one; width
// and height describe the canvas.
func rewriteWebP(data []byte, b Block, width, height int) ([]byte, error) {
	chunks, err := parseWebPChunks(data)
	if err != nil {
		return nil, err
	}

	var (
		vp8x  []byte
		body  []riffChunk
		alpha bool
	)
	for _, c := range chunks {
		switch c.fourCC {
		case "VP8X":
			if len(c.data) >= 10 {
				vp8x = append([]byte{}, c.data...)
			}
		case "EXIF", "XMP ", "ICCP":
		case "ALPH":
			alpha = true
			body = append(body, c)
		case "VP8L":
			if vp8lHasAlpha(c.data) {
				alpha = true
			}
			body = append(body, c)
		default:
			body = append(body, c)
		}
	}

	raw, err := buildEXIF(b)
	if err != nil {
		return nil, err
	}
	hasICC := len(b.ICCProfile) > 0
	needExtended := vp8x != nil || raw != nil || hasICC
	if !needExtended {
		return writeWebPChunks(body), nil
	}

	if vp8x == nil {
		if width <= 0 || height <= 0 {
			return nil, fmt.Errorf("canvas size required to extend webp container")
		}
		vp8x = make([]byte, 10)
		putUint24(vp8x[4:7], uint32(width-1))
		putUint24(vp8x[7:10], uint32(height-1))
	}

	flags := vp8x[0] &^ (vp8xFlagICC | vp8xFlagEXIF | vp8xFlagXMP)
	if alpha {
		flags |= vp8xFlagAlpha
	}
	if hasICC {
		flags |= vp8xFlagICC
	}
	if raw != nil {
		flags |= vp8xFlagEXIF
	}
	vp8x[0] = flags

	out := make([]riffChunk, 0, len(body)+3)
	out = append(out, riffChunk{fourCC: "VP8X", data: vp8x})
	if hasICC {
		out = append(out, riffChunk{fourCC: "ICCP", data: b.ICCProfile})
	}
	out = append(out, body...)
	if raw != nil {
		out = append(out, riffChunk{fourCC: "EXIF", data: raw})
	}
	return writeWebPChunks(out), nil
}

// vp8lHasAlpha reads the alpha_is_used bit from a VP8L bitstream header.
func vp8lHasAlpha(data []byte) bool {
	if len(data) < 5 || data[0] != 0x2F {
		return false
	}
	bits := binary.LittleEndian.Uint32(data[1:5])
	return bits>>28&1 == 1
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}
