package metadata

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"hash/crc32"
	"io"

	pngstructure "github.com/dsoprea/go-png-image-structure/v2"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// Textual and profile chunks that count as metadata.
var pngMetadataChunks = map[string]bool{
	"eXIf": true,
	"tEXt": true,
	"zTXt": true,
	"iTXt": true,
	"tIME": true,
	"iCCP": true,
}

func parsePNG(data []byte) (*pngstructure.ChunkSlice, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, fmt.Errorf("not a png stream")
	}

	mc, err := pngstructure.NewPngMediaParser().ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse png chunks: %w", err)
	}
	cs, ok := mc.(*pngstructure.ChunkSlice)
	if !ok {
		return nil, fmt.Errorf("unexpected png media context %T", mc)
	}
	if chunks := cs.Chunks(); len(chunks) == 0 || chunks[0].Type != "IHDR" {
		return nil, fmt.Errorf("png stream missing IHDR")
	}
	return cs, nil
}

func newPNGChunk(typ string, data []byte) *pngstructure.Chunk {
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	return &pngstructure.Chunk{
		Type:   typ,
		Length: uint32(len(data)),
		Data:   data,
		Crc:    crc.Sum32(),
	}
}

func readPNG(data []byte) (Info, error) {
	cs, err := parsePNG(data)
	if err != nil {
		return Info{}, err
	}

	var info Info
	for _, c := range cs.Chunks() {
		switch c.Type {
		case "eXIf":
			if info.EXIF == nil {
				info.EXIF = c.Data
			}
		case "iCCP":
			if icc, err := inflateICCP(c.Data); err == nil {
				info.ICCProfile = icc
			}
		}
	}

	info.Orientation, info.Tags = parseEXIF(info.EXIF)
	for _, c := range cs.Chunks() {
		if c.Type != "tEXt" {
			continue
		}
		if key, value, ok := bytes.Cut(c.Data, []byte{0}); ok {
			info.Tags["png:"+string(key)] = string(value)
		}
	}
	return info, nil
}

func rewritePNG(data []byte, b Block) ([]byte, error) {
	cs, err := parsePNG(data)
	if err != nil {
		return nil, err
	}

	var inserted []*pngstructure.Chunk
	if len(b.ICCProfile) > 0 {
		iccp, err := deflateICCP(b.ICCProfile)
		if err != nil {
			return nil, err
		}
		inserted = append(inserted, newPNGChunk("iCCP", iccp))
	}
	text := func(key, value string) {
		if value == "" {
			return
		}
		inserted = append(inserted, newPNGChunk("tEXt", []byte(key+"\x00"+sanitizeLatin1(value))))
	}
	text("Copyright", b.Copyright)
	text("Author", b.Artist)
	text("Software", b.Software)
	text("Creation Time", b.DateTime)

	chunks := cs.Chunks()
	kept := make([]*pngstructure.Chunk, 0, len(chunks)+len(inserted)+1)
	for _, c := range chunks {
		if pngMetadataChunks[c.Type] {
			continue
		}
		// An embedded profile and an sRGB chunk must not coexist.
		if c.Type == "sRGB" && len(b.ICCProfile) > 0 {
			continue
		}
		kept = append(kept, c)
		if c.Type == "IHDR" {
			kept = append(kept, inserted...)
		}
	}

	out := pngstructure.NewChunkSlice(kept)

	ib, err := exifBuilder(b)
	if err != nil {
		return nil, err
	}
	if ib != nil {
		// Installed directly after IHDR.
		if err := out.SetExif(ib); err != nil {
			return nil, fmt.Errorf("failed to set exif chunk: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := out.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write png chunks: %w", err)
	}
	return buf.Bytes(), nil
}

func inflateICCP(data []byte) ([]byte, error) {
	_, rest, ok := bytes.Cut(data, []byte{0})
	if !ok || len(rest) < 1 {
		return nil, fmt.Errorf("malformed iCCP chunk")
	}
	r, err := zlib.NewReader(bytes.NewReader(rest[1:]))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func deflateICCP(profile []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("ICC Profile")
	buf.Write([]byte{0, 0})
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(profile); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sanitizeLatin1(s string) string {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r == 0:
		case r < 0x100:
			out = append(out, byte(r))
		default:
			out = append(out, '?')
		}
	}
	return string(out)
}
