package metadata

import (
	"bytes"
	"fmt"
	"sort"

	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
)

const (
	markerSOI  byte = 0xD8
	markerAPP0 byte = 0xE0
	markerAPP1 byte = 0xE1
	markerAPP2 byte = 0xE2
	markerAPPE byte = 0xEE
	markerCOM  byte = 0xFE

	maxSegmentData = 0xFFFF - 2
)

var (
	exifHeader = []byte("Exif\x00\x00")
	iccHeader  = []byte("ICC_PROFILE\x00")
	jfifHeader = []byte("JFIF\x00")
)

func parseJPEG(data []byte) (*jpegstructure.SegmentList, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, fmt.Errorf("not a jpeg stream")
	}

	mc, err := jpegstructure.NewJpegMediaParser().ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jpeg segments: %w", err)
	}
	sl, ok := mc.(*jpegstructure.SegmentList)
	if !ok {
		return nil, fmt.Errorf("unexpected jpeg media context %T", mc)
	}
	return sl, nil
}

func readJPEG(data []byte) (Info, error) {
	sl, err := parseJPEG(data)
	if err != nil {
		return Info{}, err
	}

	var info Info
	type iccChunk struct {
		seq  byte
		data []byte
	}
	var chunks []iccChunk

	for _, seg := range sl.Segments() {
		switch {
		case seg.MarkerId == markerAPP1 && bytes.HasPrefix(seg.Data, exifHeader) && info.EXIF == nil:
			info.EXIF = seg.Data[len(exifHeader):]
		case seg.MarkerId == markerAPP2 && bytes.HasPrefix(seg.Data, iccHeader) && len(seg.Data) > len(iccHeader)+2:
			chunks = append(chunks, iccChunk{seq: seg.Data[len(iccHeader)], data: seg.Data[len(iccHeader)+2:]})
		}
	}

	if len(chunks) > 0 {
		sort.Slice(chunks, func(i, j int) bool { return chunks[i].seq < chunks[j].seq })
		var icc bytes.Buffer
		for _, c := range chunks {
			icc.Write(c.data)
		}
		info.ICCProfile = icc.Bytes()
	}

	info.Orientation, info.Tags = parseEXIF(info.EXIF)
	return info, nil
}

// keepJPEGSegment decides which application segments survive a rewrite:
// the JFIF header and the Adobe APP14 marker (needed to decode CMYK/YCCK
// correctly). Every other APPn and COM segment is metadata and is dropped.
func keepJPEGSegment(seg *jpegstructure.Segment) bool {
	switch {
	case seg.MarkerId == markerAPP0:
		return bytes.HasPrefix(seg.Data, jfifHeader)
	case seg.MarkerId == markerAPPE:
		return true
	case seg.MarkerId > markerAPP0 && seg.MarkerId <= 0xEF:
		return false
	case seg.MarkerId == markerCOM:
		return false
	}
	return true
}

func rewriteJPEG(data []byte, b Block) ([]byte, error) {
	sl, err := parseJPEG(data)
	if err != nil {
		return nil, err
	}

	var kept []*jpegstructure.Segment
	for _, seg := range sl.Segments() {
		if keepJPEGSegment(seg) {
			kept = append(kept, seg)
		}
	}

	icc, err := iccSegments(b.ICCProfile)
	if err != nil {
		return nil, err
	}

	// After SOI, and after the JFIF APP0 when one is present.
	at := 1
	if len(kept) > 1 && kept[1].MarkerId == markerAPP0 {
		at = 2
	}
	segs := make([]*jpegstructure.Segment, 0, len(kept)+len(icc)+1)
	segs = append(segs, kept[:at]...)
	segs = append(segs, icc...)
	segs = append(segs, kept[at:]...)

	out := jpegstructure.NewSegmentList(segs)

	ib, err := exifBuilder(b)
	if err != nil {
		return nil, err
	}
	if ib != nil {
		if err := out.SetExif(ib); err != nil {
			return nil, fmt.Errorf("failed to set exif segment: %w", err)
		}
		// The new APP1 lands directly after SOI; JFIF stays first.
		if s := out.Segments(); len(s) > 2 && s[1].MarkerId == markerAPP1 && s[2].MarkerId == markerAPP0 {
			s[1], s[2] = s[2], s[1]
		}
	}

	var buf bytes.Buffer
	if err := out.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write jpeg segments: %w", err)
	}
	return buf.Bytes(), nil
}

func iccSegments(profile []byte) ([]*jpegstructure.Segment, error) {
	if len(profile) == 0 {
		return nil, nil
	}
	chunkSize := maxSegmentData - len(iccHeader) - 2
	count := (len(profile) + chunkSize - 1) / chunkSize
	if count > 255 {
		return nil, fmt.Errorf("icc profile too large: %d bytes", len(profile))
	}

	segs := make([]*jpegstructure.Segment, 0, count)
	for n := 0; n < count; n++ {
		start := n * chunkSize
		end := min(start+chunkSize, len(profile))

		data := make([]byte, 0, len(iccHeader)+2+end-start)
		data = append(data, iccHeader...)
		data = append(data, byte(n+1), byte(count))
		data = append(data, profile[start:end]...)
		segs = append(segs, &jpegstructure.Segment{MarkerId: markerAPP2, MarkerName: "APP2", Data: data})
	}
	return segs, nil
}
