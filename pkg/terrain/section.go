package terrain

import (
	"fmt"

	"github.com/Faultbox/bwterrain/pkg/binio"
)

// SectionInfo locates one section inside an encoded file.
type SectionInfo struct {
	Tag    binio.Tag
	Offset int // offset of the header
	Length int // payload bytes
}

// readSection reads a header, checks its tag and that the payload is a whole
// number of unit-sized elements, and returns a reader over the payload.
func readSection(r *binio.Reader, tag binio.Tag, unit int) (*binio.Reader, int, error) {
	at := r.Pos()
	hdr, err := headerSchema.Decode(r)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s header at 0x%x: %w", tag, at, err)
	}
	if hdr.Tag != tag {
		return nil, 0, fmt.Errorf("%w: expected %s at 0x%x, got %q", ErrMalformedTag, tag, at, hdr.Tag.String())
	}
	length := int(hdr.Length)
	if length%unit != 0 {
		return nil, 0, fmt.Errorf("%w: %s length %d is not a multiple of %d", ErrMisalignedSection, tag, length, unit)
	}
	payload, err := r.Sub(length)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s payload: %w", tag, err)
	}
	return payload, length / unit, nil
}

// readFixedSection is readSection for sections with one exact payload size.
func readFixedSection(r *binio.Reader, tag binio.Tag, size int) (*binio.Reader, error) {
	payload, count, err := readSection(r, tag, size)
	if err != nil {
		return nil, err
	}
	if count != 1 {
		return nil, fmt.Errorf("%w: %s length %d, expected %d", ErrMisalignedSection, tag, payload.Len(), size)
	}
	return payload, nil
}

// writeSection frames payload with a header computed from its live length.
func writeSection(w *binio.Writer, tag binio.Tag, payload []byte) error {
	hdr := SectionHeader{Tag: tag, Length: uint32(len(payload))}
	if err := headerSchema.Encode(w, &hdr); err != nil {
		return err
	}
	w.PutBytes(payload)
	return nil
}

// ScanSections lists the sections of an encoded file without decoding them.
func ScanSections(data []byte) ([]SectionInfo, error) {
	r := binio.NewReader(data)
	var out []SectionInfo
	for r.Remaining() > 0 {
		at := r.Pos()
		hdr, err := headerSchema.Decode(r)
		if err != nil {
			return out, fmt.Errorf("section header at 0x%x: %w", at, err)
		}
		if err := r.Skip(int(hdr.Length)); err != nil {
			return out, fmt.Errorf("section %s at 0x%x: %w", hdr.Tag, at, err)
		}
		out = append(out, SectionInfo{Tag: hdr.Tag, Offset: at, Length: int(hdr.Length)})
	}
	return out, nil
}
