package propra

import (
	"fmt"
	"io"
	"math"
)

// WriteImage encodes src into seg in the given format and returns the
// length of the data segment. ProPra files are written in two passes: a
// placeholder header, the data segment, a read-back of the data segment
// for its checksum and finally the patched length and checksum fields.
func WriteImage(seg *Segment, format Format, c Compression, src PixelSource) (int64, error) {
	if src.Width() <= 0 || src.Height() <= 0 || src.Width() > math.MaxUint16 || src.Height() > math.MaxUint16 {
		return 0, errExitCodef(ExitCodeMalformedHeader, "%s: cannot store a %dx%d image", format, src.Width(), src.Height())
	}
	if c == CompressionAuto {
		var err error
		if c, err = SelectCompression(format, src); err != nil {
			return 0, err
		}
	}
	if err := src.Reset(); err != nil {
		return 0, err
	}

	var n int64
	var err error
	switch format {
	case FormatTGA:
		n, err = writeTGA(seg, c, src)
	case FormatPropra:
		n, err = writePropra(seg, c, src)
	default:
		err = errExitCodef(ExitCodeUnsupportedFormat, "cannot write %s", format)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write %s image: %w", format, err)
	}
	if err := seg.Truncate(format.HeaderSize() + n); err != nil {
		return 0, err
	}
	return n, nil
}

func writeTGA(seg *Segment, c Compression, src PixelSource) (int64, error) {
	h, err := NewTGAHeader(uint16(src.Width()), uint16(src.Height()), c)
	if err != nil {
		return 0, err
	}
	header, err := h.MarshalBinary()
	if err != nil {
		return 0, err
	}
	if err := writeAt(seg, 0, header); err != nil {
		return 0, err
	}
	return writeDataSegment(seg, FormatTGA, c, src)
}

func writePropra(seg *Segment, c Compression, src PixelSource) (int64, error) {
	h := &PropraHeader{
		Width:        uint16(src.Width()),
		Height:       uint16(src.Height()),
		BitsPerPixel: BitsPerPixel,
		Compression:  c,
	}
	header, err := h.MarshalBinary()
	if err != nil {
		return 0, err
	}
	if err := writeAt(seg, 0, header); err != nil {
		return 0, err
	}

	n, err := writeDataSegment(seg, FormatPropra, c, src)
	if err != nil {
		return 0, err
	}

	cur, err := seg.OpenRead(PropraHeaderSize)
	if err != nil {
		return 0, err
	}
	checksum, err := StreamChecksum(n, cur)
	if relErr := cur.Release(); err == nil {
		err = relErr
	}
	if err != nil {
		return 0, err
	}
	log.Debugf("propra: data segment of %d bytes has checksum 0x%08x", n, checksum)

	if err := writeAt(seg, propraDataLengthOffset, lengthAndChecksum(uint64(n), checksum)); err != nil {
		return 0, err
	}
	return n, nil
}

// writeDataSegment streams the pixels of src through the codec right
// after the header
func writeDataSegment(seg *Segment, f Format, c Compression, src PixelSource) (int64, error) {
	cur, err := seg.OpenWrite(f.HeaderSize())
	if err != nil {
		return 0, err
	}
	n, err := c.encode(orderedSource{PixelSource: src, order: f.ChannelOrder()}, cur)
	if relErr := cur.Release(); err == nil {
		err = relErr
	}
	if err != nil {
		return 0, err
	}
	log.Debugf("%s: wrote %d data bytes with %s", f, n, c)
	return n, nil
}

func writeAt(seg *Segment, offset int64, data []byte) error {
	cur, err := seg.OpenWrite(offset)
	if err != nil {
		return err
	}
	_, err = cur.Write(data)
	if relErr := cur.Release(); err == nil {
		err = relErr
	}
	return err
}

// SelectCompression dry-runs every codec the format supports and returns
// the one with the smallest output. Earlier codecs win ties.
func SelectCompression(format Format, src PixelSource) (Compression, error) {
	best := CompressionNone
	bestSize := int64(-1)
	for _, c := range format.Compressions() {
		if err := src.Reset(); err != nil {
			return 0, err
		}
		n, err := c.encode(orderedSource{PixelSource: src, order: format.ChannelOrder()}, io.Discard)
		if err != nil {
			return 0, err
		}
		log.Debugf("auto: %s needs %d bytes", c, n)
		if bestSize < 0 || n < bestSize {
			best, bestSize = c, n
		}
	}
	if err := src.Reset(); err != nil {
		return 0, err
	}
	log.Infof("auto: chose %s for %s (%d bytes)", best, format, bestSize)
	return best, nil
}
