package propra

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PropraHeader is the fixed 28-byte header of a ProPra file
type PropraHeader struct {
	Width        uint16
	Height       uint16
	BitsPerPixel uint8
	Compression  Compression

	// DataLength is the size of the data segment in bytes
	DataLength uint64

	// Checksum is the rolling checksum of the data segment
	Checksum uint32
}

// ReadPropraHeader reads and validates a ProPra header
func ReadPropraHeader(r io.Reader) (*PropraHeader, error) {
	var buf [PropraHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrExitCode(ExitCodeMalformedHeader, "propra: file shorter than its header")
		}
		return nil, fmt.Errorf("failed to read propra header: %w", err)
	}

	if [10]byte(buf[:10]) != PropraMagic {
		return nil, ErrExitCode(ExitCodeMalformedHeader, "propra: invalid magic number")
	}

	h := &PropraHeader{
		Width:        binary.LittleEndian.Uint16(buf[propraWidthOffset:]),
		Height:       binary.LittleEndian.Uint16(buf[propraWidthOffset+2:]),
		BitsPerPixel: buf[14],
		DataLength:   binary.LittleEndian.Uint64(buf[propraDataLengthOffset:]),
		Checksum:     binary.LittleEndian.Uint32(buf[propraChecksumOffset:]),
	}
	if err := validateDimensions(FormatPropra, h.Width, h.Height, h.BitsPerPixel); err != nil {
		return nil, err
	}
	c, err := FormatPropra.compressionForCode(buf[15])
	if err != nil {
		return nil, err
	}
	h.Compression = c
	return h, nil
}

// MarshalBinary encodes the header in its on-disk layout
func (h *PropraHeader) MarshalBinary() ([]byte, error) {
	code, err := FormatPropra.compressionCode(h.Compression)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, PropraHeaderSize)
	copy(buf, PropraMagic[:])
	binary.LittleEndian.PutUint16(buf[propraWidthOffset:], h.Width)
	binary.LittleEndian.PutUint16(buf[propraWidthOffset+2:], h.Height)
	buf[14] = h.BitsPerPixel
	buf[15] = code
	binary.LittleEndian.PutUint64(buf[propraDataLengthOffset:], h.DataLength)
	binary.LittleEndian.PutUint32(buf[propraChecksumOffset:], h.Checksum)
	return buf, nil
}

// lengthAndChecksum encodes the two trailing header fields patched after
// the data segment is written
func lengthAndChecksum(length uint64, checksum uint32) []byte {
	buf := make([]byte, PropraHeaderSize-propraDataLengthOffset)
	binary.LittleEndian.PutUint64(buf, length)
	binary.LittleEndian.PutUint32(buf[propraChecksumOffset-propraDataLengthOffset:], checksum)
	return buf
}

func validateDimensions(f Format, width, height uint16, bpp uint8) error {
	if width == 0 || height == 0 {
		return errExitCodef(ExitCodeMalformedHeader, "%s: invalid dimensions %dx%d", f, width, height)
	}
	if bpp != BitsPerPixel {
		return errExitCodef(ExitCodeMalformedHeader, "%s: unsupported bits per pixel %d", f, bpp)
	}
	return nil
}
