package propra

import (
	"encoding/binary"
	"fmt"
	"io"
)

// TGAHeader is the 18-byte header of the supported TGA subset: true-colour,
// 24 bits per pixel, no image id, no colour map, top-left origin. The colour
// map spec and the origin fields are written but ignored on read.
type TGAHeader struct {
	IDLength     uint8
	ColorMapType uint8
	ImageType    uint8
	ColorMapSpec [5]byte
	XOrigin      uint16
	YOrigin      uint16
	Width        uint16
	Height       uint16
	BitsPerPixel uint8
	Descriptor   uint8
}

// NewTGAHeader returns the header for an image of the given size
func NewTGAHeader(width, height uint16, c Compression) (*TGAHeader, error) {
	imageType, err := FormatTGA.compressionCode(c)
	if err != nil {
		return nil, err
	}
	return &TGAHeader{
		ImageType:    imageType,
		YOrigin:      height,
		Width:        width,
		Height:       height,
		BitsPerPixel: BitsPerPixel,
		Descriptor:   tgaDescriptorTopLeft,
	}, nil
}

// ReadTGAHeader reads and validates a TGA header
func ReadTGAHeader(r io.Reader) (*TGAHeader, error) {
	var buf [TGAHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrExitCode(ExitCodeMalformedHeader, "tga: file shorter than its header")
		}
		return nil, fmt.Errorf("failed to read tga header: %w", err)
	}

	h := &TGAHeader{
		IDLength:     buf[0],
		ColorMapType: buf[1],
		ImageType:    buf[2],
		XOrigin:      binary.LittleEndian.Uint16(buf[8:]),
		YOrigin:      binary.LittleEndian.Uint16(buf[10:]),
		Width:        binary.LittleEndian.Uint16(buf[12:]),
		Height:       binary.LittleEndian.Uint16(buf[14:]),
		BitsPerPixel: buf[16],
		Descriptor:   buf[17],
	}
	copy(h.ColorMapSpec[:], buf[3:8])

	if h.IDLength != 0 {
		return nil, errExitCodef(ExitCodeMalformedHeader, "tga: image id of %d bytes not supported", h.IDLength)
	}
	if h.ColorMapType != 0 {
		return nil, ErrExitCode(ExitCodeMalformedHeader, "tga: colour maps not supported")
	}
	if err := validateDimensions(FormatTGA, h.Width, h.Height, h.BitsPerPixel); err != nil {
		return nil, err
	}
	if h.Descriptor != tgaDescriptorTopLeft {
		return nil, errExitCodef(ExitCodeMalformedHeader, "tga: unsupported image descriptor 0x%02x", h.Descriptor)
	}
	if _, err := FormatTGA.compressionForCode(h.ImageType); err != nil {
		return nil, err
	}
	return h, nil
}

// Compression returns the codec named by the image type
func (h *TGAHeader) Compression() (Compression, error) {
	return FormatTGA.compressionForCode(h.ImageType)
}

// MarshalBinary encodes the header in its on-disk layout
func (h *TGAHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, TGAHeaderSize)
	buf[0] = h.IDLength
	buf[1] = h.ColorMapType
	buf[2] = h.ImageType
	copy(buf[3:8], h.ColorMapSpec[:])
	binary.LittleEndian.PutUint16(buf[8:], h.XOrigin)
	binary.LittleEndian.PutUint16(buf[10:], h.YOrigin)
	binary.LittleEndian.PutUint16(buf[12:], h.Width)
	binary.LittleEndian.PutUint16(buf[14:], h.Height)
	buf[16] = h.BitsPerPixel
	buf[17] = h.Descriptor
	return buf, nil
}
