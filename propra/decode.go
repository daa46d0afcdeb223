package propra

import (
	"bytes"
	"fmt"
	"io"
	"math"
)

type readerState int

const (
	stateHeaderRead readerState = iota
	stateDimensionsValidated
	stateCompressionDispatched
	stateStreamingPixels
	stateDone
)

// ImageReader streams the pixels of a TGA or ProPra file in canonical RGB
// order. It implements PixelSource.
type ImageReader struct {
	seg         *Segment
	format      Format
	width       int
	height      int
	compression Compression
	dataLength  int64 // -1 when the header does not declare one

	cursor    *ReadCursor
	decoder   pixelDecoder
	remaining int64
	state     readerState
}

// OpenImage reads and validates the header of the image in seg and
// positions the reader on the first pixel. For ProPra files the declared
// data length and checksum are verified before any pixel is decoded.
func OpenImage(seg *Segment, format Format) (*ImageReader, error) {
	r := &ImageReader{seg: seg, format: format, dataLength: -1}

	cur, err := seg.OpenRead(0)
	if err != nil {
		return nil, err
	}
	var checksum uint32
	switch format {
	case FormatTGA:
		var h *TGAHeader
		if h, err = ReadTGAHeader(cur); err == nil {
			r.width, r.height = int(h.Width), int(h.Height)
			r.compression, err = h.Compression()
		}
	case FormatPropra:
		var h *PropraHeader
		if h, err = ReadPropraHeader(cur); err == nil {
			r.width, r.height = int(h.Width), int(h.Height)
			r.compression = h.Compression
			if h.DataLength > math.MaxInt64 {
				err = errExitCodef(ExitCodeLengthMismatch, "propra: data length %d out of range", h.DataLength)
			}
			r.dataLength = int64(h.DataLength)
			checksum = h.Checksum
		}
	default:
		err = errExitCodef(ExitCodeUnsupportedFormat, "cannot read %s", format)
	}
	if relErr := cur.Release(); err == nil {
		err = relErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s header: %w", format, err)
	}
	r.state = stateHeaderRead

	if r.dataLength >= 0 {
		if err := r.verifyDataSegment(checksum); err != nil {
			return nil, err
		}
	}
	r.state = stateDimensionsValidated
	log.Debugf("opened %dx%d %s image, compression %s", r.width, r.height, format, r.compression)

	if err := r.Reset(); err != nil {
		r.releaseCursor()
		return nil, err
	}
	return r, nil
}

// verifyDataSegment checks the declared length and checksum against the
// bytes that follow the header
func (r *ImageReader) verifyDataSegment(want uint32) error {
	pixelBytes := int64(r.width) * int64(r.height) * bytesPerPixel
	if r.compression == CompressionNone && r.dataLength != pixelBytes {
		return errExitCodef(ExitCodeLengthMismatch,
			"propra: uncompressed data length %d, expected %d", r.dataLength, pixelBytes)
	}

	cur, err := r.seg.OpenRead(r.format.HeaderSize())
	if err != nil {
		return err
	}
	got, err := StreamChecksum(r.dataLength, cur)
	if HasExitCode(err, ExitCodePrematureEndOfStream) {
		err = errExitCodef(ExitCodeLengthMismatch, "propra: data segment shorter than the declared %d bytes", r.dataLength)
	}
	if err == nil {
		var atEOF bool
		if atEOF, err = cur.AtEOF(); err == nil && !atEOF {
			err = errExitCodef(ExitCodeLengthMismatch, "propra: data segment longer than the declared %d bytes", r.dataLength)
		}
	}
	if relErr := cur.Release(); err == nil {
		err = relErr
	}
	if err != nil {
		return err
	}
	if got != want {
		return errExitCodef(ExitCodeChecksumMismatch, "propra: checksum 0x%08x, header says 0x%08x", got, want)
	}
	return nil
}

func (r *ImageReader) Width() int  { return r.width }
func (r *ImageReader) Height() int { return r.height }

// Format returns the container format being read
func (r *ImageReader) Format() Format { return r.format }

// Compression returns the codec of the data segment
func (r *ImageReader) Compression() Compression { return r.compression }

func (r *ImageReader) HasNext() bool {
	return r.remaining > 0
}

// Next decodes the next pixel. Decoding the last pixel also checks that
// the data segment holds nothing more.
func (r *ImageReader) Next() (Pixel, error) {
	if r.remaining == 0 {
		return Pixel{}, io.EOF
	}
	r.state = stateStreamingPixels
	p, err := r.decoder.ReadPixel()
	if err != nil {
		return Pixel{}, err
	}
	r.remaining--
	if r.remaining == 0 {
		if err := r.finish(); err != nil {
			return Pixel{}, err
		}
	}
	return r.format.ChannelOrder().ToRGB(p), nil
}

func (r *ImageReader) finish() error {
	consumed := r.cursor.Offset() - r.format.HeaderSize()
	if r.dataLength >= 0 && consumed != r.dataLength {
		return errExitCodef(ExitCodeLengthMismatch,
			"%s: pixels used %d of %d data bytes", r.format, consumed, r.dataLength)
	}
	atEOF, err := r.cursor.AtEOF()
	if err != nil {
		return err
	}
	if !atEOF {
		return errExitCodef(ExitCodeLengthMismatch, "%s: trailing bytes after the last pixel", r.format)
	}
	r.state = stateDone
	return nil
}

// Reset restarts decoding at the first pixel
func (r *ImageReader) Reset() error {
	if r.state < stateDimensionsValidated {
		return fmt.Errorf("%s reader: reset before the header was validated", r.format)
	}
	if err := r.releaseCursor(); err != nil {
		return err
	}
	cur, err := r.seg.OpenRead(r.format.HeaderSize())
	if err != nil {
		return err
	}
	r.cursor = cur
	r.decoder, err = r.compression.newDecoder(cur, int64(r.width)*int64(r.height))
	if err != nil {
		return err
	}
	r.remaining = int64(r.width) * int64(r.height)
	r.state = stateCompressionDispatched
	return nil
}

func (r *ImageReader) releaseCursor() error {
	if r.cursor == nil {
		return nil
	}
	cur := r.cursor
	r.cursor = nil
	return cur.Release()
}

// Close releases the reader's cursor. The segment stays open.
func (r *ImageReader) Close() error {
	return r.releaseCursor()
}

// DecodeBytes decodes a complete image held in memory
func DecodeBytes(data []byte, format Format) (*PixelSlice, error) {
	seg := NewSegment(bytes.NewReader(data), 0)
	defer seg.Close()

	img, err := OpenImage(seg, format)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	pixels, err := ReadAllPixels(img)
	if err != nil {
		return nil, err
	}
	return NewPixelSlice(img.Width(), img.Height(), pixels)
}
