package propra

import (
	"fmt"
	"io"
	"strings"
)

// Compression is the pixel codec used for a data segment
type Compression int

const (
	CompressionNone Compression = iota
	CompressionRLE
	CompressionHuffman

	// CompressionAuto asks Convert to pick the smallest codec the target
	// format supports. It never reaches a codec.
	CompressionAuto Compression = -1
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "uncompressed"
	case CompressionRLE:
		return "rle"
	case CompressionHuffman:
		return "huffman"
	case CompressionAuto:
		return "auto"
	default:
		return fmt.Sprintf("Compression(%d)", int(c))
	}
}

// ParseCompression maps a command line name to a Compression
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(name) {
	case "uncompressed", "none":
		return CompressionNone, nil
	case "rle":
		return CompressionRLE, nil
	case "huffman":
		return CompressionHuffman, nil
	case "auto":
		return CompressionAuto, nil
	default:
		return 0, errExitCodef(ExitCodeSyntaxError, "unknown compression %q", name)
	}
}

// byteStream is what the decoders consume; read cursors and bufio.Reader
// both satisfy it
type byteStream interface {
	io.Reader
	io.ByteReader
}

// pixelDecoder yields pixels in disk channel order
type pixelDecoder interface {
	ReadPixel() (Pixel, error)
}

// encode writes every pixel of src, already in disk channel order, and
// returns the number of bytes produced
func (c Compression) encode(src PixelSource, w io.Writer) (int64, error) {
	cw := &countingWriter{inner: w}
	var err error
	switch c {
	case CompressionNone:
		err = encodeRaw(src, cw)
	case CompressionRLE:
		err = encodeRLE(src, cw)
	case CompressionHuffman:
		err = encodeHuffman(src, cw)
	default:
		err = errExitCodef(ExitCodeUnsupportedCompression, "cannot encode with %s", c)
	}
	return cw.written, err
}

// newDecoder creates the decoder for a data segment holding numPixels pixels
func (c Compression) newDecoder(r byteStream, numPixels int64) (pixelDecoder, error) {
	switch c {
	case CompressionNone:
		return &rawDecoder{r: r}, nil
	case CompressionRLE:
		return newRLEDecoder(r, numPixels), nil
	case CompressionHuffman:
		return newHuffmanDecoder(r)
	default:
		return nil, errExitCodef(ExitCodeUnsupportedCompression, "cannot decode %s", c)
	}
}

// countingWriter counts bytes as they pass through
type countingWriter struct {
	inner   io.Writer
	written int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.inner.Write(p)
	w.written += int64(n)
	return n, err
}

func (w *countingWriter) WriteByte(b byte) error {
	var err error
	if bw, ok := w.inner.(io.ByteWriter); ok {
		err = bw.WriteByte(b)
	} else {
		_, err = w.inner.Write([]byte{b})
	}
	if err == nil {
		w.written++
	}
	return err
}

func encodeRaw(src PixelSource, w io.Writer) error {
	for src.HasNext() {
		p, err := src.Next()
		if err != nil {
			return err
		}
		if _, err := w.Write(p[:]); err != nil {
			return err
		}
	}
	return nil
}

type rawDecoder struct {
	r byteStream
}

func (d *rawDecoder) ReadPixel() (Pixel, error) {
	var p Pixel
	if _, err := io.ReadFull(d.r, p[:]); err != nil {
		return p, endOfStream(err)
	}
	return p, nil
}

// endOfStream turns a short read into PrematureEndOfStream
func endOfStream(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrPrematureEndOfStream
	}
	return err
}
