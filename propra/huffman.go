package propra

import (
	"io"
)

// encodeHuffman makes two passes over src: one to count byte occurrences
// and one to emit the codes. The code tree precedes the codes and the
// output is padded to a whole byte.
func encodeHuffman(src PixelSource, w io.Writer) error {
	var freq [256]uint64
	for src.HasNext() {
		p, err := src.Next()
		if err != nil {
			return err
		}
		freq[p[0]]++
		freq[p[1]]++
		freq[p[2]]++
	}
	if err := src.Reset(); err != nil {
		return err
	}

	tree, err := BuildHuffmanTree(&freq)
	if err != nil {
		return err
	}
	bw := NewBitWriter(asByteWriter(w))
	if err := tree.WriteTo(bw); err != nil {
		return err
	}

	codes := tree.Codes()
	for src.HasNext() {
		p, err := src.Next()
		if err != nil {
			return err
		}
		for _, b := range p {
			if err := writePattern(bw, codes[b]); err != nil {
				return err
			}
		}
	}
	return bw.Close()
}

// writePattern emits a code in chunks of at most 32 bits
func writePattern(bw *BitWriter, pattern BitPattern) error {
	length := uint(pattern.Length)
	for length > 32 {
		length -= 32
		if err := bw.WriteBits(uint32(pattern.Code>>length), 32); err != nil {
			return err
		}
	}
	return bw.WriteBits(uint32(pattern.Code), length)
}

type huffmanDecoder struct {
	bits *BitReader
	tree *HuffmanTree
}

func newHuffmanDecoder(r byteStream) (*huffmanDecoder, error) {
	bits := NewBitReader(r)
	tree, err := ReadHuffmanTree(bits)
	if err != nil {
		return nil, err
	}
	return &huffmanDecoder{bits: bits, tree: tree}, nil
}

func (d *huffmanDecoder) ReadPixel() (Pixel, error) {
	var p Pixel
	for i := range p {
		sym, err := d.tree.DecodeSymbol(d.bits)
		if err != nil {
			return p, err
		}
		p[i] = sym
	}
	return p, nil
}

// byteWriterAdapter gives any io.Writer a WriteByte method
type byteWriterAdapter struct {
	io.Writer
	buf [1]byte
}

func (a *byteWriterAdapter) WriteByte(b byte) error {
	a.buf[0] = b
	_, err := a.Write(a.buf[:])
	return err
}

func asByteWriter(w io.Writer) io.ByteWriter {
	if bw, ok := w.(io.ByteWriter); ok {
		return bw
	}
	return &byteWriterAdapter{Writer: w}
}
