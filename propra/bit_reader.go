package propra

import (
	"bufio"
	"fmt"
	"io"
)

// BitReader reads MSB-first bit fields of 1 to 32 bits from a byte stream
type BitReader struct {
	inner     io.ByteReader
	pending   uint16 // byte currently being consumed
	bitOffset uint   // bits of pending already consumed, always < 8
	loaded    bool
	atEnd     bool
}

// NewBitReader creates a new BitReader. Readers that do not implement
// io.ByteReader are buffered.
func NewBitReader(reader io.Reader) *BitReader {
	br, ok := reader.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(reader)
	}
	return &BitReader{inner: br}
}

// ReadBits reads numBits (at most 32) bits and returns them right-aligned.
// It returns io.EOF when the stream holds no more bits. A read that runs
// out part-way is padded with zero bits; the following read returns io.EOF.
// Wider fields are an error.
func (r *BitReader) ReadBits(numBits uint) (uint32, error) {
	if numBits > 32 {
		return 0, fmt.Errorf("bit reader: %d bits requested, at most 32 supported", numBits)
	}
	if numBits == 0 {
		return 0, nil
	}

	var value uint32
	first := true
	for numBits > 0 {
		chunk := numBits
		if chunk > 8 {
			chunk = 8
		}
		bits, err := r.readSmall(chunk)
		if err == io.EOF && !first {
			// pad the remainder of a partially available field
			bits = 0
		} else if err != nil {
			return 0, err
		}
		value = value<<chunk | bits
		numBits -= chunk
		first = false
	}
	return value, nil
}

// readSmall reads up to 8 bits, combining the pending byte with the next
// one when the field straddles a byte boundary. The next byte is fetched
// only once a field actually needs it.
func (r *BitReader) readSmall(numBits uint) (uint32, error) {
	if !r.loaded {
		if r.atEnd {
			return 0, io.EOF
		}
		b, err := r.inner.ReadByte()
		if err != nil {
			if err == io.EOF {
				r.atEnd = true
			}
			return 0, err
		}
		r.pending = uint16(b)
		r.loaded = true
	}

	combined := r.pending << 8
	end := r.bitOffset + numBits
	if end > 8 {
		b, err := r.inner.ReadByte()
		if err == io.EOF {
			r.atEnd = true
			b = 0
		} else if err != nil {
			return 0, err
		}
		combined |= uint16(b)
		r.pending = uint16(b)
	}
	value := (combined >> (16 - end)) & (1<<numBits - 1)

	switch {
	case end < 8:
		r.bitOffset = end
	case end == 8:
		r.bitOffset = 0
		r.loaded = false
	default:
		r.bitOffset = end - 8
		r.loaded = !r.atEnd
	}
	return uint32(value), nil
}
