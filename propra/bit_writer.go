package propra

import (
	"fmt"
	"io"
)

// BitWriter writes MSB-first bit fields of 1 to 32 bits to a byte sink
type BitWriter struct {
	inner     io.ByteWriter
	current   uint16 // partially filled byte, left-aligned in the low 8 bits
	bitOffset uint   // number of bits already placed in current, always < 8
	written   int64
}

// NewBitWriter creates a new BitWriter
func NewBitWriter(writer io.ByteWriter) *BitWriter {
	return &BitWriter{inner: writer}
}

// WriteBits writes the low numBits (at most 32) bits of val. Wider fields
// are rejected without writing anything.
func (w *BitWriter) WriteBits(val uint32, numBits uint) error {
	if numBits > 32 {
		return fmt.Errorf("bit writer: %d bits requested, at most 32 supported", numBits)
	}
	for numBits > 0 {
		chunk := numBits % 8
		if chunk == 0 {
			chunk = 8
		}
		numBits -= chunk
		if err := w.writeSmall(val>>numBits, chunk); err != nil {
			return err
		}
	}
	return nil
}

// writeSmall places up to 8 bits after the pending ones and flushes the
// byte once it is complete
func (w *BitWriter) writeSmall(val uint32, numBits uint) error {
	bits := uint16(val) & (1<<numBits - 1)
	combined := w.current<<8 | bits<<(16-w.bitOffset-numBits)
	if w.bitOffset+numBits >= 8 {
		if err := w.inner.WriteByte(byte(combined >> 8)); err != nil {
			return err
		}
		w.written++
		w.current = combined & 0xFF
	} else {
		w.current = combined >> 8
	}
	w.bitOffset = (w.bitOffset + numBits) % 8
	return nil
}

// Close pads the final partial byte with zero bits and flushes it. The
// underlying sink is not closed.
func (w *BitWriter) Close() error {
	if w.bitOffset == 0 {
		return nil
	}
	if err := w.inner.WriteByte(byte(w.current)); err != nil {
		return err
	}
	w.written++
	w.current = 0
	w.bitOffset = 0
	return nil
}

// BytesWritten returns the number of whole bytes handed to the sink
func (w *BitWriter) BytesWritten() int64 {
	return w.written
}
