package propra

import "io"

const checksumModulus = 65513

// Checksum is the rolling checksum stored in ProPra headers. It implements
// io.Writer and io.ByteWriter so it can sit at the end of a copy.
type Checksum struct {
	a, b  uint64
	count uint64
}

// NewChecksum creates a Checksum over zero bytes
func NewChecksum() *Checksum {
	return &Checksum{b: 1}
}

// WriteByte adds one byte. It never fails.
func (c *Checksum) WriteByte(v byte) error {
	c.count++
	c.a = (c.a + c.count + uint64(v)) % checksumModulus
	c.b = (c.b + c.a) % checksumModulus
	return nil
}

func (c *Checksum) Write(p []byte) (int, error) {
	for _, v := range p {
		c.WriteByte(v)
	}
	return len(p), nil
}

// Len returns the number of bytes consumed so far
func (c *Checksum) Len() int64 {
	return int64(c.count)
}

// Sum32 returns the combined checksum of the bytes consumed so far
func (c *Checksum) Sum32() uint32 {
	return uint32(c.a*65536 + c.b)
}

// StreamChecksum computes the checksum over exactly n bytes pulled one at a
// time from src
func StreamChecksum(n int64, src io.ByteReader) (uint32, error) {
	c := NewChecksum()
	for i := int64(0); i < n; i++ {
		v, err := src.ReadByte()
		if err == io.EOF {
			return 0, errExitCodef(ExitCodePrematureEndOfStream, "checksum: data ended after %d of %d bytes", i, n)
		}
		if err != nil {
			return 0, err
		}
		c.WriteByte(v)
	}
	return c.Sum32(), nil
}
