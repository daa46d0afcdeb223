package propra

import (
	"bytes"
	"io"
	"math/rand"
	"testing"
)

func TestBitReader(t *testing.T) {
	testCases := []struct {
		name     string
		data     []byte
		widths   []uint
		expected []uint32
	}{
		{"exact", []byte{0xE2, 0xA4}, []uint{5, 5, 6}, []uint32{0b11100, 0b01010, 0b100100}},
		{"padded tail", []byte{0xFF}, []uint{5, 5}, []uint32{31, 0b11100}},
		{"32 bits", []byte{0xDE, 0xAD, 0xBE, 0xEF}, []uint{32}, []uint32{0xDEADBEEF}},
		{"wide then narrow", []byte{0xAB, 0xCD}, []uint{12, 4}, []uint32{0xABC, 0xD}},
		{"fooba", []byte("fooba"), []uint{5, 5, 5, 5, 5, 5, 5, 5},
			[]uint32{0b01100, 0b11001, 0b10111, 0b10110, 0b11110, 0b11000, 0b10011, 0b00001}},
		{"zero width", []byte{0x80}, []uint{0, 1, 7}, []uint32{0, 1, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewBitReader(bytes.NewReader(tc.data))
			for i, width := range tc.widths {
				got, err := r.ReadBits(width)
				if err != nil {
					t.Fatalf("read %d failed: %v", i, err)
				}
				if got != tc.expected[i] {
					t.Errorf("read %d: got %#b, expected %#b", i, got, tc.expected[i])
				}
			}
			if _, err := r.ReadBits(1); err != io.EOF {
				t.Errorf("expected io.EOF after the last bit, got %v", err)
			}
		})
	}
}

func TestBitReaderEmpty(t *testing.T) {
	r := NewBitReader(bytes.NewReader(nil))
	if _, err := r.ReadBits(8); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if _, err := r.ReadBits(8); err != io.EOF {
		t.Fatalf("expected io.EOF on repeated read, got %v", err)
	}
}

func TestBitReaderWidthLimit(t *testing.T) {
	src := bytes.NewReader([]byte{1, 2, 3, 4, 5})
	r := NewBitReader(src)
	if _, err := r.ReadBits(33); err == nil || err == io.EOF {
		t.Fatalf("expected a width error, got %v", err)
	}
	if src.Len() != 5 {
		t.Fatalf("rejected read consumed %d bytes", 5-src.Len())
	}
	v, err := r.ReadBits(32)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x01020304 {
		t.Errorf("got 0x%08x, expected 0x01020304", v)
	}
}

// TestBitReaderConsumesLazily checks that a field ending on a byte boundary
// does not pull the following byte from the source
func TestBitReaderConsumesLazily(t *testing.T) {
	src := bytes.NewReader([]byte{0xAA, 0xBB})
	r := NewBitReader(src)
	if _, err := r.ReadBits(8); err != nil {
		t.Fatal(err)
	}
	if src.Len() != 1 {
		t.Fatalf("%d bytes left in source, expected 1", src.Len())
	}
}

func TestBitRoundtrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	fields := make([]bitField, 1000)
	for i := range fields {
		width := uint(rng.Intn(32) + 1)
		fields[i] = bitField{val: rng.Uint32() & (uint32(1)<<width - 1), numBits: width}
	}

	var buf bytes.Buffer
	w := NewBitWriter(&buf)
	for _, f := range fields {
		if err := w.WriteBits(f.val, f.numBits); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r := NewBitReader(bytes.NewReader(buf.Bytes()))
	for i, f := range fields {
		got, err := r.ReadBits(f.numBits)
		if err != nil {
			t.Fatalf("field %d: %v", i, err)
		}
		if got != f.val {
			t.Fatalf("field %d (%d bits): got %#x, expected %#x", i, f.numBits, got, f.val)
		}
	}
}
