package propra

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func testImage(width, height int, seed int64) []Pixel {
	rng := rand.New(rand.NewSource(seed))
	pixels := make([]Pixel, width*height)
	for i := range pixels {
		switch rng.Intn(3) {
		case 0:
			pixels[i] = Pixel{10, 20, 30}
		case 1:
			if i > 0 {
				pixels[i] = pixels[i-1]
			}
		default:
			pixels[i] = Pixel{byte(rng.Intn(256)), byte(rng.Intn(8)), 0}
		}
	}
	return pixels
}

func writeImageFile(t *testing.T, path string, format Format, c Compression, src PixelSource) int64 {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		t.Fatal(err)
	}
	seg := NewSegment(f, 64)
	n, err := WriteImage(seg, format, c, src)
	if closeErr := seg.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		t.Fatalf("WriteImage(%s, %s) failed: %v", format, c, err)
	}
	return n
}

func readImageFile(t *testing.T, path string, format Format) (*ImageReader, []Pixel) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	seg := NewSegment(f, 64)
	t.Cleanup(func() { seg.Close() })
	img, err := OpenImage(seg, format)
	if err != nil {
		t.Fatalf("OpenImage(%s) failed: %v", path, err)
	}
	pixels, err := ReadAllPixels(img)
	if err != nil {
		t.Fatalf("reading %s failed: %v", path, err)
	}
	if err := img.Close(); err != nil {
		t.Fatal(err)
	}
	return img, pixels
}

func TestWriteImageRoundtrip(t *testing.T) {
	sizes := [][2]int{{1, 1}, {3, 7}, {150, 3}}
	for _, format := range []Format{FormatTGA, FormatPropra} {
		for _, c := range append(format.Compressions(), CompressionAuto) {
			for _, size := range sizes {
				width, height := size[0], size[1]
				t.Run(format.String()+"/"+c.String(), func(t *testing.T) {
					pixels := testImage(width, height, int64(width*height))
					path := filepath.Join(t.TempDir(), "image."+format.String())
					n := writeImageFile(t, path, format, c, mustPixels(t, width, height, pixels...))

					info, err := os.Stat(path)
					if err != nil {
						t.Fatal(err)
					}
					if info.Size() != format.HeaderSize()+n {
						t.Errorf("file is %d bytes, expected header plus %d", info.Size(), n)
					}

					img, got := readImageFile(t, path, format)
					if img.Width() != width || img.Height() != height {
						t.Fatalf("read back %dx%d, expected %dx%d", img.Width(), img.Height(), width, height)
					}
					if c != CompressionAuto && img.Compression() != c {
						t.Errorf("stored as %s, expected %s", img.Compression(), c)
					}
					for i := range pixels {
						if got[i] != pixels[i] {
							t.Fatalf("pixel %d: got %v, expected %v", i, got[i], pixels[i])
						}
					}
				})
			}
		}
	}
}

func TestWriteImageLayout(t *testing.T) {
	testCases := []struct {
		name     string
		format   Format
		expected []byte
	}{
		{"tga", FormatTGA, []byte{
			0, 0, 2, 0, 0, 0, 0, 0, 0, 0, 1, 0, 1, 0, 1, 0, 24, 0x20,
			3, 2, 1,
		}},
		{"propra", FormatPropra, append([]byte("ProPraWS19"),
			1, 0, 1, 0, 24, 0,
			3, 0, 0, 0, 0, 0, 0, 0,
			0x18, 0x00, 0x0C, 0x00,
			2, 3, 1,
		)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "image."+tc.format.String())
			writeImageFile(t, path, tc.format, CompressionNone, mustPixels(t, 1, 1, Pixel{1, 2, 3}))
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(data, tc.expected) {
				t.Errorf("got %x, expected %x", data, tc.expected)
			}
		})
	}
}

// TestWritePropraPatchesHeader checks the length and checksum written in
// the second pass, and that leftovers of a longer file are cut off
func TestWritePropraPatchesHeader(t *testing.T) {
	for _, c := range FormatPropra.Compressions() {
		t.Run(c.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "image.propra")
			if err := os.WriteFile(path, bytes.Repeat([]byte{0xEE}, 10000), 0644); err != nil {
				t.Fatal(err)
			}
			n := writeImageFile(t, path, FormatPropra, c, mustPixels(t, 20, 10, testImage(20, 10, 5)...))

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if int64(len(data)) != PropraHeaderSize+n {
				t.Fatalf("file is %d bytes, expected %d", len(data), PropraHeaderSize+n)
			}
			length := binary.LittleEndian.Uint64(data[16:])
			if length != uint64(n) {
				t.Errorf("header data length %d, expected %d", length, n)
			}
			sum := NewChecksum()
			sum.Write(data[PropraHeaderSize:])
			if got := binary.LittleEndian.Uint32(data[24:]); got != sum.Sum32() {
				t.Errorf("header checksum 0x%08x, data checksums to 0x%08x", got, sum.Sum32())
			}
			if data[15] != byte(c) {
				t.Errorf("compression byte %d, expected %d", data[15], c)
			}
		})
	}
}

func TestWriteImageErrors(t *testing.T) {
	testCases := []struct {
		name   string
		format Format
		c      Compression
		code   ExitCode
	}{
		{"tga huffman", FormatTGA, CompressionHuffman, ExitCodeUnsupportedCompression},
		{"unknown codec", FormatPropra, Compression(5), ExitCodeUnsupportedCompression},
		{"unknown format", Format(9), CompressionNone, ExitCodeUnsupportedFormat},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.bin")
			f, err := os.Create(path)
			if err != nil {
				t.Fatal(err)
			}
			seg := NewSegment(f, 0)
			defer seg.Close()
			_, err = WriteImage(seg, tc.format, tc.c, mustPixels(t, 1, 1, Pixel{}))
			if !HasExitCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestSelectCompression(t *testing.T) {
	testCases := []struct {
		name     string
		format   Format
		pixels   []Pixel
		width    int
		expected Compression
	}{
		{"single pixel", FormatPropra, []Pixel{{1, 2, 3}}, 1, CompressionNone},
		{"uniform tga", FormatTGA, repeatPixel(pxA, 64), 8, CompressionRLE},
		{"uniform propra", FormatPropra, repeatPixel(pxA, 64), 8, CompressionRLE},
		{"distinct tga", FormatTGA, []Pixel{pxA, pxB, pxC, pxA}, 4, CompressionNone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := mustPixels(t, tc.width, len(tc.pixels)/tc.width, tc.pixels...)
			got, err := SelectCompression(tc.format, src)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.expected {
				t.Errorf("got %s, expected %s", got, tc.expected)
			}
			if !src.HasNext() {
				t.Error("source not reset after selection")
			}
		})
	}
}

// TestSelectCompressionSmallest compares the choice with the size of every
// codec's output
func TestSelectCompressionSmallest(t *testing.T) {
	for seed := int64(0); seed < 5; seed++ {
		src := mustPixels(t, 32, 8, testImage(32, 8, seed)...)
		for _, format := range []Format{FormatTGA, FormatPropra} {
			got, err := SelectCompression(format, src)
			if err != nil {
				t.Fatal(err)
			}
			sizes := map[Compression]int64{}
			for _, c := range format.Compressions() {
				src.Reset()
				n, err := c.encode(orderedSource{PixelSource: src, order: format.ChannelOrder()}, io.Discard)
				if err != nil {
					t.Fatal(err)
				}
				sizes[c] = n
			}
			for c, n := range sizes {
				if n < sizes[got] {
					t.Errorf("seed %d %s: chose %s (%d bytes) over %s (%d bytes)", seed, format, got, sizes[got], c, n)
				}
			}
		}
	}
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	pixels := testImage(17, 9, 99)
	tgaPath := filepath.Join(dir, "in.tga")
	writeImageFile(t, tgaPath, FormatTGA, CompressionRLE, mustPixels(t, 17, 9, pixels...))

	steps := []struct {
		from, to string
		c        Compression
	}{
		{"in.tga", "a.propra", CompressionHuffman},
		{"a.propra", "b.propra", CompressionRLE},
		{"b.propra", "c.TGA", CompressionNone},
		{"c.TGA", "d.propra", CompressionAuto},
		{"d.propra", "e.tga", CompressionAuto},
	}
	for _, s := range steps {
		if err := Convert(filepath.Join(dir, s.from), filepath.Join(dir, s.to), s.c, Options{BufferSize: 100}); err != nil {
			t.Fatalf("%s -> %s: %v", s.from, s.to, err)
		}
	}

	_, got := readImageFile(t, filepath.Join(dir, "e.tga"), FormatTGA)
	for i := range pixels {
		if got[i] != pixels[i] {
			t.Fatalf("pixel %d: got %v, expected %v", i, got[i], pixels[i])
		}
	}
}

func TestConvertErrors(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.tga")
	writeImageFile(t, good, FormatTGA, CompressionNone, mustPixels(t, 2, 2, pxA, pxB, pxC, pxA))
	truncated := filepath.Join(dir, "truncated.tga")
	if err := os.WriteFile(truncated, tgaFile(2, 2, tgaImageTypeUncompressed, []byte{1, 2, 3}, nil), 0644); err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name   string
		input  string
		output string
		c      Compression
		code   ExitCode
	}{
		{"same file", good, good, CompressionNone, ExitCodeSyntaxError},
		{"input extension", filepath.Join(dir, "good.png"), filepath.Join(dir, "o1.tga"), CompressionNone, ExitCodeUnsupportedFormat},
		{"output extension", good, filepath.Join(dir, "o2.bmp"), CompressionNone, ExitCodeUnsupportedFormat},
		{"missing input", filepath.Join(dir, "missing.tga"), filepath.Join(dir, "o3.tga"), CompressionNone, ExitCodeOsError},
		{"huffman in tga", good, filepath.Join(dir, "o4.tga"), CompressionHuffman, ExitCodeUnsupportedCompression},
		{"truncated input", truncated, filepath.Join(dir, "o5.propra"), CompressionRLE, ExitCodePrematureEndOfStream},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Convert(tc.input, tc.output, tc.c, Options{})
			if !HasExitCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			if tc.output != tc.input {
				if _, err := os.Stat(tc.output); !os.IsNotExist(err) {
					t.Errorf("output %s left behind after a failed conversion", tc.output)
				}
			}
		})
	}

	if _, err := os.Stat(good); err != nil {
		t.Errorf("input touched by a failed conversion: %v", err)
	}
}
