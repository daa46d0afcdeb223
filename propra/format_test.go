package propra

import (
	"testing"
)

func TestFormatForPath(t *testing.T) {
	testCases := []struct {
		path     string
		expected Format
		ok       bool
	}{
		{"image.tga", FormatTGA, true},
		{"dir.d/IMAGE.TGA", FormatTGA, true},
		{"out.propra", FormatPropra, true},
		{"out.ProPra", FormatPropra, true},
		{"image.png", 0, false},
		{"tga", 0, false},
		{"image.tga.base-32", 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			got, err := FormatForPath(tc.path)
			if !tc.ok {
				if !HasExitCode(err, ExitCodeUnsupportedFormat) {
					t.Fatalf("expected UnsupportedFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.expected {
				t.Errorf("got %s, expected %s", got, tc.expected)
			}
		})
	}
}

func TestParseCompression(t *testing.T) {
	for name, want := range map[string]Compression{
		"uncompressed": CompressionNone,
		"none":         CompressionNone,
		"rle":          CompressionRLE,
		"RLE":          CompressionRLE,
		"huffman":      CompressionHuffman,
		"auto":         CompressionAuto,
	} {
		got, err := ParseCompression(name)
		if err != nil || got != want {
			t.Errorf("ParseCompression(%q) = %s, %v; expected %s", name, got, err, want)
		}
	}
	if _, err := ParseCompression("lzw"); !HasExitCode(err, ExitCodeSyntaxError) {
		t.Errorf("expected SyntaxError, got %v", err)
	}
}

func TestChannelOrder(t *testing.T) {
	p := Pixel{1, 2, 3}
	testCases := []struct {
		order  ChannelOrder
		onDisk Pixel
	}{
		{OrderRGB, Pixel{1, 2, 3}},
		{OrderBGR, Pixel{3, 2, 1}},
		{OrderGBR, Pixel{2, 3, 1}},
	}
	for _, tc := range testCases {
		if got := tc.order.FromRGB(p); got != tc.onDisk {
			t.Errorf("order %d: FromRGB = %v, expected %v", tc.order, got, tc.onDisk)
		}
		if got := tc.order.ToRGB(tc.onDisk); got != p {
			t.Errorf("order %d: ToRGB = %v, expected %v", tc.order, got, p)
		}
	}
	if FormatTGA.ChannelOrder() != OrderBGR || FormatPropra.ChannelOrder() != OrderGBR {
		t.Error("unexpected format channel orders")
	}
}

func TestCompressionCodes(t *testing.T) {
	testCases := []struct {
		format Format
		c      Compression
		code   uint8
	}{
		{FormatTGA, CompressionNone, 2},
		{FormatTGA, CompressionRLE, 10},
		{FormatPropra, CompressionNone, 0},
		{FormatPropra, CompressionRLE, 1},
		{FormatPropra, CompressionHuffman, 2},
	}
	for _, tc := range testCases {
		code, err := tc.format.compressionCode(tc.c)
		if err != nil || code != tc.code {
			t.Errorf("%s/%s: code %d, %v; expected %d", tc.format, tc.c, code, err, tc.code)
		}
		c, err := tc.format.compressionForCode(tc.code)
		if err != nil || c != tc.c {
			t.Errorf("%s code %d: %s, %v; expected %s", tc.format, tc.code, c, err, tc.c)
		}
	}
	if _, err := FormatTGA.compressionCode(CompressionHuffman); !HasExitCode(err, ExitCodeUnsupportedCompression) {
		t.Errorf("tga/huffman: expected UnsupportedCompression, got %v", err)
	}
	if _, err := FormatTGA.compressionForCode(1); !HasExitCode(err, ExitCodeMalformedHeader) {
		t.Errorf("tga code 1: expected MalformedHeader, got %v", err)
	}
}
