package propra

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is an image container format
type Format int

const (
	FormatTGA Format = iota + 1
	FormatPropra
)

func (f Format) String() string {
	switch f {
	case FormatTGA:
		return "tga"
	case FormatPropra:
		return "propra"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatForPath picks the format from a file extension
func FormatForPath(path string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "tga":
		return FormatTGA, nil
	case "propra":
		return FormatPropra, nil
	default:
		return 0, errExitCodef(ExitCodeUnsupportedFormat, "unsupported file extension %q in %s", ext, path)
	}
}

// ChannelOrder returns how pixels are laid out on disk
func (f Format) ChannelOrder() ChannelOrder {
	if f == FormatTGA {
		return OrderBGR
	}
	return OrderGBR
}

// HeaderSize returns the size of the fixed header preceding the data segment
func (f Format) HeaderSize() int64 {
	if f == FormatTGA {
		return TGAHeaderSize
	}
	return PropraHeaderSize
}

// Compressions lists the codecs the format can store, smallest code first
func (f Format) Compressions() []Compression {
	if f == FormatTGA {
		return []Compression{CompressionNone, CompressionRLE}
	}
	return []Compression{CompressionNone, CompressionRLE, CompressionHuffman}
}

// compressionCode maps a codec to the header's type code
func (f Format) compressionCode(c Compression) (uint8, error) {
	switch f {
	case FormatTGA:
		switch c {
		case CompressionNone:
			return tgaImageTypeUncompressed, nil
		case CompressionRLE:
			return tgaImageTypeRLE, nil
		case CompressionHuffman:
		}
	case FormatPropra:
		switch c {
		case CompressionNone:
			return 0, nil
		case CompressionRLE:
			return 1, nil
		case CompressionHuffman:
			return 2, nil
		}
	}
	return 0, errExitCodef(ExitCodeUnsupportedCompression, "%s cannot store %s data", f, c)
}

// compressionForCode maps a header's type code back to a codec
func (f Format) compressionForCode(code uint8) (Compression, error) {
	for _, c := range f.Compressions() {
		if want, err := f.compressionCode(c); err == nil && want == code {
			return c, nil
		}
	}
	return 0, errExitCodef(ExitCodeMalformedHeader, "%s: unsupported compression type %d", f, code)
}
