package propra

import "fmt"

// Pixel is one 24-bit pixel. Outside the codecs it always holds R, G, B.
type Pixel [3]byte

// ChannelOrder is the byte order of a pixel as stored on disk
type ChannelOrder int

const (
	OrderRGB ChannelOrder = iota
	OrderBGR
	OrderGBR
)

// FromRGB converts a canonical pixel into this channel order
func (o ChannelOrder) FromRGB(p Pixel) Pixel {
	switch o {
	case OrderBGR:
		return Pixel{p[2], p[1], p[0]}
	case OrderGBR:
		return Pixel{p[1], p[2], p[0]}
	default:
		return p
	}
}

// ToRGB converts a pixel stored in this channel order into canonical RGB
func (o ChannelOrder) ToRGB(p Pixel) Pixel {
	switch o {
	case OrderBGR:
		return Pixel{p[2], p[1], p[0]}
	case OrderGBR:
		return Pixel{p[2], p[0], p[1]}
	default:
		return p
	}
}

// PixelSource is a restartable sequence of width*height pixels in
// row-major order
type PixelSource interface {
	Width() int
	Height() int
	HasNext() bool
	Next() (Pixel, error)
	// Reset restarts the sequence from the first pixel
	Reset() error
}

// PixelSlice is an in-memory PixelSource
type PixelSlice struct {
	width, height int
	pixels        []Pixel
	pos           int
}

// NewPixelSlice wraps pixels; len(pixels) must equal width*height
func NewPixelSlice(width, height int, pixels []Pixel) (*PixelSlice, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height {
		return nil, fmt.Errorf("pixel slice: %d pixels do not form a %dx%d image", len(pixels), width, height)
	}
	return &PixelSlice{width: width, height: height, pixels: pixels}, nil
}

func (s *PixelSlice) Width() int    { return s.width }
func (s *PixelSlice) Height() int   { return s.height }
func (s *PixelSlice) HasNext() bool { return s.pos < len(s.pixels) }

func (s *PixelSlice) Next() (Pixel, error) {
	if s.pos >= len(s.pixels) {
		return Pixel{}, ErrPrematureEndOfStream
	}
	p := s.pixels[s.pos]
	s.pos++
	return p, nil
}

func (s *PixelSlice) Reset() error {
	s.pos = 0
	return nil
}

// ReadAllPixels drains src into memory
func ReadAllPixels(src PixelSource) ([]Pixel, error) {
	pixels := make([]Pixel, 0, src.Width()*src.Height())
	for src.HasNext() {
		p, err := src.Next()
		if err != nil {
			return nil, err
		}
		pixels = append(pixels, p)
	}
	return pixels, nil
}

// orderedSource presents a canonical source in a disk channel order
type orderedSource struct {
	PixelSource
	order ChannelOrder
}

func (s orderedSource) Next() (Pixel, error) {
	p, err := s.PixelSource.Next()
	if err != nil {
		return p, err
	}
	return s.order.FromRGB(p), nil
}

// peekingSource adds one pixel of lookahead to a PixelSource
type peekingSource struct {
	src    PixelSource
	next   Pixel
	peeked bool
}

func newPeekingSource(src PixelSource) *peekingSource {
	return &peekingSource{src: src}
}

func (s *peekingSource) HasNext() bool {
	return s.peeked || s.src.HasNext()
}

func (s *peekingSource) Next() (Pixel, error) {
	if s.peeked {
		s.peeked = false
		return s.next, nil
	}
	return s.src.Next()
}

// Peek returns the upcoming pixel without consuming it
func (s *peekingSource) Peek() (Pixel, bool, error) {
	if s.peeked {
		return s.next, true, nil
	}
	if !s.src.HasNext() {
		return Pixel{}, false, nil
	}
	p, err := s.src.Next()
	if err != nil {
		return Pixel{}, false, err
	}
	s.next = p
	s.peeked = true
	return p, true, nil
}
