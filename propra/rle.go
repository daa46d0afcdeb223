package propra

import (
	"io"
)

const (
	maxRunLength  = 128
	rleRepeatFlag = 0x80
)

// encodeRLE writes src as repeat and literal runs. No run crosses the end
// of a scanline.
func encodeRLE(src PixelSource, w io.Writer) error {
	width := src.Width()
	ps := newPeekingSource(src)

	advance := func() (Pixel, bool, error) {
		if !ps.HasNext() {
			return Pixel{}, false, nil
		}
		p, err := ps.Next()
		return p, err == nil, err
	}

	out := make([]byte, 0, 1+maxRunLength*3)
	col := 0
	cur, ok, err := advance()
	for ok {
		rowLeft := width - col // pixels from cur to the end of the scanline
		next, hasNext, err := ps.Peek()
		if err != nil {
			return err
		}

		out = out[:0]
		count := 0
		if hasNext && rowLeft > 1 && next == cur {
			run := cur
			for ok && cur == run && count < maxRunLength && count < rowLeft {
				count++
				if cur, ok, err = advance(); err != nil {
					return err
				}
			}
			out = append(out, rleRepeatFlag|byte(count-1))
			out = append(out, run[:]...)
		} else {
			out = append(out, 0)
			for ok && count < maxRunLength && count < rowLeft {
				if count > 0 && count+1 < rowLeft {
					// stop where a repeat run begins
					n, hn, err := ps.Peek()
					if err != nil {
						return err
					}
					if hn && n == cur {
						break
					}
				}
				out = append(out, cur[:]...)
				count++
				if cur, ok, err = advance(); err != nil {
					return err
				}
			}
			out[0] = byte(count - 1)
		}
		if _, err := w.Write(out); err != nil {
			return err
		}
		col = (col + count) % width
	}
	return err
}

// rleDecoder replays runs until the image's pixel count is reached
type rleDecoder struct {
	r         byteStream
	pixelLeft int64 // pixels of the image not yet announced by a control byte
	runLeft   int
	repeat    bool
	pixel     Pixel
}

func newRLEDecoder(r byteStream, numPixels int64) *rleDecoder {
	return &rleDecoder{r: r, pixelLeft: numPixels}
}

func (d *rleDecoder) ReadPixel() (Pixel, error) {
	if d.runLeft == 0 {
		control, err := d.r.ReadByte()
		if err != nil {
			return Pixel{}, endOfStream(err)
		}
		d.runLeft = int(control&^rleRepeatFlag) + 1
		d.repeat = control&rleRepeatFlag != 0
		if int64(d.runLeft) > d.pixelLeft {
			return Pixel{}, errExitCodef(ExitCodeLengthMismatch,
				"rle run of %d pixels exceeds the %d pixels left in the image", d.runLeft, d.pixelLeft)
		}
		d.pixelLeft -= int64(d.runLeft)
		if d.repeat {
			if _, err := io.ReadFull(d.r, d.pixel[:]); err != nil {
				return Pixel{}, endOfStream(err)
			}
		}
	}

	d.runLeft--
	if d.repeat {
		return d.pixel, nil
	}
	var p Pixel
	if _, err := io.ReadFull(d.r, p[:]); err != nil {
		return p, endOfStream(err)
	}
	return p, nil
}
