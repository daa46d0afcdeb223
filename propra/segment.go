package propra

import (
	"bufio"
	"fmt"
	"io"
)

// DefaultBufferSize is the cursor buffer size used when none is given
const DefaultBufferSize = 64 * 1024

// Segment hands out buffered cursors over one random-access file. At most
// one cursor is live at a time; the owner of the segment closes the file.
type Segment struct {
	file       io.ReadSeeker
	bufferSize int
	active     interface{} // *ReadCursor, *WriteCursor or nil
}

// NewSegment wraps file. Write cursors need file to implement io.Writer.
func NewSegment(file io.ReadSeeker, bufferSize int) *Segment {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Segment{file: file, bufferSize: bufferSize}
}

func (s *Segment) checkIdle() error {
	if s.active != nil {
		return ErrCursorOpen
	}
	return nil
}

func (s *Segment) seek(offset int64) error {
	if offset < 0 {
		return fmt.Errorf("segment: negative offset %d", offset)
	}
	if _, err := s.file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("segment: seek to %d: %w", offset, err)
	}
	return nil
}

// OpenRead opens a read cursor at offset
func (s *Segment) OpenRead(offset int64) (*ReadCursor, error) {
	if err := s.checkIdle(); err != nil {
		return nil, err
	}
	if err := s.seek(offset); err != nil {
		return nil, err
	}
	c := &ReadCursor{seg: s, r: bufio.NewReaderSize(s.file, s.bufferSize), start: offset}
	s.active = c
	return c, nil
}

// OpenWrite opens a write cursor at offset
func (s *Segment) OpenWrite(offset int64) (*WriteCursor, error) {
	if err := s.checkIdle(); err != nil {
		return nil, err
	}
	w, ok := s.file.(io.Writer)
	if !ok {
		return nil, fmt.Errorf("segment: file is not writable")
	}
	if err := s.seek(offset); err != nil {
		return nil, err
	}
	c := &WriteCursor{seg: s, w: bufio.NewWriterSize(w, s.bufferSize), start: offset}
	s.active = c
	return c, nil
}

// Truncate cuts the file to size when the file supports it, dropping
// leftovers of a longer earlier file
func (s *Segment) Truncate(size int64) error {
	if err := s.checkIdle(); err != nil {
		return err
	}
	t, ok := s.file.(interface{ Truncate(int64) error })
	if !ok {
		return nil
	}
	if err := t.Truncate(size); err != nil {
		return fmt.Errorf("segment: truncate to %d: %w", size, err)
	}
	return nil
}

// Close closes the file if it is an io.Closer. A cursor still open at this
// point is abandoned without flushing.
func (s *Segment) Close() error {
	s.active = nil
	if c, ok := s.file.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ReadCursor reads from the file starting at a fixed offset
type ReadCursor struct {
	seg      *Segment
	r        *bufio.Reader
	start    int64
	consumed int64
	released bool
}

func (c *ReadCursor) Read(p []byte) (int, error) {
	if c.released {
		return 0, ErrCursorReleased
	}
	n, err := c.r.Read(p)
	c.consumed += int64(n)
	return n, err
}

func (c *ReadCursor) ReadByte() (byte, error) {
	if c.released {
		return 0, ErrCursorReleased
	}
	b, err := c.r.ReadByte()
	if err == nil {
		c.consumed++
	}
	return b, err
}

// Offset returns the file offset of the next byte to be read
func (c *ReadCursor) Offset() int64 {
	return c.start + c.consumed
}

// AtEOF reports whether no byte follows the current position
func (c *ReadCursor) AtEOF() (bool, error) {
	if c.released {
		return false, ErrCursorReleased
	}
	_, err := c.r.Peek(1)
	if err == io.EOF {
		return true, nil
	}
	return false, err
}

// Release gives the segment back for the next cursor
func (c *ReadCursor) Release() error {
	if c.released || c.seg.active != c {
		return ErrCursorReleased
	}
	c.released = true
	c.seg.active = nil
	return nil
}

// WriteCursor writes to the file starting at a fixed offset
type WriteCursor struct {
	seg      *Segment
	w        *bufio.Writer
	start    int64
	written  int64
	released bool
}

func (c *WriteCursor) Write(p []byte) (int, error) {
	if c.released {
		return 0, ErrCursorReleased
	}
	n, err := c.w.Write(p)
	c.written += int64(n)
	return n, err
}

func (c *WriteCursor) WriteByte(b byte) error {
	if c.released {
		return ErrCursorReleased
	}
	if err := c.w.WriteByte(b); err != nil {
		return err
	}
	c.written++
	return nil
}

// Written returns the number of bytes written through this cursor
func (c *WriteCursor) Written() int64 {
	return c.written
}

// Offset returns the file offset of the next byte to be written
func (c *WriteCursor) Offset() int64 {
	return c.start + c.written
}

// Release flushes buffered output and gives the segment back. The file
// stays open.
func (c *WriteCursor) Release() error {
	if c.released || c.seg.active != c {
		return ErrCursorReleased
	}
	c.released = true
	c.seg.active = nil
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("segment: flush at offset %d: %w", c.Offset(), err)
	}
	return nil
}
