package propra

import (
	"fmt"
	"os"
	"path/filepath"
)

// Options tunes file conversions
type Options struct {
	// BufferSize is the cursor buffer size; 0 selects DefaultBufferSize
	BufferSize int
}

// Convert reads the image at inputPath and writes it to outputPath. Both
// formats follow from the file extensions. A failed conversion removes the
// partially written output.
func Convert(inputPath, outputPath string, c Compression, opts Options) error {
	inFormat, err := FormatForPath(inputPath)
	if err != nil {
		return err
	}
	outFormat, err := FormatForPath(outputPath)
	if err != nil {
		return err
	}
	if filepath.Clean(inputPath) == filepath.Clean(outputPath) {
		return ErrExitCode(ExitCodeSyntaxError, "input and output must be different files")
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return errExitCodef(ExitCodeOsError, "open input: %v", err)
	}
	inSeg := NewSegment(in, opts.BufferSize)
	defer inSeg.Close()

	img, err := OpenImage(inSeg, inFormat)
	if err != nil {
		return fmt.Errorf("%s: %w", inputPath, err)
	}
	defer img.Close()

	out, err := os.OpenFile(outputPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errExitCodef(ExitCodeOsError, "open output: %v", err)
	}
	outSeg := NewSegment(out, opts.BufferSize)

	n, err := WriteImage(outSeg, outFormat, c, img)
	if closeErr := outSeg.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("%s: %w", outputPath, err)
	}
	log.Infof("converted %s (%s, %s) to %s (%d data bytes)",
		inputPath, inFormat, img.Compression(), outputPath, n)
	return nil
}
