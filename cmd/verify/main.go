package main

import (
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/leijurv/propra_go/propra"
)

// target is one output format and compression a corpus image is converted to
type target struct {
	format      propra.Format
	compression propra.Compression
}

func (t target) String() string {
	return fmt.Sprintf("%s/%s", t.format, t.compression)
}

var targets = []target{
	{propra.FormatTGA, propra.CompressionNone},
	{propra.FormatTGA, propra.CompressionRLE},
	{propra.FormatTGA, propra.CompressionAuto},
	{propra.FormatPropra, propra.CompressionNone},
	{propra.FormatPropra, propra.CompressionRLE},
	{propra.FormatPropra, propra.CompressionHuffman},
	{propra.FormatPropra, propra.CompressionAuto},
}

type testResult struct {
	decodeOK     bool
	roundtripOK  int
	roundtripBad int
	errMsgs      []string
	originalSize int64
	bestSize     int64 // smallest converted file
}

func main() {
	dirPath := flag.String("dir", "testdata", "Directory containing .tga/.propra files (optionally .zst compressed)")
	limit := flag.Int("limit", 0, "Limit number of files to test (0 = no limit)")
	workers := flag.Int("workers", runtime.NumCPU(), "Number of parallel workers")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	entries, err := os.ReadDir(*dirPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading directory: %v\n", err)
		os.Exit(1)
	}

	var imageFiles []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := propra.FormatForPath(strings.TrimSuffix(e.Name(), ".zst")); err == nil {
			imageFiles = append(imageFiles, e.Name())
		}
	}
	if *limit > 0 && len(imageFiles) > *limit {
		imageFiles = imageFiles[:*limit]
	}

	tmpDir, err := os.MkdirTemp("", "propra-verify-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(tmpDir)

	fmt.Printf("Testing %d files against %d targets with %d workers...\n", len(imageFiles), len(targets), *workers)

	var decodePass, decodeFail int64
	var roundtripPass, roundtripFail int64
	var processed int64
	var totalOriginalBytes, totalBestBytes int64
	var mu sync.Mutex
	var failures []string

	jobs := make(chan string, len(imageFiles))
	var wg sync.WaitGroup

	done := make(chan struct{})
	var statusWg sync.WaitGroup
	statusWg.Add(1)
	go func() {
		defer statusWg.Done()
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fmt.Printf("Progress: %d/%d (decode: %d ok, %d failed; roundtrip: %d ok, %d failed)\n",
					atomic.LoadInt64(&processed), len(imageFiles),
					atomic.LoadInt64(&decodePass), atomic.LoadInt64(&decodeFail),
					atomic.LoadInt64(&roundtripPass), atomic.LoadInt64(&roundtripFail))
			case <-done:
				return
			}
		}
	}()

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			workDir := filepath.Join(tmpDir, fmt.Sprintf("w%d", worker))
			if err := os.MkdirAll(workDir, 0755); err != nil {
				fmt.Fprintf(os.Stderr, "Error creating work dir: %v\n", err)
				return
			}
			for filename := range jobs {
				result := testFile(*dirPath, filename, workDir, *verbose)
				atomic.AddInt64(&processed, 1)
				if result.decodeOK {
					atomic.AddInt64(&decodePass, 1)
				} else {
					atomic.AddInt64(&decodeFail, 1)
				}
				atomic.AddInt64(&roundtripPass, int64(result.roundtripOK))
				atomic.AddInt64(&roundtripFail, int64(result.roundtripBad))
				if result.roundtripBad == 0 && result.decodeOK {
					atomic.AddInt64(&totalOriginalBytes, result.originalSize)
					atomic.AddInt64(&totalBestBytes, result.bestSize)
				}
				if len(result.errMsgs) > 0 {
					mu.Lock()
					failures = append(failures, result.errMsgs...)
					mu.Unlock()
				}
			}
		}(i)
	}

	for _, f := range imageFiles {
		jobs <- f
	}
	close(jobs)
	wg.Wait()
	close(done)
	statusWg.Wait()

	fmt.Println()
	fmt.Printf("Decode:    %d passed, %d failed\n", decodePass, decodeFail)
	fmt.Printf("Roundtrip: %d passed, %d failed\n", roundtripPass, roundtripFail)
	if totalOriginalBytes > 0 {
		fmt.Printf("Best size ratio: %.4f (best %d bytes / original %d bytes)\n",
			float64(totalBestBytes)/float64(totalOriginalBytes), totalBestBytes, totalOriginalBytes)
	}
	if len(failures) > 0 && len(failures) <= 50 {
		fmt.Println("\nFailures:")
		for _, f := range failures {
			fmt.Println("  " + f)
		}
	}
	if decodeFail > 0 || roundtripFail > 0 {
		os.Exit(1)
	}
}

func testFile(dirPath, filename, workDir string, verbose bool) testResult {
	result := testResult{}
	fail := func(format string, args ...interface{}) testResult {
		result.errMsgs = append(result.errMsgs, filename+": "+fmt.Sprintf(format, args...))
		return result
	}

	srcPath, err := materialize(filepath.Join(dirPath, filename), workDir)
	if err != nil {
		return fail("read error: %v", err)
	}
	info, err := os.Stat(srcPath)
	if err != nil {
		return fail("stat error: %v", err)
	}
	result.originalSize = info.Size()

	expectedHash, err := pixelHash(srcPath)
	if err != nil {
		return fail("decode error: %v", err)
	}
	result.decodeOK = true
	if verbose {
		fmt.Printf("DECODE PASS: %s (%s)\n", filename, expectedHash[:16])
	}

	for i, t := range targets {
		outPath := filepath.Join(workDir, fmt.Sprintf("out%d.%s", i, t.format))
		if err := propra.Convert(srcPath, outPath, t.compression, propra.Options{}); err != nil {
			result.roundtripBad++
			fail("%s: convert error: %v", t, err)
			continue
		}
		actualHash, err := pixelHash(outPath)
		if err != nil {
			result.roundtripBad++
			fail("%s: roundtrip decode error: %v", t, err)
			continue
		}
		if actualHash != expectedHash {
			result.roundtripBad++
			fail("%s: pixel hash mismatch (got %s)", t, actualHash[:16]+"...")
			continue
		}
		if info, err := os.Stat(outPath); err == nil && (result.bestSize == 0 || info.Size() < result.bestSize) {
			result.bestSize = info.Size()
		}
		result.roundtripOK++
		if verbose {
			fmt.Printf("ROUNDTRIP PASS: %s -> %s\n", filename, t)
		}
		os.Remove(outPath)
	}
	return result
}

// materialize returns a path holding the uncompressed image. Files ending
// in .zst are decompressed into workDir first.
func materialize(path, workDir string) (string, error) {
	if !strings.HasSuffix(path, ".zst") {
		return path, nil
	}
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	dec, err := zstd.NewReader(in, zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
	if err != nil {
		return "", err
	}
	defer dec.Close()

	outPath := filepath.Join(workDir, "src-"+strings.TrimSuffix(filepath.Base(path), ".zst"))
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	_, err = io.Copy(out, dec)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("zstd: %w", err)
	}
	return outPath, nil
}

// pixelHash decodes an image and hashes its canonical RGB pixels
func pixelHash(path string) (string, error) {
	format, err := propra.FormatForPath(path)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	seg := propra.NewSegment(f, 0)
	defer seg.Close()

	img, err := propra.OpenImage(seg, format)
	if err != nil {
		return "", err
	}
	defer img.Close()

	h := sha256.New()
	fmt.Fprintf(h, "%dx%d:", img.Width(), img.Height())
	for img.HasNext() {
		p, err := img.Next()
		if err != nil {
			return "", err
		}
		h.Write(p[:])
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
