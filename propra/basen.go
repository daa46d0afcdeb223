package propra

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Base32HexAlphabet is the alphabet used for --encode-base-32
const Base32HexAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUV"

// Suffixes appended to Base-N encoded files
const (
	Base32Suffix = ".base-32"
	BaseNSuffix  = ".base-n"
)

// Alphabet maps groups of log2(len) bits to one character each. Only
// alphabets of 2, 4, 8, 16, 32 or 64 distinct single-byte characters are
// supported.
type Alphabet struct {
	symbols string
	bits    uint
	index   [256]int16
}

// NewAlphabet validates symbols and builds the reverse lookup
func NewAlphabet(symbols string) (*Alphabet, error) {
	a := &Alphabet{symbols: symbols}
	switch len(symbols) {
	case 2:
		a.bits = 1
	case 4:
		a.bits = 2
	case 8:
		a.bits = 3
	case 16:
		a.bits = 4
	case 32:
		a.bits = 5
	case 64:
		a.bits = 6
	default:
		return nil, errExitCodef(ExitCodeUnsupportedAlphabet,
			"alphabet %q has %d characters, supported are 2, 4, 8, 16, 32 and 64", symbols, len(symbols))
	}

	for i := range a.index {
		a.index[i] = -1
	}
	for i := 0; i < len(symbols); i++ {
		c := symbols[i]
		if c == '\n' || c == '\r' {
			return nil, ErrExitCode(ExitCodeUnsupportedAlphabet, "alphabet must not contain line breaks")
		}
		if a.index[c] >= 0 {
			return nil, errExitCodef(ExitCodeUnsupportedAlphabet, "alphabet repeats the character %q", c)
		}
		a.index[c] = int16(i)
	}
	return a, nil
}

func (a *Alphabet) String() string {
	return a.symbols
}

// Bits returns the number of bits one character stands for
func (a *Alphabet) Bits() uint {
	return a.bits
}

// Encode writes one character per group of bits read from src. A final
// partial group is padded with zero bits.
func (a *Alphabet) Encode(dst io.Writer, src io.Reader) error {
	bits := NewBitReader(src)
	out := bufio.NewWriter(dst)
	for {
		v, err := bits.ReadBits(a.bits)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := out.WriteByte(a.symbols[v]); err != nil {
			return err
		}
	}
	return out.Flush()
}

// Decode turns the characters read from src back into bytes. Line breaks
// are skipped and bits of an incomplete final byte are dropped.
func (a *Alphabet) Decode(dst io.Writer, src io.Reader) error {
	in := bufio.NewReader(src)
	out := bufio.NewWriter(dst)
	bits := NewBitWriter(out)
	for {
		c, err := in.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if c == '\n' || c == '\r' {
			continue
		}
		v := a.index[c]
		if v < 0 {
			return errExitCodef(ExitCodeInvalidSymbol, "character %q is not part of the alphabet", c)
		}
		if err := bits.WriteBits(uint32(v), a.bits); err != nil {
			return err
		}
	}
	return out.Flush()
}

// EncodeBase32File writes path+".base-32" holding path in base32hex
func EncodeBase32File(path string, alphabet *Alphabet) (string, error) {
	return encodeFile(path, path+Base32Suffix, alphabet, false)
}

// EncodeBaseNFile writes path+".base-n", whose first line is the alphabet
func EncodeBaseNFile(path string, alphabet *Alphabet) (string, error) {
	return encodeFile(path, path+BaseNSuffix, alphabet, true)
}

// DecodeBase32File decodes a ".base-32" file next to it, without the suffix
func DecodeBase32File(path string, alphabet *Alphabet) (string, error) {
	return decodeFile(path, Base32Suffix, alphabet)
}

// DecodeBaseNFile decodes a ".base-n" file using the alphabet on its first line
func DecodeBaseNFile(path string) (string, error) {
	return decodeFile(path, BaseNSuffix, nil)
}

func encodeFile(inputPath, outputPath string, alphabet *Alphabet, withHeader bool) (string, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return "", errExitCodef(ExitCodeOsError, "open input: %v", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return "", errExitCodef(ExitCodeOsError, "create output: %v", err)
	}
	if withHeader {
		_, err = io.WriteString(out, alphabet.String()+"\n")
	}
	if err == nil {
		err = alphabet.Encode(out, in)
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("base-%d encode %s: %w", 1<<alphabet.bits, inputPath, err)
	}
	log.Debugf("encoded %s to %s", inputPath, outputPath)
	return outputPath, nil
}

// decodeFile reads the alphabet from the first line when alphabet is nil
func decodeFile(inputPath, suffix string, alphabet *Alphabet) (string, error) {
	if !strings.HasSuffix(inputPath, suffix) || filepath.Base(inputPath) == suffix {
		return "", errExitCodef(ExitCodeSyntaxError, "%s does not end in %s", inputPath, suffix)
	}
	outputPath := strings.TrimSuffix(inputPath, suffix)

	f, err := os.Open(inputPath)
	if err != nil {
		return "", errExitCodef(ExitCodeOsError, "open input: %v", err)
	}
	defer f.Close()
	in := bufio.NewReader(f)

	if alphabet == nil {
		line, err := in.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		if alphabet, err = NewAlphabet(strings.TrimRight(line, "\r\n")); err != nil {
			return "", err
		}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return "", errExitCodef(ExitCodeOsError, "create output: %v", err)
	}
	err = alphabet.Decode(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("base-%d decode %s: %w", 1<<alphabet.bits, inputPath, err)
	}
	log.Debugf("decoded %s to %s", inputPath, outputPath)
	return outputPath, nil
}
