package propra

import (
	"errors"
	"fmt"
)

// ExitCode represents categorized error codes
type ExitCode int

const (
	ExitCodeMalformedHeader        ExitCode = 2
	ExitCodeLengthMismatch         ExitCode = 3
	ExitCodeChecksumMismatch       ExitCode = 4
	ExitCodePrematureEndOfStream   ExitCode = 5
	ExitCodeUnsupportedAlphabet    ExitCode = 6
	ExitCodeCursorDiscipline       ExitCode = 7
	ExitCodeUnsupportedFormat      ExitCode = 8
	ExitCodeUnsupportedCompression ExitCode = 9
	ExitCodeInvalidSymbol          ExitCode = 10
	ExitCodeOsError                ExitCode = 33
	ExitCodeSyntaxError            ExitCode = 1006
)

func (e ExitCode) String() string {
	switch e {
	case ExitCodeMalformedHeader:
		return "MalformedHeader"
	case ExitCodeLengthMismatch:
		return "LengthMismatch"
	case ExitCodeChecksumMismatch:
		return "ChecksumMismatch"
	case ExitCodePrematureEndOfStream:
		return "PrematureEndOfStream"
	case ExitCodeUnsupportedAlphabet:
		return "UnsupportedAlphabet"
	case ExitCodeCursorDiscipline:
		return "CursorDiscipline"
	case ExitCodeUnsupportedFormat:
		return "UnsupportedFormat"
	case ExitCodeUnsupportedCompression:
		return "UnsupportedCompression"
	case ExitCodeInvalidSymbol:
		return "InvalidSymbol"
	case ExitCodeOsError:
		return "OsError"
	case ExitCodeSyntaxError:
		return "SyntaxError"
	default:
		return fmt.Sprintf("ExitCode(%d)", int(e))
	}
}

// ConvertError is an error raised while reading, writing or converting an image
type ConvertError struct {
	Code    ExitCode
	Message string
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrExitCode creates a ConvertError and returns it
func ErrExitCode(code ExitCode, message string) error {
	return &ConvertError{Code: code, Message: message}
}

// errExitCodef is ErrExitCode with formatting
func errExitCodef(code ExitCode, format string, args ...interface{}) error {
	return &ConvertError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsConvertError checks if an error is a ConvertError and returns it
func IsConvertError(err error) (*ConvertError, bool) {
	var convErr *ConvertError
	if errors.As(err, &convErr) {
		return convErr, true
	}
	return nil, false
}

// HasExitCode reports whether err wraps a ConvertError with the given code
func HasExitCode(err error, code ExitCode) bool {
	convErr, ok := IsConvertError(err)
	return ok && convErr.Code == code
}

// Common errors
var (
	ErrPrematureEndOfStream = &ConvertError{Code: ExitCodePrematureEndOfStream, Message: "unexpected end of stream"}
	ErrCursorOpen           = &ConvertError{Code: ExitCodeCursorDiscipline, Message: "another cursor is still open"}
	ErrCursorReleased       = &ConvertError{Code: ExitCodeCursorDiscipline, Message: "cursor already released"}
)
