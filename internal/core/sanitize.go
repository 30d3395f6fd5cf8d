package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrFileTooLarge is returned by ReadText when the input exceeds its limit.
var ErrFileTooLarge = errors.New("file too large")

// ErrEmptyFile is returned by ReadText for zero-byte input.
var ErrEmptyFile = errors.New("empty file")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadText buffers r, which must not exceed maxBytes (<= 0 means unlimited),
// and returns it as sanitized UTF-8 text ready for ParseCSV.
func ReadText(r io.Reader, maxBytes int64) (string, error) {
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read csv: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, maxBytes)
	}
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	return SanitizeText(data), nil
}

// SanitizeText drops a leading UTF-8 BOM and replaces invalid UTF-8 bytes
// with U+FFFD.
func SanitizeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	return string(sanitizeUTF8(data))
}

// isAllASCII returns true if all bytes are ASCII (< 128).
func isAllASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

func sanitizeUTF8(data []byte) []byte {
	if isAllASCII(data) || utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
		} else {
			buf.Write(data[:size])
		}
		data = data[size:]
	}

	return buf.Bytes()
}
