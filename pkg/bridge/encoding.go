package bridge

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Supported encoding names for host helper output.
const (
	EncodingUTF8    = "utf8"
	EncodingCP1252  = "cp1252"
	EncodingCP437   = "cp437"
	EncodingCP850   = "cp850"
	EncodingUTF16LE = "utf16le"
	EncodingUTF16BE = "utf16be"
	EncodingAuto    = "auto"
)

// resolveEncoding maps a configured name to a golang.org/x/text Encoding.
// A nil Encoding means the bytes are already UTF-8.
func resolveEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case EncodingUTF8, "utf-8", "":
		return nil, nil
	case EncodingCP1252, "windows-1252", "latin1", "iso-8859-1":
		return charmap.Windows1252, nil
	case EncodingCP437, "ibm437":
		return charmap.CodePage437, nil
	case EncodingCP850, "ibm850":
		return charmap.CodePage850, nil
	case EncodingUTF16LE, "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	case EncodingUTF16BE, "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	default:
		return nil, fmt.Errorf("unsupported encoding: %q (supported: utf8, cp1252, cp437, cp850, utf16le, utf16be, auto)", name)
	}
}

// sniffEncoding guesses the encoding of data from a BOM, or from the NUL
// pattern of BOM-less UTF-16LE that some Windows tools emit when their
// output is not a console. A nil result means UTF-8.
func sniffEncoding(data []byte) encoding.Encoding {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return unicode.UTF8BOM
	}

	if len(data) >= 2 && len(data)%2 == 0 {
		for i := 1; i < len(data); i += 2 {
			if data[i] != 0 || data[i-1] == 0 {
				return nil
			}
		}
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	}
	return nil
}

// NewDecodingReader wraps r to decode from enc to UTF-8.
//
// If enc is empty or "utf8", r is returned unmodified.
// If enc is "auto", the first bytes are peeked and sniffed.
func NewDecodingReader(r io.Reader, enc string) (io.Reader, error) {
	if strings.ToLower(strings.TrimSpace(enc)) == EncodingAuto {
		return newSniffingReader(r)
	}

	e, err := resolveEncoding(enc)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return r, nil
	}
	return transform.NewReader(r, e.NewDecoder()), nil
}

// newSniffingReader peeks at a prefix of r and picks a decoder for it.
func newSniffingReader(r io.Reader) (io.Reader, error) {
	buf := make([]byte, 64)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read output prefix: %w", err)
	}
	peek := buf[:n]

	combined := io.MultiReader(bytes.NewReader(peek), r)
	e := sniffEncoding(peek)
	if e == nil {
		return combined, nil
	}
	return transform.NewReader(combined, e.NewDecoder()), nil
}

// DecodeOutput decodes a captured helper output to a UTF-8 string.
func DecodeOutput(data []byte, enc string) (string, error) {
	r, err := NewDecodingReader(bytes.NewReader(data), enc)
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to decode output as %s: %w", enc, err)
	}
	return string(out), nil
}
