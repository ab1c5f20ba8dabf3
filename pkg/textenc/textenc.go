// Package textenc converts marker labels to the byte encoding written into meta events.
package textenc

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Default is the encoding used when none is configured.
const Default = "utf-8"

var (
	// ErrUnknownEncoding is returned for an encoding name that is not supported.
	ErrUnknownEncoding = errors.New("unknown text encoding")

	// ErrUnencodable is returned when a label contains characters the encoding cannot represent.
	ErrUnencodable = errors.New("text cannot be represented in encoding")
)

// Canonical returns the canonical name for an encoding alias (case-insensitive).
func Canonical(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return "utf-8", nil
	case "shift_jis", "shift-jis", "sjis":
		return "shift_jis", nil
	case "latin1", "latin-1", "iso-8859-1":
		return "latin1", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownEncoding, name)
}

// Lookup returns the encoding registered under name.
func Lookup(name string) (encoding.Encoding, error) {
	canon, err := Canonical(name)
	if err != nil {
		return nil, err
	}
	switch canon {
	case "shift_jis":
		return japanese.ShiftJIS, nil
	case "latin1":
		return charmap.ISO8859_1, nil
	}
	return unicode.UTF8, nil
}

// Names lists the canonical encoding names for help output.
func Names() []string {
	return []string{"utf-8", "shift_jis", "latin1"}
}

// Encode converts the UTF-8 string s into the named encoding. The result holds raw bytes.
func Encode(name, s string) (string, error) {
	canon, err := Canonical(name)
	if err != nil {
		return "", err
	}
	if canon == Default {
		return s, nil
	}
	enc, err := Lookup(canon)
	if err != nil {
		return "", err
	}

	out, _, err := transform.String(enc.NewEncoder(), s)
	if err != nil {
		return "", fmt.Errorf("%w: %q as %s: %v", ErrUnencodable, s, name, err)
	}
	return out, nil
}

// Decode converts raw bytes in the named encoding back to UTF-8.
func Decode(name, s string) (string, error) {
	canon, err := Canonical(name)
	if err != nil {
		return "", err
	}
	if canon == Default {
		return s, nil
	}
	enc, err := Lookup(canon)
	if err != nil {
		return "", err
	}

	out, _, err := transform.String(enc.NewDecoder(), s)
	if err != nil {
		return "", fmt.Errorf("failed to decode text as %s: %w", name, err)
	}
	return out, nil
}
