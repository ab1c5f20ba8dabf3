package textenc

import (
	"errors"
	"testing"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "utf-8"},
		{"UTF-8", "utf-8"},
		{"utf8", "utf-8"},
		{"Shift_JIS", "shift_jis"},
		{"sjis", "shift_jis"},
		{"latin1", "latin1"},
		{"ISO-8859-1", "latin1"},
	}

	for _, tt := range tests {
		got, err := Canonical(tt.name)
		if err != nil {
			t.Errorf("Canonical(%q): unexpected error: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}

	if _, err := Canonical("ebcdic"); !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("Canonical(\"ebcdic\") error = %v, want ErrUnknownEncoding", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
		text     string
		wantLen  int
	}{
		{"ascii utf-8", "utf-8", "chorus", 6},
		{"japanese utf-8", "utf-8", "サビ", 6},
		{"japanese shift_jis", "shift_jis", "サビ", 4},
		{"accented latin1", "latin1", "café", 4},
		{"ascii latin1", "latin1", "intro", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := Encode(tt.encoding, tt.text)
			if err != nil {
				t.Fatalf("Encode: unexpected error: %v", err)
			}
			if len(encoded) != tt.wantLen {
				t.Errorf("encoded length = %d, want %d", len(encoded), tt.wantLen)
			}

			decoded, err := Decode(tt.encoding, encoded)
			if err != nil {
				t.Fatalf("Decode: unexpected error: %v", err)
			}
			if decoded != tt.text {
				t.Errorf("round trip = %q, want %q", decoded, tt.text)
			}
		})
	}
}

func TestEncode_Unencodable(t *testing.T) {
	_, err := Encode("latin1", "サビ")
	if !errors.Is(err, ErrUnencodable) {
		t.Errorf("Encode error = %v, want ErrUnencodable", err)
	}
}

func TestEncode_UnknownEncoding(t *testing.T) {
	_, err := Encode("klingon", "intro")
	if !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("Encode error = %v, want ErrUnknownEncoding", err)
	}
}
