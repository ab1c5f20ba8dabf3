package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/zurustar/segmidi/pkg/smfwriter"
)

func TestParseArgs_ValidArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name: "defaults",
			args: []string{},
			expected: Config{
				Notes:        true,
				TicksPerBeat: 480,
				Encoding:     "utf-8",
				MarkerKind:   smfwriter.MarkerMeta,
				LogLevel:     "info",
			},
		},
		{
			name: "input path",
			args: []string{"japonesa.json"},
			expected: Config{
				InputPath:    "japonesa.json",
				Notes:        true,
				TicksPerBeat: 480,
				Encoding:     "utf-8",
				LogLevel:     "info",
			},
		},
		{
			name: "no-notes after the input path",
			args: []string{"japonesa.json", "--no-notes"},
			expected: Config{
				InputPath:    "japonesa.json",
				Notes:        false,
				TicksPerBeat: 480,
				Encoding:     "utf-8",
				LogLevel:     "info",
			},
		},
		{
			name: "no-notes before the input path",
			args: []string{"--no-notes", "japonesa.json"},
			expected: Config{
				InputPath:    "japonesa.json",
				Notes:        false,
				TicksPerBeat: 480,
				Encoding:     "utf-8",
				LogLevel:     "info",
			},
		},
		{
			name: "output shorthand and resolution",
			args: []string{"song.json", "-o", "out/song.mid", "--ticks-per-beat", "960"},
			expected: Config{
				InputPath:    "song.json",
				OutputPath:   "out/song.mid",
				Notes:        true,
				TicksPerBeat: 960,
				Encoding:     "utf-8",
				LogLevel:     "info",
			},
		},
		{
			name: "encoding alias is canonicalized",
			args: []string{"--encoding", "SJIS", "song.json"},
			expected: Config{
				InputPath:    "song.json",
				Notes:        true,
				TicksPerBeat: 480,
				Encoding:     "shift_jis",
				LogLevel:     "info",
			},
		},
		{
			name: "marker kind and verify",
			args: []string{"song.json", "--marker-kind", "both", "--verify"},
			expected: Config{
				InputPath:    "song.json",
				Notes:        true,
				TicksPerBeat: 480,
				Encoding:     "utf-8",
				MarkerKind:   smfwriter.BothMeta,
				Verify:       true,
				LogLevel:     "info",
			},
		},
		{
			name: "log level with equals sign",
			args: []string{"--log-level=DEBUG", "song.json"},
			expected: Config{
				InputPath:    "song.json",
				Notes:        true,
				TicksPerBeat: 480,
				Encoding:     "utf-8",
				LogLevel:     "debug",
			},
		},
		{
			name: "log level shorthand",
			args: []string{"-l", "error", "song.json"},
			expected: Config{
				InputPath:    "song.json",
				Notes:        true,
				TicksPerBeat: 480,
				Encoding:     "utf-8",
				LogLevel:     "error",
			},
		},
		{
			name: "help",
			args: []string{"-h"},
			expected: Config{
				Notes:        true,
				TicksPerBeat: 480,
				Encoding:     "utf-8",
				LogLevel:     "info",
				ShowHelp:     true,
			},
		},
		{
			name: "version",
			args: []string{"--version"},
			expected: Config{
				Notes:        true,
				TicksPerBeat: 480,
				Encoding:     "utf-8",
				LogLevel:     "info",
				ShowVersion:  true,
			},
		},
		{
			name: "path starting with a dash after double dash",
			args: []string{"--no-notes", "--", "-odd.json"},
			expected: Config{
				InputPath:    "-odd.json",
				Notes:        false,
				TicksPerBeat: 480,
				Encoding:     "utf-8",
				LogLevel:     "info",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if *config != tt.expected {
				t.Errorf("ParseArgs(%q) = %+v, want %+v", tt.args, *config, tt.expected)
			}
		})
	}
}

func TestParseArgs_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--headless", "song.json"}},
		{"invalid log level", []string{"--log-level", "trace"}},
		{"zero ticks per beat", []string{"--ticks-per-beat", "0"}},
		{"ticks per beat too large", []string{"--ticks-per-beat", "40000"}},
		{"ticks per beat not a number", []string{"--ticks-per-beat", "many"}},
		{"unknown encoding", []string{"--encoding", "ebcdic"}},
		{"unknown marker kind", []string{"--marker-kind", "cue"}},
		{"two inputs", []string{"a.json", "b.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	config, err := ParseArgs(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := config.Validate(); !errors.Is(err, ErrNoInput) {
		t.Errorf("Validate() = %v, want ErrNoInput", err)
	}

	config.InputPath = "song.json"
	if err := config.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestReorderArgs(t *testing.T) {
	got := reorderArgs([]string{"song.json", "--no-notes", "-o", "x.mid", "--verify"})
	want := []string{"--no-notes", "-o", "x.mid", "--verify", "--", "song.json"}

	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("reorderArgs() = %q, want %q", got, want)
	}
}

func TestPrintHelp(t *testing.T) {
	var buf bytes.Buffer
	PrintHelp(&buf)

	out := buf.String()
	for _, want := range []string{"Usage:", "segmidi [options] <input.json>", "--no-notes", "shift_jis"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}
