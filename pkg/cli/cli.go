// Package cli はsegmidiのコマンドライン引数を解析する
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/zurustar/segmidi/pkg/smfwriter"
	"github.com/zurustar/segmidi/pkg/textenc"
	"github.com/zurustar/segmidi/pkg/timing"
)

// ErrNoInput 入力ファイルが指定されていない
var ErrNoInput = errors.New("input JSON file is required")

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	InputPath    string               // 入力JSONファイルのパス
	OutputPath   string               // 出力先（空の場合は入力と同じ場所に.midで出力）
	Notes        bool                 // セグメントごとにノートを出力
	TicksPerBeat int                  // 4分音符あたりのティック数
	Encoding     string               // マーカー文字列のエンコーディング
	MarkerKind   smfwriter.MarkerKind // ラベルに使うメタイベント
	Verify       bool                 // 書き出したファイルを読み直して検証
	LogLevel     string               // ログレベル（debug, info, warn, error）
	ShowHelp     bool                 // ヘルプ表示フラグ
	ShowVersion  bool                 // バージョン表示フラグ
}

// boolFlags 値を取らないフラグ
var boolFlags = map[string]bool{
	"no-notes": true,
	"verify":   true,
	"help":     true,
	"h":        true,
	"version":  true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
// フラグは入力ファイルの前後どちらに置いてもよい
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("segmidi", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{}

	var noNotes bool
	var markerKind string
	fs.BoolVar(&noNotes, "no-notes", false, "マーカーのみ出力（ノートなし）")
	fs.StringVar(&config.OutputPath, "output", "", "出力MIDIファイル")
	fs.StringVar(&config.OutputPath, "o", "", "出力MIDIファイル（短縮形）")
	fs.IntVar(&config.TicksPerBeat, "ticks-per-beat", timing.DefaultTicksPerBeat, "4分音符あたりのティック数")
	fs.StringVar(&config.Encoding, "encoding", textenc.Default, "マーカー文字列のエンコーディング")
	fs.StringVar(&markerKind, "marker-kind", "marker", "ラベルのメタイベント（marker, text, both）")
	fs.BoolVar(&config.Verify, "verify", false, "書き出したファイルを読み直して検証")
	fs.StringVar(&config.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "info", "ログレベル（短縮形）")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")
	fs.BoolVar(&config.ShowVersion, "version", false, "バージョンを表示")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	config.Notes = !noNotes
	config.LogLevel = strings.ToLower(config.LogLevel)

	// 分解能の検証
	if config.TicksPerBeat < 1 || config.TicksPerBeat > timing.MaxTicksPerBeat {
		return nil, fmt.Errorf("ticks-per-beat must be between 1 and %d, got %d", timing.MaxTicksPerBeat, config.TicksPerBeat)
	}

	encoding, err := textenc.Canonical(config.Encoding)
	if err != nil {
		return nil, err
	}
	config.Encoding = encoding

	config.MarkerKind, err = smfwriter.ParseMarkerKind(markerKind)
	if err != nil {
		return nil, err
	}

	// ログレベルの検証
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	// 位置引数（入力JSONファイル）
	switch fs.NArg() {
	case 0:
	case 1:
		config.InputPath = fs.Arg(0)
	default:
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args()[1:], " "))
	}

	return config, nil
}

// Validate 変換を実行する場合にのみ必要な設定を検証
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return ErrNoInput
	}
	return nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--" 以降はすべて位置引数
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}

		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)

			name := strings.TrimLeft(arg, "-")
			if strings.Contains(name, "=") || boolFlags[name] {
				continue
			}

			// 値を取るフラグは次の引数も追加
			if i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}

	// "-" で始まる位置引数をフラグと誤認しないよう "--" を挟む
	flags = append(flags, "--")
	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `segmidi - song structure to MIDI markers

Usage:
  segmidi [options] <input.json>

Arguments:
  input.json    楽曲構成のJSONファイル: {"bpm": 120, "segments": [{"label": "intro", "start": 0, "end": 10}, ...]}
                MIDIファイルは同じディレクトリに拡張子を.midに変えて出力

Options:
  --no-notes                  マーカーのみ出力（デフォルト: セグメントごとにノートも出力）
  -o, --output <path>         出力MIDIファイル（存在しないディレクトリは作成）
  --ticks-per-beat <n>        4分音符あたりのティック数（デフォルト: %d）
  --encoding <name>           マーカー文字列のエンコーディング: %s（デフォルト: %s）
  --marker-kind <kind>        ラベルのイベント: marker, text, both（デフォルト: marker）
  --verify                    書き出したファイルを読み直して検証
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --version                   バージョンを表示
  -h, --help                  このヘルプを表示

Examples:
  segmidi japonesa.json                  japonesa.midを出力
  segmidi japonesa.json --no-notes       マーカーのみ出力
  segmidi --encoding shift_jis --marker-kind both -o out/song.mid song.json
                                         Shift_JISのマーカーとテキストをout/song.midに出力
`, timing.DefaultTicksPerBeat, strings.Join(textenc.Names(), ", "), textenc.Default)
}
