// Package app は引数解析からMIDI書き出し、検証までの変換処理をまとめる
package app

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/zurustar/segmidi/pkg/cli"
	"github.com/zurustar/segmidi/pkg/events"
	"github.com/zurustar/segmidi/pkg/fileutil"
	"github.com/zurustar/segmidi/pkg/inspect"
	"github.com/zurustar/segmidi/pkg/logger"
	"github.com/zurustar/segmidi/pkg/score"
	"github.com/zurustar/segmidi/pkg/smfwriter"
	"github.com/zurustar/segmidi/pkg/timing"
)

// Version --version で表示するバージョン
const Version = "1.0.0"

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config *cli.Config
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

// Result 変換結果
type Result struct {
	InputPath  string
	OutputPath string
	BPM        float64
	Markers    int
	Notes      int
	Bytes      int

	// セグメントが空で何も書き出さなかった場合はtrue
	Skipped bool

	// --verify 指定時のみ設定される
	Report *inspect.Report
}

// New Applicationを作成（ログとヘルプはstdout、使い方のエラーはstderrへ出力）
func New(stdout, stderr io.Writer) *Application {
	return &Application{
		stdout: stdout,
		stderr: stderr,
	}
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	config, err := cli.ParseArgs(args)
	if err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}
	app.config = config

	if config.ShowHelp {
		cli.PrintHelp(app.stdout)
		return nil
	}
	if config.ShowVersion {
		fmt.Fprintf(app.stdout, "segmidi v%s\n", Version)
		return nil
	}

	if err := config.Validate(); err != nil {
		cli.PrintHelp(app.stderr)
		return err
	}

	// 2. ロガーの初期化
	if err := logger.InitLoggerWithWriter(config.LogLevel, app.stdout); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.log = logger.GetLogger()

	// 3. 変換の実行
	if _, err := Convert(config, app.log); err != nil {
		return err
	}
	return nil
}

// Convert スコアを読み込んでMIDIファイルを書き出す
// セグメントが空の場合はエラーにせず、警告を出して何も書き出さない
func Convert(config *cli.Config, log *slog.Logger) (*Result, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	res := &Result{InputPath: config.InputPath}

	if fileutil.IsDir(config.InputPath) {
		return nil, fmt.Errorf("%s is a directory, expected a JSON file", config.InputPath)
	}

	sc, err := score.Load(config.InputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load score: %w", err)
	}
	res.BPM = sc.BPM

	if sc.Empty() {
		log.Warn("score has no segments, nothing to do", "path", config.InputPath)
		res.Skipped = true
		return res, nil
	}

	res.OutputPath = config.OutputPath
	if res.OutputPath == "" {
		res.OutputPath = fileutil.OutputPath(config.InputPath)
	}
	if samePath(res.OutputPath, config.InputPath) {
		return nil, fmt.Errorf("output %s would overwrite the input", res.OutputPath)
	}

	log.Info("generating MIDI", "input", config.InputPath, "output", res.OutputPath,
		"bpm", sc.BPM, "segments", len(sc.Segments), "notes", config.Notes)

	evs := events.Build(sc, events.Options{
		Notes:        config.Notes,
		TicksPerBeat: config.TicksPerBeat,
	})
	logSegments(log, sc, timing.NewConverter(sc.BPM, config.TicksPerBeat), config.Notes)

	writerOpts := smfwriter.Options{
		TicksPerBeat: config.TicksPerBeat,
		Encoding:     config.Encoding,
		MarkerKind:   config.MarkerKind,
	}
	data, err := smfwriter.Encode(evs, writerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode MIDI: %w", err)
	}

	if err := fileutil.WriteFile(res.OutputPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write MIDI file: %w", err)
	}

	res.Markers = events.Count(evs, events.KindMarker)
	res.Notes = events.Count(evs, events.KindNote)
	res.Bytes = len(data)

	if config.Verify {
		rep, err := inspect.Inspect(data)
		if err != nil {
			return nil, fmt.Errorf("failed to verify MIDI file: %w", err)
		}
		if err := inspect.Verify(rep, evs, config.MarkerKind); err != nil {
			return nil, fmt.Errorf("failed to verify MIDI file: %w", err)
		}
		res.Report = rep
		log.Info("verified MIDI file", "tracks", rep.Tracks, "markers", len(rep.Markers),
			"texts", len(rep.Texts), "notes", len(rep.Notes),
			"bpm", timing.BPMFromMicros(rep.Tempos[0].MicrosPerBeat), "length", rep.Length)
	}

	log.Info("MIDI file generated", "output", res.OutputPath, "bpm", sc.BPM,
		"markers", res.Markers, "notes", res.Notes, "bytes", res.Bytes)
	return res, nil
}

func logSegments(log *slog.Logger, sc *score.Score, conv timing.Converter, notes bool) {
	for i, seg := range sc.Segments {
		log.Info("segment",
			"index", i+1,
			"start", seg.Start,
			"end", seg.End,
			"duration", seg.Duration(),
			"label", seg.Label,
			"tick", conv.Ticks(seg.Start),
		)
		if notes && seg.End < seg.Start {
			log.Warn("segment ends before it starts, writing a zero-length note", "index", i+1, "label", seg.Label)
		}
	}
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
