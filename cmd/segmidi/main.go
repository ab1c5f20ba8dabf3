// segmidi は楽曲構成のJSONを、セクションごとにマーカーを置いたMIDIファイルへ変換する
package main

import (
	"fmt"
	"os"

	"github.com/zurustar/segmidi/pkg/app"
)

func main() {
	application := app.New(os.Stdout, os.Stderr)
	if err := application.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
