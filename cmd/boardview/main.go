// Command boardview prints a saved player view as a board in the terminal.
//
//	boardview state.json
//	curl -s ... | boardview
//
// The input is either a PlayerView or a game_state event wrapping one.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jason-s-yu/chessofcards/engine"
	"github.com/pterm/pterm"
)

func main() {
	noColor := flag.Bool("no-color", false, "disable colors")
	flag.Parse()

	in := io.Reader(os.Stdin)
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			pterm.Error.Println(err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	v, err := decodeView(in)
	if err != nil {
		pterm.Error.Printfln("read view: %v", err)
		os.Exit(1)
	}
	if *noColor {
		pterm.DisableColor()
	}
	if err := render(v, !*noColor); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func decodeView(r io.Reader) (engine.PlayerView, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return engine.PlayerView{}, err
	}
	var wrapped struct {
		State *engine.PlayerView `json:"state"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return engine.PlayerView{}, fmt.Errorf("decode: %w", err)
	}
	if wrapped.State != nil {
		return *wrapped.State, nil
	}
	var v engine.PlayerView
	if err := json.Unmarshal(raw, &v); err != nil {
		return engine.PlayerView{}, fmt.Errorf("decode: %w", err)
	}
	return v, nil
}
