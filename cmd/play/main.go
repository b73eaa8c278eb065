// cmd/play is the interactive player: a single required positional
// file-or-directory argument (the program exits with an error when it is
// missing), and a non-blocking keyboard UI contract
// (P load, S stop, SPACE pause toggle, R restart, Q quit). Generalizes
// cmd/modplay (main.go + play.go) from a MOD-only, note-grid-rendering TUI
// to the four-format Player, trading the original's live pattern-grid
// display for a status line (mode/title/order/row/speed/bpm).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"os/signal"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/fatih/color"
	"github.com/gordonklaus/portaudio"
	"github.com/retrotrack/tracker"
	"github.com/retrotrack/tracker/cmd/internal/config"
)

const outputHz = 44100

var reverbFlag = flag.String("reverb", "none", "reverb send: none, light, medium, silly")

const (
	escape     = "\x1b["
	hideCursor = escape + "?25l"
	showCursor = escape + "?25h"
)

var recognizedExt = map[string]bool{".mod": true, ".s3m": true, ".xm": true, ".it": true}

func main() {
	log.SetFlags(0)
	log.SetPrefix("play: ")
	flag.Parse()

	if len(flag.Args()) == 0 {
		log.Fatal("Missing file or directory argument")
	}

	path, err := resolvePath(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}
	song, err := tracker.Load(path, data)
	if err != nil {
		log.Fatal(err)
	}

	player := tracker.NewPlayer(song, outputHz)

	reverb, err := config.ReverbFromFlag(*reverbFlag, outputHz)
	if err != nil {
		log.Fatal(err)
	}

	if err := portaudio.Initialize(); err != nil {
		log.Fatal(err)
	}
	defer portaudio.Terminate()

	dry := make([]float32, tracker.BlockFrames*2)
	streamCB := func(out []float32) {
		player.Callback(dry)
		reverb.InputSamples(dry)
		n := reverb.GetAudio(out)
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(outputHz), tracker.BlockFrames, streamCB)
	if err != nil {
		log.Fatal(err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		log.Fatal(err)
	}
	defer stream.Stop()

	if err := player.Start(); err != nil {
		log.Fatal(err)
	}

	fmt.Print(hideCursor)
	defer fmt.Print(showCursor)
	fmt.Println(song.Title)

	var stopOnce sync.Once
	quit := make(chan struct{})
	shutdown := func() {
		stopOnce.Do(func() {
			player.Stop()
			stream.Stop()
			close(quit)
		})
	}

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT)
	go func() {
		<-sigch
		shutdown()
	}()

	go func() {
		keyboard.Listen(func(key keys.Key) (bool, error) {
			switch key.Code {
			case keys.Space:
				player.TogglePause()
			case keys.CtrlC, keys.Escape:
				shutdown()
				return true, nil
			case keys.RuneKey:
				if len(key.Runes) == 0 {
					break
				}
				switch key.Runes[0] {
				case 'q', 'Q':
					shutdown()
					return true, nil
				case 's', 'S':
					player.Stop()
				case 'r', 'R':
					player.Restart()
				case 'p', 'P':
					if np, err := resolvePath(flag.Arg(0)); err == nil {
						if nd, err := os.ReadFile(np); err == nil {
							if ns, err := tracker.Load(np, nd); err == nil {
								player.Stop()
								player = tracker.NewPlayer(ns, outputHz)
								player.Start()
							}
						}
					}
				}
			}
			return false, nil
		})
	}()

	yellow := color.New(color.FgYellow).SprintfFunc()
	cyan := color.New(color.FgCyan).SprintfFunc()
	for {
		select {
		case <-quit:
			return
		default:
		}
		st := player.Status()
		fmt.Printf("\r%s %s ord %s row %s speed %s bpm %s   ",
			st.Mode, yellow(song.Title),
			cyan("%02d", st.Order), cyan("%02d", st.Row),
			cyan("%02d", st.Speed), cyan("%3d", st.Tempo))
		if st.Mode == tracker.ModeEnded {
			shutdown()
		}
	}
}

// resolvePath handles the CLI's file-or-directory argument: a file is used
// directly; a directory is recursed and a numbered picker (1..50, truncated
// remainder noted) is offered on stdin.
func resolvePath(arg string) (string, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return arg, nil
	}

	var found []string
	filepath.Walk(arg, func(p string, fi os.FileInfo, err error) error {
		if err != nil || fi.IsDir() {
			return nil
		}
		if recognizedExt[strings.ToLower(filepath.Ext(p))] {
			found = append(found, p)
		}
		return nil
	})
	sort.Strings(found)

	if len(found) == 0 {
		return "", fmt.Errorf("play: no tracker files found under %q", arg)
	}

	truncated := false
	if len(found) > 50 {
		truncated = true
		found = found[:50]
	}

	for i, f := range found {
		fmt.Printf("%2d) %s\n", i+1, f)
	}
	if truncated {
		fmt.Println("... remainder truncated")
	}
	fmt.Print("Select a file: ")

	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(found) {
		return "", fmt.Errorf("play: invalid selection %q", line)
	}
	return found[n-1], nil
}
