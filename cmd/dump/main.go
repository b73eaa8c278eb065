// cmd/dump prints a structural summary of a loaded module: header fields,
// sample bank, and order/pattern layout. Generalizes cmd/moddump (which
// piped an internal SetDumpWriter trace from the loader itself) into a dump
// of the uniform Song model every one of the four loaders now produces.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/retrotrack/tracker"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("dump: ")

	if len(os.Args) <= 1 {
		log.Fatal("Missing module filename")
	}

	path := os.Args[1]
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}

	song, err := tracker.Load(path, data)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Title:    %s\n", song.Title)
	fmt.Printf("Type:     %s\n", song.Type)
	fmt.Printf("Channels: %d\n", song.Channels)
	fmt.Printf("Speed:    %d\n", song.Speed)
	fmt.Printf("Tempo:    %d\n", song.Tempo)
	fmt.Printf("Linear:   %v\n", song.Linear)
	fmt.Printf("Patterns: %d\n", song.PatternCount())
	fmt.Printf("Orders:   %d (%v)\n", len(song.Orders), song.Orders)
	fmt.Printf("Samples:  %d\n", len(song.Samples)-1)

	for i := 1; i < len(song.Samples); i++ {
		s := song.Samples[i]
		fmt.Printf("  %3d %-22s len=%-8d loop=[%d,%d) vol=%-3d pan=%-3d\n",
			i, s.Name, len(s.Data), s.LoopStart, s.LoopStart+s.LoopLen, s.Volume, s.Pan)
	}
}
