// cmd/render renders a tracker module to a WAVE file, synchronously and
// without any real-time deadline, by pulling blocks directly from
// Player.GenerateAudio rather than through the background pipeline.
// Generalizes cmd/modwav from a 16-bit PCM, MOD-only writer to the
// four-format Player and a 32-bit float WAVE output.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/retrotrack/tracker"
	"github.com/retrotrack/tracker/wav"
)

const outputHz = 44100

func main() {
	log.SetFlags(0)
	log.SetPrefix("render: ")

	wavOut := flag.String("wav", "", "output WAVE file path")
	maxFrames := flag.Int("max-frames", 44100*60*10, "safety cap on rendered frames (10 minutes default)")
	flag.Parse()

	if len(flag.Args()) == 0 {
		log.Fatal("Missing module filename")
	}
	if *wavOut == "" {
		log.Fatal("Missing -wav output path")
	}

	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}
	song, err := tracker.Load(path, data)
	if err != nil {
		log.Fatal(err)
	}

	player := tracker.NewPlayer(song, outputHz)

	wavF, err := os.Create(*wavOut)
	if err != nil {
		log.Fatal(err)
	}
	defer wavF.Close()

	wavW, err := wav.NewWriter(wavF, outputHz)
	if err != nil {
		log.Fatal(err)
	}
	defer wavW.Finish()

	buf := make([]float32, tracker.BlockFrames*2)
	totalFrames := 0
	for totalFrames < *maxFrames {
		n := player.GenerateAudio(buf)
		if err := wavW.WriteFrame(buf[:n*2]); err != nil {
			log.Fatal(err)
		}
		totalFrames += n

		if player.Status().Mode == tracker.ModeEnded {
			break
		}
	}

	fmt.Printf("wrote %d frames to %s\n", totalFrames, *wavOut)
}
