package tracker

import clone "github.com/huandu/go-clone/generic"

// baseTestSong is a minimal one-pattern fixture every test clones and
// customizes, following helpers_test.go's testSong convention
// (a package-level fixture + clone.Clone for per-test isolation, rather
// than re-declaring sample/order boilerplate in every test).
var baseTestSong = Song{
	Title:    "testsong",
	Channels: 2,
	Speed:    6,
	Tempo:    125,
	Orders:   []int{0},
	Pan:      []int{64, 192},
	Samples: []Sample{
		{}, // index 0 reserved
		{Name: "test1", Volume: 60, Pan: 128, C5Speed: 8363, Data: make([]float32, 1000)},
		{Name: "test2", Volume: 55, Pan: 128, C5Speed: 8363, Data: make([]float32, 1000)},
	},
}

// newTestSong clones baseTestSong, stamps its Type and Channels, and
// installs the given patterns (each a flat, row-major []cell as built by
// row()).
func newTestSong(format Format, channels int, rows int, cells []cell) *Song {
	song := clone.Clone(baseTestSong)
	song.Type = format
	song.Channels = channels
	song.patterns = []pattern{{rows: rows, channels: channels, cells: cells}}
	return &song
}

// emptyCell is an empty pattern cell: no note, no volume, no effect.
var emptyCell = cell{Pitch: pitchNone, Volume: noNoteVolume}

// note builds a triggering cell: absolute pitch, 1-based sample number
// (0 = none), and an optional effect/param (pass effectNone, 0 for none).
func note(pitch, sample int, effect, param byte) cell {
	return cell{Pitch: pitch, Sample: sample, Volume: noNoteVolume, Effect: effect, Param: param}
}

// row builds one pattern row's worth of cells from per-channel specs.
func row(specs ...cell) []cell {
	return specs
}

func flatten(rows ...[]cell) []cell {
	var out []cell
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

// advanceToNextRow runs ticks until the sequencer's row counter changes,
// following helpers_test.go's advanceToNextRow.
func advanceToNextRow(s *sequencer) {
	old := s.row
	for old == s.row && !s.ended {
		s.advanceTick()
	}
}
