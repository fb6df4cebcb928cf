package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/require"
)

const strongGame = `[Event "One"]
[Site "?"]
[Date "????.??.??"]
[Round "?"]
[White "A"]
[Black "B"]
[WhiteElo "2650"]
[BlackElo "2705"]
[Result "0-1"]

1. f3 e5 2. g4 Qh4# 0-1
`

const weakGame = `[Event "Two"]
[Site "?"]
[Date "????.??.??"]
[Round "?"]
[White "C"]
[Black "D"]
[WhiteElo "1500"]
[BlackElo "2800"]
[Result "0-1"]

1. f3 e5 2. g4 Qh4# 0-1
`

const unratedGame = `[Event "Three"]
[Site "?"]
[Date "????.??.??"]
[Round "?"]
[White "E"]
[Black "F"]
[Result "0-1"]

1. f3 e5 2. g4 Qh4# 0-1
`

func TestFilterByRating(t *testing.T) {
	is := is.New(t)
	f := Filter{MinElo: 2000, MinMoves: 4}
	var out strings.Builder

	kept, seen, err := f.Run(strings.NewReader(strongGame+"\n"+weakGame+"\n"+unratedGame), &out)
	is.NoErr(err)
	is.Equal(seen, 3)
	is.Equal(kept, 1)
	is.True(strings.Contains(out.String(), "Qh4#"))
}

func TestFilterByLength(t *testing.T) {
	is := is.New(t)
	f := Filter{MinElo: 2000, MinMoves: 10}
	var out strings.Builder

	kept, seen, err := f.Run(strings.NewReader(strongGame), &out)
	is.NoErr(err)
	is.Equal(seen, 1)
	is.Equal(kept, 0) // four half-moves is too short
}

func TestFilterFile(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pgn")
	out := filepath.Join(dir, "out.pgn")
	require.NoError(t, os.WriteFile(in, []byte(strongGame+"\n"+weakGame), 0o644))

	f := Filter{MinElo: 2000, MinMoves: 4}
	is.NoErr(f.FilterFile(in, out))

	data, err := os.ReadFile(out)
	is.NoErr(err)
	is.True(strings.Contains(string(data), `[Event "One"]`))
	is.True(!strings.Contains(string(data), `[Event "Two"]`))
}
