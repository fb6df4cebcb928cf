// Package corpus filters PGN game collections down to the games worth
// feeding a book: both players strong enough, game long enough to have
// left theory behind.
package corpus

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/notnil/chess"
	"github.com/rs/zerolog/log"
)

// Filter keeps games where both players are rated at least MinElo and
// the game lasted at least MinMoves half-moves.
type Filter struct {
	MinElo   int
	MinMoves int
}

// Run streams games from r and writes the survivors to w as PGN.
func (f Filter) Run(r io.Reader, w io.Writer) (kept, seen int, err error) {
	scanner := chess.NewScanner(r)
	for scanner.Scan() {
		game := scanner.Next()
		seen++
		if !f.keep(game) {
			continue
		}
		kept++
		if _, err := fmt.Fprintln(w, game.String()); err != nil {
			return kept, seen, err
		}
	}
	return kept, seen, scanner.Err()
}

func (f Filter) keep(g *chess.Game) bool {
	if len(g.Moves()) < f.MinMoves {
		return false
	}
	for _, tag := range []string{"WhiteElo", "BlackElo"} {
		tp := g.GetTagPair(tag)
		if tp == nil {
			return false
		}
		elo, err := strconv.Atoi(tp.Value)
		if err != nil || elo < f.MinElo {
			return false
		}
	}
	return true
}

// FilterFile filters the PGN file at in into a new file at out.
func (f Filter) FilterFile(in, out string) error {
	src, err := os.Open(in)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(out)
	if err != nil {
		return err
	}
	kept, seen, err := f.Run(src, dst)
	if err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	log.Info().Int("kept", kept).Int("seen", seen).Str("out", out).Msg("filtered corpus")
	return nil
}
