// Package explorer walks forward from a starting position, recording the
// engine's preferred move at every ply. Each walk follows a single line
// of play; a book with real branching comes from seeding many distinct
// starting positions.
package explorer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jvila/ouverture/book"
	"github.com/jvila/ouverture/position"
	"github.com/jvila/ouverture/uci"
)

// Analyzer produces a recommended move for a position, or an error
// wrapping uci.ErrNoAnalysis when it cannot.
type Analyzer interface {
	Analyze(ctx context.Context, key string, depth int) (string, error)
}

// Explorer drives an Analyzer down its own preferred continuation,
// memoizing results in the book store.
type Explorer struct {
	Engine      Analyzer
	Store       *book.Store
	SearchDepth int
	MaxPly      int
}

// Explore descends the engine's preferred line from the given position.
// A position already in the book cuts the walk off: whatever lies below
// it was covered when it was first recorded.
func (ex *Explorer) Explore(ctx context.Context, fen string) error {
	key, err := position.Key(fen)
	if err != nil {
		return err
	}
	return ex.explore(ctx, key, 0)
}

func (ex *Explorer) explore(ctx context.Context, key string, ply int) error {
	if ply >= ex.MaxPly {
		return nil
	}
	if _, ok := ex.Store.Get(key); ok {
		log.Debug().Int("ply", ply).Msg("position already in book; stopping")
		return nil
	}
	move, err := ex.Engine.Analyze(ctx, key, ex.SearchDepth)
	if errors.Is(err, uci.ErrNoAnalysis) {
		log.Warn().Err(err).Int("ply", ply).Str("position", key).Msg("abandoning branch")
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := ex.Store.Put(key, book.Entry{Move: move}); err != nil {
		return err
	}
	log.Info().Int("ply", ply).Str("move", move).Int("book", ex.Store.Len()).Msg("recorded")

	next, err := position.Apply(key, move)
	if err != nil {
		// The engine proposed a move the rules component rejects. The
		// entry above stays; there is just nothing to descend into.
		log.Warn().Err(err).Int("ply", ply).Msg("abandoning branch")
		return nil
	}
	return ex.explore(ctx, next, ply+1)
}

// ExploreAll runs one walk per seed and flushes the book once more at the
// end, regardless of checkpoint cadence.
func (ex *Explorer) ExploreAll(ctx context.Context, seeds []string) error {
	for i, seed := range seeds {
		log.Info().Int("seed", i+1).Int("of", len(seeds)).Msg("exploring")
		if err := ex.Explore(ctx, seed); err != nil {
			return fmt.Errorf("seed %d (%s): %w", i+1, seed, err)
		}
	}
	return ex.Store.Flush()
}

// LoadSeeds reads starting positions from a file, one FEN per line.
// Blank lines and // comments are ignored.
func LoadSeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var seeds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		seeds = append(seeds, line)
	}
	return seeds, scanner.Err()
}
