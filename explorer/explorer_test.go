package explorer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/require"

	"github.com/jvila/ouverture/book"
	"github.com/jvila/ouverture/position"
	"github.com/jvila/ouverture/uci"
)

// scriptedAnalyzer answers from a fixed position→move table and counts
// how often it is consulted. Unscripted positions yield no analysis.
type scriptedAnalyzer struct {
	moves map[string]string
	calls int
}

func (a *scriptedAnalyzer) Analyze(ctx context.Context, key string, depth int) (string, error) {
	a.calls++
	mv, ok := a.moves[key]
	if !ok {
		return "", fmt.Errorf("%w: unscripted position", uci.ErrNoAnalysis)
	}
	return mv, nil
}

func tempStore(t *testing.T) *book.Store {
	t.Helper()
	return book.NewStore(filepath.Join(t.TempDir(), "book.json"), 0)
}

// openingLine scripts the engine to play 1. e4 e5 from the start.
func openingLine(t *testing.T) (s0, s1 string, analyzer *scriptedAnalyzer) {
	t.Helper()
	s0 = position.Start()
	s1, err := position.Apply(s0, "e2e4")
	require.NoError(t, err)
	return s0, s1, &scriptedAnalyzer{moves: map[string]string{s0: "e2e4", s1: "e7e5"}}
}

func TestFollowsEnginePreferredLine(t *testing.T) {
	is := is.New(t)
	s0, s1, analyzer := openingLine(t)
	ex := &Explorer{Engine: analyzer, Store: tempStore(t), SearchDepth: 18, MaxPly: 2}

	is.NoErr(ex.Explore(context.Background(), s0))

	is.Equal(ex.Store.Len(), 2)
	e, ok := ex.Store.Get(s0)
	is.True(ok)
	is.Equal(e.Move, "e2e4")
	e, ok = ex.Store.Get(s1)
	is.True(ok)
	is.Equal(e.Move, "e7e5")
	is.Equal(analyzer.calls, 2) // traversal halts at the ply bound
}

func TestSecondRunAddsNothing(t *testing.T) {
	is := is.New(t)
	s0, _, analyzer := openingLine(t)
	ex := &Explorer{Engine: analyzer, Store: tempStore(t), SearchDepth: 18, MaxPly: 2}

	is.NoErr(ex.Explore(context.Background(), s0))
	is.Equal(ex.Store.Len(), 2)
	callsAfterFirst := analyzer.calls

	is.NoErr(ex.Explore(context.Background(), s0))
	is.Equal(ex.Store.Len(), 2)
	is.Equal(analyzer.calls, callsAfterFirst) // memoized at the root
}

func TestDepthBound(t *testing.T) {
	is := is.New(t)
	s0, _, analyzer := openingLine(t)
	ex := &Explorer{Engine: analyzer, Store: tempStore(t), SearchDepth: 18, MaxPly: 1}

	is.NoErr(ex.Explore(context.Background(), s0))
	is.Equal(ex.Store.Len(), 1)
	is.Equal(analyzer.calls, 1)
}

func TestMemoizationCutsOffDescent(t *testing.T) {
	is := is.New(t)
	s0, s1, analyzer := openingLine(t)
	store := tempStore(t)
	_, err := store.Put(s1, book.Entry{Move: "e7e5"})
	is.NoErr(err)
	ex := &Explorer{Engine: analyzer, Store: store, SearchDepth: 18, MaxPly: 10}

	is.NoErr(ex.Explore(context.Background(), s0))
	is.Equal(store.Len(), 2)
	is.Equal(analyzer.calls, 1) // s1 was already known; nothing below it ran
}

func TestNoResultLeavesBookUnchanged(t *testing.T) {
	is := is.New(t)
	analyzer := &scriptedAnalyzer{moves: map[string]string{}}
	ex := &Explorer{Engine: analyzer, Store: tempStore(t), SearchDepth: 18, MaxPly: 4}

	is.NoErr(ex.Explore(context.Background(), position.Start()))
	is.Equal(ex.Store.Len(), 0)
}

func TestExploreRejectsBadPosition(t *testing.T) {
	is := is.New(t)
	ex := &Explorer{Engine: &scriptedAnalyzer{}, Store: tempStore(t), SearchDepth: 18, MaxPly: 4}
	is.True(ex.Explore(context.Background(), "garbage") != nil)
}

func TestExploreAllFlushesAtTheEnd(t *testing.T) {
	is := is.New(t)
	s0, _, analyzer := openingLine(t)
	path := filepath.Join(t.TempDir(), "book.json")
	store := book.NewStore(path, 0)
	ex := &Explorer{Engine: analyzer, Store: store, SearchDepth: 18, MaxPly: 2}

	is.NoErr(ex.ExploreAll(context.Background(), []string{s0}))

	reloaded := book.NewStore(path, 0)
	is.NoErr(reloaded.Load())
	is.Equal(reloaded.Len(), 2)
}

func TestLoadSeeds(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "seeds.txt")
	content := "// mainline openings\n\n" +
		position.Start() + "\n" +
		"rnbqkbnr/pppppppp/8/8/4P3/8/PPPPPPPP/RNBQKBNR b KQkq e3 0 1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	seeds, err := LoadSeeds(path)
	is.NoErr(err)
	is.Equal(len(seeds), 2)
	is.Equal(seeds[0], position.Start())
}
