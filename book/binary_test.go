package book

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
)

func TestEncodeMove(t *testing.T) {
	is := is.New(t)

	// e2=12, e4=28: 28 | 12<<6
	m, err := EncodeMove("e2e4")
	is.NoErr(err)
	is.Equal(m, uint16(796))

	// a7=48, a8=56, queen promo: 56 | 48<<6 | 1<<12
	m, err = EncodeMove("a7a8q")
	is.NoErr(err)
	is.Equal(m, uint16(7224))

	for _, bad := range []string{"", "e2", "e9e4", "i2i4", "a7a8k", "e2e4e5x"} {
		_, err := EncodeMove(bad)
		is.True(err != nil)
	}
}

func TestDecodeMoveRoundTrip(t *testing.T) {
	is := is.New(t)
	for _, mv := range []string{"e2e4", "g8f6", "a7a8q", "h2h1n", "e1g1"} {
		packed, err := EncodeMove(mv)
		is.NoErr(err)
		is.Equal(DecodeMove(packed), mv)
	}
}

func TestCompileAndLookup(t *testing.T) {
	is := is.New(t)
	s := tempStore(t, 0)
	entries := map[string]string{"pos1": "e2e4", "pos2": "e7e5", "pos3": "a7a8q"}
	for k, mv := range entries {
		_, err := s.Put(k, Entry{Move: mv})
		is.NoErr(err)
	}

	out := filepath.Join(t.TempDir(), "book.bin")
	is.NoErr(s.Compile(out))

	fi, err := os.Stat(out)
	is.NoErr(err)
	is.Equal(fi.Size(), int64(recordSize*len(entries)))

	for k, mv := range entries {
		packed, ok, err := CompiledLookup(out, k)
		is.NoErr(err)
		is.True(ok)
		is.Equal(DecodeMove(packed), mv)
	}

	_, ok, err := CompiledLookup(out, "never recorded")
	is.NoErr(err)
	is.True(!ok)
}

func TestCompileRejectsBadMove(t *testing.T) {
	is := is.New(t)
	s := tempStore(t, 0)
	_, err := s.Put("pos1", Entry{Move: "resign"})
	is.NoErr(err)
	is.True(s.Compile(filepath.Join(t.TempDir(), "book.bin")) != nil)
}
