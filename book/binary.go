package book

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"github.com/cespare/xxhash"
	"github.com/rs/zerolog/log"
)

// Compiled book format: fixed 16-byte big-endian records sorted by key,
// so readers can binary-search without an index.
//
//	key(8)    xxhash64 of the canonical position key
//	move(2)   to | from<<6 | promo<<12, squares 0..63 from a1
//	weight(2) always 1
//	learn(4)  always 0
const recordSize = 16

var promoCode = map[byte]uint16{'q': 1, 'r': 2, 'b': 3, 'n': 4}

var promoChar = [...]byte{0, 'q', 'r', 'b', 'n'}

func squareIndex(file, rank byte) (uint16, error) {
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return 0, fmt.Errorf("book: bad square %q", string([]byte{file, rank}))
	}
	return uint16(rank-'1')*8 + uint16(file-'a'), nil
}

// EncodeMove packs a coordinate move into the compiled 16-bit form.
func EncodeMove(move string) (uint16, error) {
	if len(move) != 4 && len(move) != 5 {
		return 0, fmt.Errorf("book: bad move %q", move)
	}
	from, err := squareIndex(move[0], move[1])
	if err != nil {
		return 0, err
	}
	to, err := squareIndex(move[2], move[3])
	if err != nil {
		return 0, err
	}
	var promo uint16
	if len(move) == 5 {
		p, ok := promoCode[move[4]]
		if !ok {
			return 0, fmt.Errorf("book: bad promotion in %q", move)
		}
		promo = p
	}
	return to | from<<6 | promo<<12, nil
}

// DecodeMove unpacks the compiled form back to coordinate notation.
func DecodeMove(m uint16) string {
	sq := func(s uint16) []byte {
		return []byte{byte('a' + s%8), byte('1' + s/8)}
	}
	out := append(sq(m>>6&0x3f), sq(m&0x3f)...)
	if promo := m >> 12 & 0x7; promo >= 1 && promo <= 4 {
		out = append(out, promoChar[promo])
	}
	return string(out)
}

// Compile writes the book in its compiled binary form.
func (s *Store) Compile(path string) error {
	s.Lock()
	defer s.Unlock()

	type record struct {
		key  uint64
		move uint16
	}
	records := make([]record, 0, len(s.entries))
	for pos, e := range s.entries {
		mv, err := EncodeMove(e.Move)
		if err != nil {
			return fmt.Errorf("%w (position %q)", err, pos)
		}
		records = append(records, record{key: xxhash.Sum64String(pos), move: mv})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].key < records[j].key })

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("book: create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	buf := make([]byte, recordSize)
	for _, r := range records {
		binary.BigEndian.PutUint64(buf[0:8], r.key)
		binary.BigEndian.PutUint16(buf[8:10], r.move)
		binary.BigEndian.PutUint16(buf[10:12], 1)
		binary.BigEndian.PutUint32(buf[12:16], 0)
		if _, err := w.Write(buf); err != nil {
			f.Close()
			return fmt.Errorf("book: write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("book: flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("book: close %s: %w", path, err)
	}
	log.Info().Int("positions", len(records)).Str("path", path).Msg("compiled book")
	return nil
}

// CompiledLookup searches a compiled book file for the given position key
// and returns the packed move if present.
func CompiledLookup(path, pos string) (uint16, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false, fmt.Errorf("book: read %s: %w", path, err)
	}
	if len(data)%recordSize != 0 {
		return 0, false, fmt.Errorf("book: %s is truncated", path)
	}
	want := xxhash.Sum64String(pos)
	n := len(data) / recordSize
	i := sort.Search(n, func(i int) bool {
		return binary.BigEndian.Uint64(data[i*recordSize:]) >= want
	})
	if i < n && binary.BigEndian.Uint64(data[i*recordSize:]) == want {
		return binary.BigEndian.Uint16(data[i*recordSize+8:]), true, nil
	}
	return 0, false, nil
}
