// Package position is the board-rules boundary of the book builder. A
// position travels through the rest of the codebase as its canonical FEN
// key; the actual rules (move legality, FEN parsing) come from
// github.com/notnil/chess.
package position

import (
	"fmt"

	"github.com/notnil/chess"
)

// Start returns the key of the standard initial position.
func Start() string {
	return chess.StartingPosition().String()
}

func decode(key string) (*chess.Position, error) {
	pos := &chess.Position{}
	if err := pos.UnmarshalText([]byte(key)); err != nil {
		return nil, fmt.Errorf("position: bad key %q: %w", key, err)
	}
	return pos, nil
}

// Key canonicalizes a FEN string. Two positions are equal iff their
// canonical keys are equal.
func Key(fen string) (string, error) {
	pos, err := decode(fen)
	if err != nil {
		return "", err
	}
	return pos.String(), nil
}

// Apply plays a coordinate move (e2e4, a7a8q) on the position identified
// by key and returns the successor's key. A four-character move that
// turns out to be a promotion promotes to a queen.
func Apply(key, move string) (string, error) {
	pos, err := decode(key)
	if err != nil {
		return "", err
	}
	notation := chess.UCINotation{}
	mv, err := notation.Decode(pos, move)
	if err != nil && len(move) == 4 {
		mv, err = notation.Decode(pos, move+"q")
	}
	if err != nil {
		return "", fmt.Errorf("position: cannot apply %q: %w", move, err)
	}
	return pos.Update(mv).String(), nil
}
