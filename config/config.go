package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every option the book builder recognizes. It wraps viper
// so callers use the generic getters (GetString, GetInt, and so on) the
// way the rest of the codebase expects.
type Config struct {
	*viper.Viper
}

func (c *Config) Load(args []string) error {
	c.Viper = viper.New()

	fs := pflag.NewFlagSet("ouverture", pflag.ContinueOnError)
	fs.String("engine-path", "stockfish", "path to the UCI engine executable")
	fs.Int("search-depth", 18, "fixed search depth for each analyzed position")
	fs.Int("max-ply", 24, "maximum traversal depth, in plies")
	fs.Int("flush-interval", 16, "book insertions between checkpoints")
	fs.String("book-path", "./book.json", "path to the persisted book")
	fs.String("seeds", "", "file of starting positions, one FEN per line")
	fs.Int("engine-threads", 1, "UCI Threads option")
	fs.Int("engine-hash-mb", 256, "UCI Hash option, in MB")
	fs.Uint("engine-retries", 1, "analyze attempts per position; 1 disables retry")
	fs.Duration("search-timeout", 5*time.Minute, "wall-clock bound per analyze call")
	fs.Int("min-elo", 2500, "corpus filter: minimum Elo for both players")
	fs.Int("min-moves", 20, "corpus filter: minimum half-moves per game")
	fs.String("tablebase-url", "https://tablebase.lichess.ovh/tables/standard/3-4-5",
		"base URL of the tablebase mirror")
	fs.String("tablebase-dir", "./syzygy", "directory for fetched tablebase files")
	fs.String("log-level", "info", "debug, info, or disabled")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.BindPFlags(fs); err != nil {
		return err
	}
	c.SetEnvPrefix("ouverture")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()
	return nil
}
