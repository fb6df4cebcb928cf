package config

import (
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestDefaults(t *testing.T) {
	is := is.New(t)
	cfg := &Config{}
	is.NoErr(cfg.Load(nil))
	is.Equal(cfg.GetString("engine-path"), "stockfish")
	is.Equal(cfg.GetInt("search-depth"), 18)
	is.Equal(cfg.GetInt("max-ply"), 24)
	is.Equal(cfg.GetInt("flush-interval"), 16)
	is.Equal(cfg.GetDuration("search-timeout"), 5*time.Minute)
}

func TestFlagsOverrideDefaults(t *testing.T) {
	is := is.New(t)
	cfg := &Config{}
	is.NoErr(cfg.Load([]string{
		"--engine-path", "/opt/stockfish",
		"--max-ply", "8",
		"--flush-interval", "1",
	}))
	is.Equal(cfg.GetString("engine-path"), "/opt/stockfish")
	is.Equal(cfg.GetInt("max-ply"), 8)
	is.Equal(cfg.GetInt("flush-interval"), 1)
}

func TestEnvOverridesDefaults(t *testing.T) {
	is := is.New(t)
	t.Setenv("OUVERTURE_SEARCH_DEPTH", "12")
	cfg := &Config{}
	is.NoErr(cfg.Load(nil))
	is.Equal(cfg.GetInt("search-depth"), 12)
}
