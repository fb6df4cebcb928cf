package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jvila/ouverture/config"
)

var (
	GitVersion string
)

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		panic(err)
	}

	switch cfg.GetString("log-level") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "disabled":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	}
	log.Debug().Msg("Debug logging is on")

	log.Info().Str("version", GitVersion).Msgf("Loaded config: %v", cfg.AllSettings())

	sc := NewShellController(cfg)
	defer sc.Close()
	sc.Loop()
	log.Info().Msg("bye")
}
