// bookworker is the non-interactive builder: it loads (or creates) the
// book, walks the engine's preferred line from every seed, and exits.
// Intended for long unattended runs; interrupt it and rerun to resume
// from the last checkpoint.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jvila/ouverture/book"
	"github.com/jvila/ouverture/config"
	"github.com/jvila/ouverture/explorer"
	"github.com/jvila/ouverture/position"
	"github.com/jvila/ouverture/uci"
)

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		panic(err)
	}
	if cfg.GetString("log-level") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	store := book.NewStore(cfg.GetString("book-path"), cfg.GetInt("flush-interval"))
	if err := store.Load(); err != nil {
		log.Fatal().Err(err).Msg("cannot load book")
	}

	engine, err := uci.NewEngine(cfg.GetString("engine-path"), uci.Options{
		Threads:       cfg.GetInt("engine-threads"),
		HashMB:        cfg.GetInt("engine-hash-mb"),
		SearchTimeout: cfg.GetDuration("search-timeout"),
		Retries:       uint(cfg.GetInt("engine-retries")),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("cannot start engine")
	}
	defer func() {
		if err := engine.Quit(); err != nil {
			log.Err(err).Msg("engine quit")
		}
	}()

	seeds := []string{position.Start()}
	if path := cfg.GetString("seeds"); path != "" {
		seeds, err = explorer.LoadSeeds(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("cannot read seeds")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("got quit signal...")
		cancel()
	}()

	ex := &explorer.Explorer{
		Engine:      engine,
		Store:       store,
		SearchDepth: cfg.GetInt("search-depth"),
		MaxPly:      cfg.GetInt("max-ply"),
	}
	if err := ex.ExploreAll(ctx, seeds); err != nil {
		// Still flush whatever completed before surfacing the failure.
		if ferr := store.Flush(); ferr != nil {
			log.Err(ferr).Msg("flush after failure")
		}
		log.Fatal().Err(err).Msg("build failed")
	}
	log.Info().Int("positions", store.Len()).Msg("build complete")
}
