package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog/log"

	"github.com/jvila/ouverture/book"
	"github.com/jvila/ouverture/config"
	"github.com/jvila/ouverture/corpus"
	"github.com/jvila/ouverture/explorer"
	"github.com/jvila/ouverture/position"
	"github.com/jvila/ouverture/tablebase"
	"github.com/jvila/ouverture/uci"
)

type ShellController struct {
	l      *readline.Instance
	cfg    *config.Config
	store  *book.Store
	engine *uci.Engine
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

func NewShellController(cfg *config.Config) *ShellController {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31mouverture>\033[0m ",
		HistoryFile:     "/tmp/readline.tmp",
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	store := book.NewStore(cfg.GetString("book-path"), cfg.GetInt("flush-interval"))
	if err := store.Load(); err != nil {
		log.Fatal().Err(err).Msg("cannot load book")
	}
	return &ShellController{l: l, cfg: cfg, store: store}
}

func (sc *ShellController) ensureEngine() error {
	if sc.engine != nil {
		return nil
	}
	eng, err := uci.NewEngine(sc.cfg.GetString("engine-path"), uci.Options{
		Threads:       sc.cfg.GetInt("engine-threads"),
		HashMB:        sc.cfg.GetInt("engine-hash-mb"),
		SearchTimeout: sc.cfg.GetDuration("search-timeout"),
		Retries:       uint(sc.cfg.GetInt("engine-retries")),
	})
	if err != nil {
		return err
	}
	sc.engine = eng
	return nil
}

func (sc *ShellController) newExplorer() *explorer.Explorer {
	return &explorer.Explorer{
		Engine:      sc.engine,
		Store:       sc.store,
		SearchDepth: sc.cfg.GetInt("search-depth"),
		MaxPly:      sc.cfg.GetInt("max-ply"),
	}
}

// Close flushes the book one final time and stops the engine. It always
// runs on the way out, whatever checkpoint cadence was configured.
func (sc *ShellController) Close() {
	if err := sc.store.Flush(); err != nil {
		log.Err(err).Msg("final flush failed")
	}
	if sc.engine != nil {
		if err := sc.engine.Quit(); err != nil {
			log.Err(err).Msg("engine quit")
		}
	}
	sc.l.Close()
}

// bookLine follows the stored recommendations forward from a position.
func (sc *ShellController) bookLine(fen string, maxPlies int) ([]string, error) {
	key, err := position.Key(fen)
	if err != nil {
		return nil, err
	}
	var line []string
	for len(line) < maxPlies {
		entry, ok := sc.store.Get(key)
		if !ok {
			break
		}
		line = append(line, entry.Move)
		key, err = position.Apply(key, entry.Move)
		if err != nil {
			return line, err
		}
	}
	return line, nil
}

func (sc *ShellController) build(fen string) error {
	if err := sc.ensureEngine(); err != nil {
		return err
	}
	if fen == "" {
		fen = position.Start()
	}
	if err := sc.newExplorer().Explore(context.Background(), fen); err != nil {
		return err
	}
	return sc.store.Flush()
}

func (sc *ShellController) buildSeeds(path string) error {
	if path == "" {
		path = sc.cfg.GetString("seeds")
	}
	if path == "" {
		return fmt.Errorf("no seeds file given and none configured")
	}
	seeds, err := explorer.LoadSeeds(path)
	if err != nil {
		return err
	}
	if err := sc.ensureEngine(); err != nil {
		return err
	}
	return sc.newExplorer().ExploreAll(context.Background(), seeds)
}

func (sc *ShellController) Loop() {
readlineLoop:
	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}
		line = strings.TrimSpace(line)
		cmd, rest := line, ""
		if idx := strings.IndexByte(line, ' '); idx >= 0 {
			cmd, rest = line[:idx], strings.TrimSpace(line[idx+1:])
		}
		switch cmd {
		case "build":
			if err := sc.build(rest); err != nil {
				showMessage("Error: "+err.Error(), sc.l.Stderr())
			}
		case "seeds":
			if err := sc.buildSeeds(rest); err != nil {
				showMessage("Error: "+err.Error(), sc.l.Stderr())
			}
		case "lookup":
			key, err := position.Key(rest)
			if err != nil {
				showMessage("Error: "+err.Error(), sc.l.Stderr())
				break
			}
			if entry, ok := sc.store.Get(key); ok {
				showMessage(entry.Move, sc.l.Stderr())
			} else {
				showMessage("position not in book", sc.l.Stderr())
			}
		case "line":
			moves, err := sc.bookLine(rest, sc.cfg.GetInt("max-ply"))
			if err != nil {
				showMessage("Error: "+err.Error(), sc.l.Stderr())
				break
			}
			showMessage(strings.Join(moves, " "), sc.l.Stderr())
		case "size":
			showMessage(fmt.Sprintf("%d positions", sc.store.Len()), sc.l.Stderr())
		case "save":
			if err := sc.store.Flush(); err != nil {
				showMessage("Error: "+err.Error(), sc.l.Stderr())
			}
		case "compile":
			if rest == "" {
				showMessage("usage: compile <out.bin>", sc.l.Stderr())
				break
			}
			if err := sc.store.Compile(rest); err != nil {
				showMessage("Error: "+err.Error(), sc.l.Stderr())
			}
		case "probe":
			args := strings.SplitN(rest, " ", 2)
			if len(args) != 2 {
				showMessage("usage: probe <book.bin> <fen>", sc.l.Stderr())
				break
			}
			key, err := position.Key(args[1])
			if err != nil {
				showMessage("Error: "+err.Error(), sc.l.Stderr())
				break
			}
			packed, ok, err := book.CompiledLookup(args[0], key)
			if err != nil {
				showMessage("Error: "+err.Error(), sc.l.Stderr())
				break
			}
			if !ok {
				showMessage("position not in compiled book", sc.l.Stderr())
				break
			}
			showMessage(book.DecodeMove(packed), sc.l.Stderr())
		case "filter":
			args := strings.Fields(rest)
			if len(args) != 2 {
				showMessage("usage: filter <in.pgn> <out.pgn>", sc.l.Stderr())
				break
			}
			f := corpus.Filter{
				MinElo:   sc.cfg.GetInt("min-elo"),
				MinMoves: sc.cfg.GetInt("min-moves"),
			}
			if err := f.FilterFile(args[0], args[1]); err != nil {
				showMessage("Error: "+err.Error(), sc.l.Stderr())
			}
		case "fetch":
			names := strings.Fields(rest)
			if len(names) == 0 {
				showMessage("usage: fetch <file> [file...]", sc.l.Stderr())
				break
			}
			fetcher := &tablebase.Fetcher{
				BaseURL: sc.cfg.GetString("tablebase-url"),
				Dir:     sc.cfg.GetString("tablebase-dir"),
			}
			if err := fetcher.FetchAll(context.Background(), names); err != nil {
				showMessage("Error: "+err.Error(), sc.l.Stderr())
			}
		case "bye", "exit":
			break readlineLoop
		case "help":
			usage(sc.l.Stderr())
		case "":
		default:
			showMessage("unknown command; try help", sc.l.Stderr())
		}
	}
	log.Debug().Msgf("Exiting readline loop...")
}
