// Package uci owns a single analysis-engine subprocess and speaks the
// line-oriented UCI protocol over its standard streams. The engine is
// stateful per reset and its responses carry no request identifiers, so
// requests are issued strictly one at a time and a response is whichever
// line first matches the expected prefix.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
)

// ErrNoAnalysis means the engine produced no usable result for a
// position: it died, timed out, or answered with something that is not a
// move. Callers abandon the branch; nothing gets recorded.
var ErrNoAnalysis = errors.New("uci: no analysis result")

const quitGracePeriod = 5 * time.Second

// Options configures the engine process.
type Options struct {
	Threads       int
	HashMB        int
	SearchTimeout time.Duration
	Retries       uint
}

// Engine is one running engine subprocess.
type Engine struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	lines   chan string
	timeout time.Duration
	retries uint

	mu sync.Mutex // serializes requests; only one may be outstanding
}

// NewEngine starts the engine at path, performs the UCI handshake, and
// applies the configured options.
func NewEngine(path string, opts Options) (*Engine, error) {
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = 5 * time.Minute
	}
	if opts.Retries == 0 {
		opts.Retries = 1
	}

	cmd := exec.Command(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("uci: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("uci: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("uci: start %s: %w", path, err)
	}
	e := &Engine{
		cmd:     cmd,
		stdin:   stdin,
		lines:   make(chan string, 128),
		timeout: opts.SearchTimeout,
		retries: opts.Retries,
	}
	go e.readLines(stdout)

	if err := e.handshake(opts); err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}
	log.Info().Str("path", path).Msg("engine started")
	return e, nil
}

func (e *Engine) readLines(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			e.lines <- line
		}
	}
	close(e.lines)
}

func (e *Engine) handshake(opts Options) error {
	if err := e.send("uci"); err != nil {
		return err
	}
	if _, err := e.waitFor(context.Background(), "uciok"); err != nil {
		return err
	}
	if opts.Threads > 0 {
		if err := e.send(fmt.Sprintf("setoption name Threads value %d", opts.Threads)); err != nil {
			return err
		}
	}
	if opts.HashMB > 0 {
		if err := e.send(fmt.Sprintf("setoption name Hash value %d", opts.HashMB)); err != nil {
			return err
		}
	}
	if err := e.send("setoption name MultiPV value 1"); err != nil {
		return err
	}
	if err := e.send("isready"); err != nil {
		return err
	}
	_, err := e.waitFor(context.Background(), "readyok")
	return err
}

// Analyze resets the engine's game state, submits the position, and runs
// a fixed-depth search, blocking until the engine reports its best move.
// Transient no-result failures are retried up to the configured number of
// attempts; on ultimate failure the error wraps ErrNoAnalysis and no move
// is returned.
func (e *Engine) Analyze(ctx context.Context, key string, depth int) (string, error) {
	var move string
	err := retry.Do(
		func() error {
			var err error
			move, err = e.bestMove(ctx, key, depth)
			return err
		},
		retry.Attempts(e.retries),
		retry.RetryIf(func(err error) bool { return errors.Is(err, ErrNoAnalysis) }),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n).Msg("analysis failed; retrying")
		}),
	)
	if err != nil {
		return "", err
	}
	return move, nil
}

func (e *Engine) bestMove(ctx context.Context, key string, depth int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.send("ucinewgame"); err != nil {
		return "", err
	}
	if err := e.send("isready"); err != nil {
		return "", err
	}
	if _, err := e.waitFor(ctx, "readyok"); err != nil {
		return "", err
	}
	if err := e.send("position fen " + key); err != nil {
		return "", err
	}
	if err := e.send(fmt.Sprintf("go depth %d", depth)); err != nil {
		return "", err
	}
	line, err := e.waitFor(ctx, "bestmove")
	if err != nil {
		e.abortSearch()
		return "", err
	}
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[1] == "(none)" {
		return "", fmt.Errorf("%w: %q", ErrNoAnalysis, line)
	}
	move := fields[1]
	if len(move) != 4 && len(move) != 5 {
		return "", fmt.Errorf("%w: malformed move %q", ErrNoAnalysis, move)
	}
	return move, nil
}

// waitFor consumes output lines until one starts with the given prefix.
// A closed output stream or an expired timeout both count as no result.
func (e *Engine) waitFor(ctx context.Context, prefix string) (string, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()
	for {
		select {
		case line, ok := <-e.lines:
			if !ok {
				return "", fmt.Errorf("%w: engine closed its output stream", ErrNoAnalysis)
			}
			log.Debug().Str("line", line).Msg("engine says")
			if strings.HasPrefix(line, prefix) {
				return line, nil
			}
		case <-timer.C:
			return "", fmt.Errorf("%w: no %q within %s", ErrNoAnalysis, prefix, e.timeout)
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// abortSearch cleans up after a search that was given up on. The engine
// is still searching and will emit a bestmove line eventually; that line
// must be consumed here, while the request lock is still held, or it
// would be matched as the answer to the next request.
func (e *Engine) abortSearch() {
	if err := e.send("stop"); err != nil {
		return
	}
	timer := time.NewTimer(quitGracePeriod)
	defer timer.Stop()
	for {
		select {
		case line, ok := <-e.lines:
			if !ok {
				return
			}
			if strings.HasPrefix(line, "bestmove") {
				return
			}
		case <-timer.C:
			log.Warn().Msg("engine ignored stop; channel may be out of sync")
			return
		}
	}
}

func (e *Engine) send(cmd string) error {
	if _, err := io.WriteString(e.stdin, cmd+"\n"); err != nil {
		return fmt.Errorf("uci: write %q: %w", cmd, err)
	}
	return nil
}

// Quit asks the engine to exit, and kills it if it lingers.
func (e *Engine) Quit() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_ = e.send("quit")
	done := make(chan error, 1)
	go func() { done <- e.cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(quitGracePeriod):
		log.Warn().Msg("engine did not quit cleanly; killing it")
		_ = e.cmd.Process.Kill()
		return <-done
	}
}
