// Package tablebase fetches endgame tablebase files from a mirror.
// Downloads run in parallel and are validated by size: a file already on
// disk with the right size is skipped, and a short read is an error.
package tablebase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// Fetcher downloads tablebase files that are missing or the wrong size.
type Fetcher struct {
	BaseURL string
	Dir     string
	Workers int
	Client  *http.Client
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return &http.Client{Timeout: 10 * time.Minute}
}

// FetchAll downloads the named files in parallel.
func (f *Fetcher) FetchAll(ctx context.Context, names []string) error {
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return fmt.Errorf("tablebase: mkdir %s: %w", f.Dir, err)
	}
	workers := f.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, name := range names {
		name := name
		g.Go(func() error { return f.fetchOne(ctx, name) })
	}
	return g.Wait()
}

func (f *Fetcher) fetchOne(ctx context.Context, name string) error {
	url := strings.TrimRight(f.BaseURL, "/") + "/" + name
	dest := filepath.Join(f.Dir, name)

	want, err := f.remoteSize(ctx, url)
	if err != nil {
		return err
	}
	if fi, err := os.Stat(dest); err == nil && fi.Size() == want {
		log.Debug().Str("file", name).Msg("already present; skipping")
		return nil
	}
	return retry.Do(
		func() error { return f.download(ctx, url, dest, want) },
		retry.Attempts(3),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n).Str("file", name).Msg("retrying download")
		}),
	)
}

func (f *Fetcher) remoteSize(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("tablebase: HEAD %s: %s", url, resp.Status)
	}
	if resp.ContentLength < 0 {
		return 0, fmt.Errorf("tablebase: %s: server did not report a size", url)
	}
	return resp.ContentLength, nil
}

func (f *Fetcher) download(ctx context.Context, url, dest string, want int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tablebase: GET %s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(f.Dir, ".fetch-*")
	if err != nil {
		return err
	}
	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("tablebase: download %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if n != want {
		os.Remove(tmp.Name())
		return fmt.Errorf("tablebase: %s: got %d bytes, want %d", url, n, want)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	log.Info().Str("file", filepath.Base(dest)).Int64("bytes", n).Msg("fetched")
	return nil
}
