// Package crawler finds source files worth splitting and extracts them
// concurrently.
package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"modsplit/internal/extractor"
	"modsplit/internal/model"

	"golang.org/x/sync/errgroup"
)

// Source is one candidate file.
type Source struct {
	Path  string
	Lines int
}

// Crawler scans a directory for source files.
type Crawler struct {
	extractor *extractor.Extractor
	logger    *slog.Logger
	ignored   []string
	ext       string
	minLines  int
	workers   int
	only      map[string]bool
}

// Option tweaks a Crawler.
type Option func(*Crawler)

// WithMinLines skips files with at most n lines.
func WithMinLines(n int) Option {
	return func(c *Crawler) { c.minLines = n }
}

// WithWorkers bounds the number of files extracted at once.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithExtension changes the file extension searched for.
func WithExtension(ext string) Option {
	return func(c *Crawler) { c.ext = ext }
}

// WithOnly restricts a directory walk to the given paths.
func WithOnly(paths []string) Option {
	return func(c *Crawler) {
		c.only = make(map[string]bool, len(paths))
		for _, p := range paths {
			c.only[filepath.Clean(p)] = true
		}
	}
}

// NewCrawler creates a new crawler instance.
func NewCrawler(ext *extractor.Extractor, logger *slog.Logger, opts ...Option) *Crawler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Crawler{
		extractor: ext,
		logger:    logger,
		ignored:   []string{".git", "target", "node_modules", "testdata"},
		ext:       ".rs",
		workers:   4,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Find lists the candidate files under root in path order. A root that
// is a file is returned as is, whatever its size.
func (c *Crawler) Find(root string) ([]Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		n, err := countLines(root)
		if err != nil {
			return nil, err
		}
		return []Source{{Path: root, Lines: n}}, nil
	}

	var out []Source
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			if path != root && c.isIgnored(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), c.ext) {
			return nil
		}
		if c.only != nil && !c.only[filepath.Clean(path)] {
			return nil
		}
		n, err := countLines(path)
		if err != nil {
			return err
		}
		if n <= c.minLines {
			return nil
		}
		out = append(out, Source{Path: path, Lines: n})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (c *Crawler) isIgnored(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, ign := range c.ignored {
		if name == ign {
			return true
		}
	}
	return false
}

// ScanProject extracts every candidate under root and hands each program
// to onProgram, never concurrently. Files that fail to parse are logged
// and skipped when root is a directory; a single file root reports its
// error. An error from onProgram stops the scan.
func (c *Crawler) ScanProject(ctx context.Context, root string, onProgram func(*model.Program) error) error {
	sources, err := c.Find(root)
	if err != nil {
		return err
	}
	single := len(sources) == 1 && sources[0].Path == root

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	var mu sync.Mutex

	for _, src := range sources {
		g.Go(func() error {
			data, err := os.ReadFile(src.Path)
			if err != nil {
				return err
			}
			prog, err := c.extractor.ExtractFromSource(ctx, src.Path, data)
			if err != nil {
				if single || ctx.Err() != nil {
					return err
				}
				c.logger.Warn("skipping file", "path", src.Path, "error", err)
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if err := onProgram(prog); err != nil {
				return fmt.Errorf("%s: %w", src.Path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func countLines(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	n := bytes.Count(data, []byte("\n"))
	if data[len(data)-1] != '\n' {
		n++
	}
	return n, nil
}
