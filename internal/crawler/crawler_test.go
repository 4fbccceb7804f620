package crawler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"modsplit/internal/extractor"
	"modsplit/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func bigSource(name string, fields int) string {
	var b strings.Builder
	b.WriteString("pub struct " + name + " {\n")
	for i := 0; i < fields; i++ {
		b.WriteString("    f" + string(rune('a'+i)) + ": u32,\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func newCrawler(t *testing.T, opts ...Option) *Crawler {
	t.Helper()
	ext, err := extractor.NewExtractor("rust")
	require.NoError(t, err)
	return NewCrawler(ext, nil, opts...)
}

func TestCrawler_Find(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "big.rs"), bigSource("Big", 10))
	writeFile(t, filepath.Join(root, "src", "small.rs"), "struct S;\n")
	writeFile(t, filepath.Join(root, "src", "notes.md"), bigSource("Doc", 10))
	writeFile(t, filepath.Join(root, "target", "gen.rs"), bigSource("Gen", 10))
	writeFile(t, filepath.Join(root, ".hidden", "x.rs"), bigSource("X", 10))

	t.Run("All Sources", func(t *testing.T) {
		found, err := newCrawler(t).Find(root)
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, filepath.Join(root, "src", "big.rs"), found[0].Path)
		assert.Equal(t, 12, found[0].Lines)
		assert.Equal(t, filepath.Join(root, "src", "small.rs"), found[1].Path)
	})

	t.Run("Min Lines", func(t *testing.T) {
		found, err := newCrawler(t, WithMinLines(5)).Find(root)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "big.rs", filepath.Base(found[0].Path))
	})

	t.Run("Only", func(t *testing.T) {
		only := []string{filepath.Join(root, "src", "small.rs"), filepath.Join(root, "src", "gone.rs")}
		found, err := newCrawler(t, WithOnly(only)).Find(root)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "small.rs", filepath.Base(found[0].Path))
	})

	t.Run("Single File Ignores Threshold", func(t *testing.T) {
		path := filepath.Join(root, "src", "small.rs")
		found, err := newCrawler(t, WithMinLines(100)).Find(path)
		require.NoError(t, err)
		assert.Equal(t, []Source{{Path: path, Lines: 1}}, found)
	})

	t.Run("Missing Root", func(t *testing.T) {
		_, err := newCrawler(t).Find(filepath.Join(root, "nope"))
		assert.Error(t, err)
	})
}

func TestCrawler_ScanProject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.rs"), bigSource("Alpha", 3))
	writeFile(t, filepath.Join(root, "b.rs"), bigSource("Beta", 3))
	writeFile(t, filepath.Join(root, "broken.rs"), "pub struct {\n")

	t.Run("Skips Broken Files In Directories", func(t *testing.T) {
		var names []string
		err := newCrawler(t, WithWorkers(2)).ScanProject(context.Background(), root, func(p *model.Program) error {
			require.Len(t, p.Types, 1)
			assert.NotEmpty(t, p.SourceHash)
			names = append(names, p.Types[0].Name)
			return nil
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Alpha", "Beta"}, names)
	})

	t.Run("Single Broken File Fails", func(t *testing.T) {
		err := newCrawler(t).ScanProject(context.Background(), filepath.Join(root, "broken.rs"), func(*model.Program) error {
			return nil
		})
		assert.ErrorIs(t, err, extractor.ErrSyntax)
	})

	t.Run("Callback Error Stops Scan", func(t *testing.T) {
		stop := errors.New("stop")
		err := newCrawler(t).ScanProject(context.Background(), root, func(*model.Program) error {
			return stop
		})
		assert.ErrorIs(t, err, stop)
	})
}
