package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"modsplit/internal/config"
	"modsplit/internal/graph"
	"modsplit/internal/model"
	"modsplit/internal/pipeline"
	"modsplit/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testSnapshot(id, source string, at time.Time) *Snapshot {
	return &Snapshot{
		Run: Run{ID: id, Source: source, SourceHash: "abc", CreatedAt: at, Units: 2, Warnings: 1, Cycles: 1},
		Units: []report.UnitMetric{
			{Name: "a", Role: "inline", Path: "a.rs", Lines: 10, Imports: 1},
			{Name: "b", Role: "inline", Path: "b.rs", Lines: 12, Imports: 1},
		},
		Graph: graph.Export{Edges: []graph.Edge{
			{From: "a", To: "b", Kind: graph.RelationImports},
			{From: "b", To: "a", Kind: graph.RelationImports},
		}},
		Warnings: []report.Warning{{
			Code: report.CodeCircularDependency, Stage: "unit_graph", Severity: report.SeverityWarning,
			Unit: "a", Subject: "a -> b -> a", Message: "dependency cycle a -> b -> a",
		}},
	}
}

func TestSQLiteStore_SaveAndLoadRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveRun(ctx, testSnapshot("run-1", "src/lib.rs", at)))

	loaded, err := store.LoadRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, "src/lib.rs", loaded.Run.Source)
	assert.True(t, at.Equal(loaded.Run.CreatedAt))
	assert.Equal(t, 1, loaded.Run.Cycles)
	require.Len(t, loaded.Units, 2)
	assert.Equal(t, "a", loaded.Units[0].Name)
	assert.Equal(t, 12, loaded.Units[1].Lines)

	require.Len(t, loaded.Graph.Edges, 2)
	assert.Equal(t, graph.Edge{From: "a", To: "b", Kind: graph.RelationImports}, loaded.Graph.Edges[0])
	assert.Len(t, loaded.Graph.Nodes, 2)

	require.Len(t, loaded.Warnings, 1)
	assert.Equal(t, report.CodeCircularDependency, loaded.Warnings[0].Code)
	assert.Equal(t, report.SeverityWarning, loaded.Warnings[0].Severity)
	assert.Nil(t, loaded.Report)
}

func TestSQLiteStore_SaveRun_SnapshotSync(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	snap := testSnapshot("run-1", "src/lib.rs", time.Now().UTC())
	require.NoError(t, store.SaveRun(ctx, snap))

	// Saving again with fewer rows replaces the old ones.
	snap.Units = snap.Units[:1]
	snap.Graph.Edges = nil
	snap.Warnings = nil
	require.NoError(t, store.SaveRun(ctx, snap))

	loaded, err := store.LoadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, loaded.Units, 1)
	assert.Empty(t, loaded.Graph.Edges)
	assert.Empty(t, loaded.Warnings)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveRun(ctx, testSnapshot("old", "src/lib.rs", base)))
	require.NoError(t, store.SaveRun(ctx, testSnapshot("new", "src/lib.rs", base.Add(time.Hour))))
	require.NoError(t, store.SaveRun(ctx, testSnapshot("other", "src/main.rs", base.Add(2*time.Hour))))

	all, err := store.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "other", all[0].ID)

	lib, err := store.ListRuns(ctx, "src/lib.rs", 0)
	require.NoError(t, err)
	require.Len(t, lib, 2)
	assert.Equal(t, "new", lib[0].ID)
	assert.Equal(t, "old", lib[1].ID)

	limited, err := store.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteStore_Errors(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.LoadRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	assert.Error(t, store.SaveRun(ctx, &Snapshot{}))
}

func TestNewSnapshot_FromPipeline(t *testing.T) {
	p := &model.Program{
		Path:       "src/pair.rs",
		SourceHash: "hash",
		Types:      []model.TypeDecl{{Name: "A", Span: model.Span{StartLine: 1, EndLine: 3}}, {Name: "B", Span: model.Span{StartLine: 4, EndLine: 6}}},
		Blocks: []model.BehaviorBlock{
			{TypeName: "A", SelfType: "A", Span: model.Span{StartLine: 7, EndLine: 11}, Members: []model.Member{{Name: "peer", Span: model.Span{StartLine: 8, EndLine: 10}, References: []string{"B"}}}},
			{TypeName: "B", SelfType: "B", Span: model.Span{StartLine: 12, EndLine: 16}, Members: []model.Member{{Name: "peer", Span: model.Span{StartLine: 13, EndLine: 15}, References: []string{"A"}}}},
		},
	}
	res, err := pipeline.New(config.Default(), nil).Run(context.Background(), p)
	require.NoError(t, err)

	snap := NewSnapshot(res)
	assert.Equal(t, res.RunID, snap.Run.ID)
	assert.Equal(t, "src/pair.rs", snap.Run.Source)
	assert.Equal(t, "hash", snap.Run.SourceHash)
	assert.Equal(t, 3, snap.Run.Units)
	assert.Equal(t, 2, snap.Run.Cycles)
	assert.Len(t, snap.Units, 3)

	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveRun(ctx, snap))

	loaded, err := store.LoadRun(ctx, res.RunID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Report)
	assert.Equal(t, res.RunID, loaded.Report.RunID)
	assert.Len(t, loaded.Graph.Edges, 2)
	assert.Len(t, loaded.Warnings, 2)
}
