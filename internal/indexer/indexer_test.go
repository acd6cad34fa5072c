package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semdexhq/semdex/internal/embedder"
	"github.com/semdexhq/semdex/internal/storage"
	"github.com/semdexhq/semdex/pkg/types"
)

func setupTestIndexer(t *testing.T) (*Indexer, storage.Storage) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "index.db")
	store, err := storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	emb, err := embedder.New(embedder.Config{Provider: embedder.ProviderLocal, CacheSize: 100})
	require.NoError(t, err)

	return New(store, emb), store
}

func writeTestFile(t *testing.T, dir, name, content string) types.FileDescriptor {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return types.FileDescriptor{Path: path, SizeBytes: int64(len(content))}
}

func TestBuildIndex_Default(t *testing.T) {
	idx, store := setupTestIndexer(t)
	root := t.TempDir()

	files := []types.FileDescriptor{
		writeTestFile(t, root, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hello\")\n}\n"),
		writeTestFile(t, root, "util/strings.go", "package util\n\nfunc Upper(s string) string {\n\treturn s\n}\n"),
	}

	stats, err := idx.BuildIndex(context.Background(), root, files, types.IndexModeDefault, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Equal(t, 0, stats.FilesFailed)
	assert.Greater(t, stats.ChunksCreated, 0)
	assert.Equal(t, 0, stats.EmbeddingsCreated, "default mode must not embed")
	assert.Empty(t, stats.ErrorMessages)

	project, err := store.GetProject(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, string(types.IndexModeDefault), project.Mode)
	assert.Equal(t, 2, project.TotalFiles)
}

func TestBuildIndex_AllModeGeneratesEmbeddings(t *testing.T) {
	idx, _ := setupTestIndexer(t)
	root := t.TempDir()

	files := []types.FileDescriptor{
		writeTestFile(t, root, "auth.go", "package auth\n\nfunc Validate(token string) bool {\n\treturn token != \"\"\n}\n"),
	}

	stats, err := idx.BuildIndex(context.Background(), root, files, types.IndexModeAll, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, stats.ChunksCreated, stats.EmbeddingsCreated)
	assert.Greater(t, stats.EmbeddingsCreated, 0)
}

func TestBuildIndex_SkipsUnchangedFiles(t *testing.T) {
	idx, _ := setupTestIndexer(t)
	root := t.TempDir()

	files := []types.FileDescriptor{
		writeTestFile(t, root, "a.py", "def hello():\n    return 1\n"),
	}

	ctx := context.Background()
	first, err := idx.BuildIndex(ctx, root, files, types.IndexModeDefault, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.FilesIndexed)

	second, err := idx.BuildIndex(ctx, root, files, types.IndexModeDefault, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.FilesIndexed)
	assert.Equal(t, 1, second.FilesSkipped)
}

func TestBuildIndex_ReindexesChangedFiles(t *testing.T) {
	idx, store := setupTestIndexer(t)
	root := t.TempDir()
	ctx := context.Background()

	fd := writeTestFile(t, root, "a.txt", "original content here\n")
	_, err := idx.BuildIndex(ctx, root, []types.FileDescriptor{fd}, types.IndexModeDefault, nil)
	require.NoError(t, err)

	fd = writeTestFile(t, root, "a.txt", "completely different content now\nwith a second line\n")
	stats, err := idx.BuildIndex(ctx, root, []types.FileDescriptor{fd}, types.IndexModeDefault, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 0, stats.FilesSkipped)

	project, err := store.GetProject(ctx, root)
	require.NoError(t, err)
	file, err := store.GetFile(ctx, project.ID, "a.txt")
	require.NoError(t, err)
	chunks, err := store.ListChunksByFile(ctx, file.ID)
	require.NoError(t, err)
	for _, chunk := range chunks {
		assert.Contains(t, chunk.Content, "different")
	}
}

func TestBuildIndex_MissingFileRecordedNotFatal(t *testing.T) {
	idx, _ := setupTestIndexer(t)
	root := t.TempDir()

	files := []types.FileDescriptor{
		{Path: filepath.Join(root, "gone.go"), SizeBytes: 10},
		writeTestFile(t, root, "here.go", "package here\n"),
	}

	stats, err := idx.BuildIndex(context.Background(), root, files, types.IndexModeDefault, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesFailed)
	require.Len(t, stats.ErrorMessages, 1)
	assert.Contains(t, stats.ErrorMessages[0], "gone.go")
}

func TestBuildIndex_EmptyFileList(t *testing.T) {
	idx, store := setupTestIndexer(t)
	root := t.TempDir()

	stats, err := idx.BuildIndex(context.Background(), root, nil, types.IndexModeDefault, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesIndexed)

	project, err := store.GetProject(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 0, project.TotalFiles)
}

func TestBuildIndex_StoresLanguage(t *testing.T) {
	idx, store := setupTestIndexer(t)
	root := t.TempDir()
	ctx := context.Background()

	files := []types.FileDescriptor{
		writeTestFile(t, root, "script.py", "print('hi')\n"),
		writeTestFile(t, root, "notes", "plain text notes\n"),
	}

	_, err := idx.BuildIndex(ctx, root, files, types.IndexModeDefault, nil)
	require.NoError(t, err)

	project, err := store.GetProject(ctx, root)
	require.NoError(t, err)

	py, err := store.GetFile(ctx, project.ID, "script.py")
	require.NoError(t, err)
	assert.Equal(t, "python", py.Language)

	plain, err := store.GetFile(ctx, project.ID, "notes")
	require.NoError(t, err)
	assert.Equal(t, types.LanguageUnknown, plain.Language)
}
