package pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jinford/pdf-ingest/internal/core/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvenance struct {
	metadata map[string]any
	err      error
	calls    int
}

func (s *stubProvenance) Resolve(dir string) (map[string]any, error) {
	s.calls++
	return s.metadata, s.err
}

// fakeParser はファイル内容をそのまま1ページとして返す
func fakeParser(path string) ([]ingestion.Page, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []ingestion.Page{{Number: 0, Text: string(b)}}, nil
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoader_EmptyDirectory(t *testing.T) {
	prov := &stubProvenance{}
	loader := NewLoader(t.TempDir(), WithPageParser(fakeParser), WithProvenance(prov))

	docs, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, 0, prov.calls)
}

func TestLoader_MissingDirectory(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "missing"), WithPageParser(fakeParser))

	docs, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Nil(t, docs)
	assert.ErrorIs(t, err, ingestion.ErrSourceUnavailable)
}

func TestLoader_RootIsFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "file.pdf", "x")

	loader := NewLoader(filepath.Join(root, "file.pdf"), WithPageParser(fakeParser))
	_, err := loader.Load(context.Background())
	assert.ErrorIs(t, err, ingestion.ErrSourceUnavailable)
}

func TestLoader_DiscoversMatchingFilesInPathOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.pdf", "second")
	writeFile(t, root, "a.pdf", "first")
	writeFile(t, root, "nested/deep/c.pdf", "third")
	writeFile(t, root, "notes.txt", "ignored")
	writeFile(t, root, ".cache/hidden.pdf", "hidden")
	writeFile(t, root, ".hidden.pdf", "hidden file")
	writeFile(t, root, "nested/.draft.pdf", "hidden nested file")
	writeFile(t, root, "drafts/draft.pdf", "draft")
	writeFile(t, root, ".ingestignore", "drafts/\n")

	loader := NewLoader(root, WithPageParser(fakeParser))
	docs, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, filepath.Join(root, "a.pdf"), docs[0].Source)
	assert.Equal(t, filepath.Join(root, "b.pdf"), docs[1].Source)
	assert.Equal(t, filepath.Join(root, "nested", "deep", "c.pdf"), docs[2].Source)
	assert.Equal(t, "first", docs[0].Pages[0].Text)
	assert.Equal(t, docs[0].Source, docs[0].Metadata[ingestion.MetaSource])
	assert.Equal(t, 1, docs[0].Metadata[ingestion.MetaTotalPages])
}

func TestLoader_SymlinkedRoot(t *testing.T) {
	target := t.TempDir()
	writeFile(t, target, "a.pdf", "first")
	writeFile(t, target, "nested/b.pdf", "second")

	root := filepath.Join(t.TempDir(), "Data")
	if err := os.Symlink(target, root); err != nil {
		t.Skipf("symlink not supported: %v", err)
	}

	docs, err := NewLoader(root, WithPageParser(fakeParser)).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// パスは指定したルート基準のまま
	assert.Equal(t, filepath.Join(root, "a.pdf"), docs[0].Source)
	assert.Equal(t, filepath.Join(root, "nested", "b.pdf"), docs[1].Source)
	assert.Equal(t, "second", docs[1].Pages[0].Text)
}

func TestLoader_ParseFailure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "broken.pdf", "x")

	parseErr := errors.New("corrupt xref")
	loader := NewLoader(root, WithPageParser(func(string) ([]ingestion.Page, error) {
		return nil, parseErr
	}))

	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ingestion.ErrParseFailed)
	assert.ErrorIs(t, err, parseErr)
	assert.Contains(t, err.Error(), "broken.pdf")
}

func TestLoader_Provenance(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.pdf", "x")

	t.Run("出自情報をメタデータに付与", func(t *testing.T) {
		prov := &stubProvenance{metadata: map[string]any{ingestion.MetaSourceCommit: "deadbeef"}}
		docs, err := NewLoader(root, WithPageParser(fakeParser), WithProvenance(prov)).Load(context.Background())
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "deadbeef", docs[0].Metadata[ingestion.MetaSourceCommit])
		assert.Equal(t, 1, prov.calls)
	})

	t.Run("出自情報の失敗は無視", func(t *testing.T) {
		prov := &stubProvenance{err: errors.New("boom")}
		docs, err := NewLoader(root, WithPageParser(fakeParser), WithProvenance(prov)).Load(context.Background())
		require.NoError(t, err)
		require.Len(t, docs, 1)
		_, ok := docs[0].Metadata[ingestion.MetaSourceCommit]
		assert.False(t, ok)
	})
}

func TestLoader_CanceledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.pdf", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(root, WithPageParser(fakeParser)).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParsePages_NotAPDF(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "fake.pdf", "this is not a pdf")

	pages, err := ParsePages(filepath.Join(root, "fake.pdf"))
	require.Error(t, err)
	assert.Nil(t, pages)
}

func TestParsePages_MultiPage(t *testing.T) {
	pages, err := ParsePages(filepath.Join("testdata", "two_pages.pdf"))
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, 0, pages[0].Number)
	assert.Equal(t, 1, pages[1].Number)
	assert.Contains(t, pages[0].Text, "Hello page one")
	assert.Contains(t, pages[1].Text, "Second page text")
	assert.NotContains(t, pages[0].Text, "Second page text")
}

func TestLoader_DefaultParser(t *testing.T) {
	docs, err := NewLoader("testdata").Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, filepath.Join("testdata", "two_pages.pdf"), docs[0].Source)
	assert.Len(t, docs[0].Pages, 2)
	assert.Equal(t, 2, docs[0].Metadata[ingestion.MetaTotalPages])
}
