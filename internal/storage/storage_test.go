package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutGet(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	key := PDFKey("doc-1", "run-1")
	require.NoError(t, s.Put(ctx, key, []byte("%PDF-1"), "application/pdf"))
	require.NoError(t, s.Put(ctx, key, []byte("%PDF-2"), "application/pdf"))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-2", string(got))

	_, err = os.Stat(filepath.Join(root, "compiled", "doc-1", "run-1.pdf"))
	assert.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(root, "compiled", "doc-1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestLocalStore_NotFound(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	_, err = s.Get(context.Background(), "compiled/missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, s.Put(context.Background(), "../escape.pdf", []byte("x"), ""))
	_, err = s.Get(context.Background(), "compiled/../../etc/passwd")
	assert.Error(t, err)
}

func TestPDFKey(t *testing.T) {
	assert.Equal(t, "compiled/abc/r1.pdf", PDFKey("abc", "r1"))
}
