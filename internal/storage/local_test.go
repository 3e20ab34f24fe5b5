package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProvider_SaveAndOpen(t *testing.T) {
	p := NewLocalProvider(t.TempDir())
	ctx := context.Background()

	data := []byte("Name,Age\nGeorge,15\n")
	require.NoError(t, p.Save(ctx, "exports/abc.csv", data))

	r, err := p.Open(ctx, "exports/abc.csv")
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLocalProvider_RejectsTraversal(t *testing.T) {
	p := NewLocalProvider(t.TempDir())
	ctx := context.Background()

	err := p.Save(ctx, "../escape.csv", []byte("x"))
	require.Error(t, err)

	_, err = p.Open(ctx, "exports/../../etc/passwd")
	require.Error(t, err)

	err = p.Save(ctx, "", []byte("x"))
	require.Error(t, err)
}

func TestLocalProvider_OpenMissingKey(t *testing.T) {
	p := NewLocalProvider(t.TempDir())
	_, err := p.Open(context.Background(), "exports/missing.csv")
	require.Error(t, err)
}
