package local

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarflow/solarshop-backend/pkg/storage"
)

func TestDiskPutGetExists(t *testing.T) {
	disk, err := New(t.TempDir(), "invoices")
	require.NoError(t, err)
	ctx := context.Background()

	objectPath, err := disk.Put(ctx, "invoice_INV-1.pdf", []byte("%PDF-1.3"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "invoices/invoice_INV-1.pdf", objectPath)

	ok, err := disk.Exists(ctx, objectPath)
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := disk.Get(ctx, objectPath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))

	_, err = disk.Put(ctx, "invoice_INV-1.pdf", []byte("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)
	data, err = disk.Get(ctx, objectPath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestDiskMissingAndTraversal(t *testing.T) {
	disk, err := New(t.TempDir(), "invoices")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = disk.Get(ctx, "invoices/missing.pdf")
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	ok, err := disk.Exists(ctx, "invoices/missing.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = disk.Get(ctx, "../etc/passwd")
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	_, err = disk.Put(ctx, "../../escape.pdf", []byte("x"), "application/pdf")
	assert.Error(t, err)
}

func TestObjectPath(t *testing.T) {
	assert.Equal(t, "invoices/a.pdf", storage.ObjectPath("/invoices/", "/a.pdf"))
	assert.Equal(t, "a.pdf", storage.ObjectPath("", "a.pdf"))
	assert.False(t, storage.ValidObjectPath("/abs.pdf"))
	assert.False(t, storage.ValidObjectPath("a/../b.pdf"))
	assert.True(t, storage.ValidObjectPath("invoices/a.pdf"))
}
