package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eivindbakke/merkelapp/internal/testutil"
)

func TestResolvePhoto(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	db.SeedPhoto(ctx, "photo-1")

	// Library ID wins when it matches
	photo, err := resolvePhoto(ctx, db.Storage, "photo-1")
	require.NoError(t, err)
	assert.Equal(t, "photo-1", photo.ID)

	// The imported file path works as a fallback
	photo, err = resolvePhoto(ctx, db.Storage, "asset-photo-1")
	require.NoError(t, err)
	assert.Equal(t, "photo-1", photo.ID)
	assert.Equal(t, "asset-photo-1", photo.AssetID)
}

func TestResolvePhoto_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := resolvePhoto(ctx, db.Storage, "no-such-photo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `photo "no-such-photo" not found`)
}
