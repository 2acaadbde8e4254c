package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetpulse/internal/shared/testutil"
)

func newTestRegistry(t *testing.T) (*Registry, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)
	r := NewRegistry(NewMemoryStore(), nil, logger)
	r.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("IST", 19800)) }
	return r, handler
}

func TestRegistry_AddListGetRemove(t *testing.T) {
	ctx := context.Background()
	r, logs := newTestRegistry(t)

	list, err := r.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	src, err := r.Add(ctx, "  North Zone ", " https://docs.google.com/spreadsheets/d/abc/edit ")
	require.NoError(t, err)
	assert.Equal(t, "North Zone", src.Name)
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/abc/edit", src.Locator)
	assert.Equal(t, time.UTC, src.CreatedAt.Location())

	_, err = r.Add(ctx, "Bucket", "gs://reports/2024/packets.xlsx")
	require.NoError(t, err)

	got, err := r.Get(ctx, "North Zone")
	require.NoError(t, err)
	assert.Equal(t, src, got)

	list, err = r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"North Zone", "Bucket"}, names(list))

	require.NoError(t, r.Remove(ctx, "North Zone"))
	_, err = r.Get(ctx, "North Zone")
	assert.True(t, errors.Is(err, ErrSourceNotFound))

	assert.True(t, logs.ContainsMessage("source added"))
	assert.True(t, logs.ContainsMessage("source removed"))
	assert.True(t, logs.ContainsAttr("component", "source_registry"))
}

func TestRegistry_Add_Rejects(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t)
	_, err := r.Add(ctx, "dup", "https://example.com/a.xlsx")
	require.NoError(t, err)

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'n'
	}

	tests := []struct {
		name    string
		srcName string
		locator string
		target  error
	}{
		{"duplicate", "dup", "https://example.com/b.xlsx", ErrSourceExists},
		{"blank name", "   ", "https://example.com/b.xlsx", nil},
		{"name too long", string(long), "https://example.com/b.xlsx", nil},
		{"blank locator", "x", "", nil},
		{"not a url", "x", "reports.xlsx", nil},
		{"unsupported scheme", "x", "ftp://example.com/a.xlsx", ErrUnsupportedLocator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Add(ctx, tt.srcName, tt.locator)
			require.Error(t, err)
			if tt.target != nil {
				assert.True(t, errors.Is(err, tt.target), "got %v", err)
			} else {
				assert.Contains(t, err.Error(), "invalid")
			}
		})
	}

	list, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRegistry_Remove_Unknown(t *testing.T) {
	r, _ := newTestRegistry(t)
	err := r.Remove(context.Background(), "ghost")
	assert.True(t, errors.Is(err, ErrSourceNotFound))
	assert.Contains(t, err.Error(), "ghost")
}
