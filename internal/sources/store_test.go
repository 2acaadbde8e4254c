package sources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "sheetpulse/internal/errors"
	"sheetpulse/pkg/contracts/domain"
)

// linkAPI serves the remote link API over a MemoryStore.
func linkAPI(t *testing.T, wrapped bool) *httptest.Server {
	t.Helper()
	backing := NewMemoryStore()

	r := chi.NewRouter()
	r.Get("/links", func(w http.ResponseWriter, r *http.Request) {
		links, _ := backing.List(r.Context())
		if links == nil {
			links = []domain.NamedSource{}
		}
		if wrapped {
			render.JSON(w, r, map[string]any{"links": links})
			return
		}
		render.JSON(w, r, links)
	})
	r.Post("/links", func(w http.ResponseWriter, r *http.Request) {
		var src domain.NamedSource
		if err := json.NewDecoder(r.Body).Decode(&src); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := backing.Insert(r.Context(), src); err != nil {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	r.Delete("/links/{name}", func(w http.ResponseWriter, r *http.Request) {
		if err := backing.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func storeBackends(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"file": func(t *testing.T) Store {
			s, err := NewFileStore(filepath.Join(t.TempDir(), "data", "sources.json"))
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sources.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"http": func(t *testing.T) Store {
			s, err := NewHTTPStore(linkAPI(t, true).URL, "", time.Second)
			require.NoError(t, err)
			return s
		},
		"http bare array": func(t *testing.T) Store {
			s, err := NewHTTPStore(linkAPI(t, false).URL+"/", "secret", time.Second)
			require.NoError(t, err)
			return s
		},
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for name, newStore := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			list, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, list)

			for _, n := range []string{"north", "south", "east"} {
				require.NoError(t, s.Insert(ctx, domain.NamedSource{
					Name:      n,
					Locator:   "https://example.com/" + n + ".xlsx",
					CreatedAt: created,
				}))
			}

			err = s.Insert(ctx, domain.NamedSource{Name: "south", Locator: "https://other.example/x.csv"})
			assert.True(t, errors.Is(err, ErrSourceExists), "got %v", err)

			list, err = s.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, []string{"north", "south", "east"}, names(list))
			assert.Equal(t, "https://example.com/south.xlsx", list[1].Locator)

			require.NoError(t, s.Delete(ctx, "south"))
			assert.True(t, errors.Is(s.Delete(ctx, "south"), ErrSourceNotFound))

			list, err = s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"north", "east"}, names(list))
		})
	}
}

func names(list []domain.NamedSource) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.Name
	}
	return out
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sources.json")

	first, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Insert(ctx, domain.NamedSource{Name: "a", Locator: "https://x.io/a.csv"}))

	second, err := NewFileStore(path)
	require.NoError(t, err)
	list, err := second.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names(list))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"links"`)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := NewFileStore(path)
	require.NoError(t, err)
	_, err = s.List(context.Background())
	assert.Error(t, err)
}

func TestNewHTTPStore_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "ftp://x", "not a url", "http://"} {
		_, err := NewHTTPStore(u, "", 0)
		assert.Error(t, err, u)
	}
}

func TestHTTPStore_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s, err := NewHTTPStore(srv.URL, "k", time.Second)
	require.NoError(t, err)

	_, err = s.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.ErrTypeStorage, appErr.Type)

	err = s.Insert(context.Background(), domain.NamedSource{Name: "a", Locator: "https://x.io"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSourceExists))
}

func TestHTTPStore_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s, err := NewHTTPStore(url, "", time.Second)
	require.NoError(t, err)

	_, err = s.List(context.Background())
	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.ErrTypeNetwork, appErr.Type)
	assert.Equal(t, "http", appErr.Context["backend"])
}
