package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"sheetpulse/internal/config"
	"sheetpulse/internal/dataprocessing"
	apierrors "sheetpulse/internal/errors"
	"sheetpulse/internal/middleware"
	"sheetpulse/internal/services"
	"sheetpulse/internal/shared/testutil"
	"sheetpulse/internal/sources"
	"sheetpulse/internal/validation"
	"sheetpulse/pkg/contracts/domain"
)

// stubFetcher serves workbooks keyed by source name
type stubFetcher struct {
	workbooks map[string][]byte
}

func (f *stubFetcher) FetchAll(ctx context.Context, srcs []domain.NamedSource) ([]sources.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]sources.FetchResult, 0, len(srcs))
	for _, src := range srcs {
		res := sources.FetchResult{Source: src}
		data, ok := f.workbooks[src.Name]
		if !ok {
			res.Err = fmt.Errorf("GET %s: 404 Not Found", src.Locator)
		} else {
			res.Table, res.Err = dataprocessing.ParseWorkbook(src.Name+".xlsx", bytes.NewReader(data))
		}
		out = append(out, res)
	}
	return out, nil
}

type fixedClients int

func (c fixedClients) ClientCount() int { return int(c) }

type testEnv struct {
	server   *httptest.Server
	store    *services.DatasetStore
	registry *sources.Registry
}

// newTestEnv wires real services behind a chi router
func newTestEnv(t *testing.T, upload config.UploadConfig, fetcher services.SourceFetcher) *testEnv {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)

	store := services.NewDatasetStore(10)
	registry := sources.NewRegistry(sources.NewMemoryStore(), nil, logger)
	ingest := services.NewIngestService(store, nil, nil, logger)
	reports := services.NewReportService(store, nil, logger)
	srcSvc := services.NewSourceService(registry, fetcher, ingest, nil, logger)
	health := services.NewHealthService("v-test", registry, store, fixedClients(0), logger)

	errorHandler := apierrors.NewErrorHandler(logger, false)
	validator := middleware.NewRequestValidator()
	files := validation.NewFileValidator(upload, logger)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		healthHandler := NewHealthHandler(health, logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
		r.Mount("/datasets", NewDatasetHandler(ingest, reports, files, validator, errorHandler, logger).Routes())
		r.Mount("/sources", NewSourceHandler(srcSvc, validator, errorHandler, logger).Routes())
		r.Post("/logs", NewClientLogHandler(validator, errorHandler, logger).Handle)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return &testEnv{server: server, store: store, registry: registry}
}

type uploadPart struct {
	name string
	data []byte
}

func (e *testEnv) upload(t *testing.T, parts ...uploadPart) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		fw, err := mw.CreateFormFile("files", p.name)
		require.NoError(t, err)
		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(e.server.URL+"/api/datasets", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type problem struct {
	Type      string `json:"type"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code"`
}
