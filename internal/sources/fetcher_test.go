package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetpulse/internal/config"
	apierrors "sheetpulse/internal/errors"
	"sheetpulse/internal/shared/testutil"
	"sheetpulse/pkg/contracts/domain"
)

const packetCSV = "Account,A/C Holder Name,State,Jan,Feb\n101,Asha,MH,10,20\n102,Ravi,KA,5,\n"

type fakeSheetReader struct {
	values [][]any
	err    error
	gotID  string
	gotGID string
}

func (f *fakeSheetReader) ReadSheet(_ context.Context, id, gid string) ([][]any, error) {
	f.gotID, f.gotGID = id, gid
	return f.values, f.err
}

type fakeObjects struct {
	data map[string][]byte
}

func (f *fakeObjects) Open(_ context.Context, bucket, object string) (io.ReadCloser, error) {
	b, ok := f.data[bucket+"/"+object]
	if !ok {
		return nil, errors.New("storage: object doesn't exist")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func testSourcesConfig() config.SourcesConfig {
	return config.SourcesConfig{
		FetchTimeout:         5 * time.Second,
		MaxConcurrentFetches: 2,
		MaxDownloadSize:      1 << 20,
	}
}

func newTestFetcher(t *testing.T, opts ...FetcherOption) *Fetcher {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	f, err := NewFetcher(context.Background(), testSourcesConfig(), nil, logger, opts...)
	require.NoError(t, err)
	return f
}

func fileServer(t *testing.T) *httptest.Server {
	t.Helper()
	xlsx := testutil.Workbook(t, testutil.InvoiceSheet)

	mux := http.NewServeMux()
	mux.HandleFunc("/files/packets.csv", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, packetCSV)
	})
	mux.HandleFunc("/files/invoices.xlsx", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		_, _ = w.Write(xlsx)
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = io.WriteString(w, packetCSV)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<html>sign in</html>")
	})
	mux.HandleFunc("/spreadsheets/d/SHEET/export", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "csv", r.URL.Query().Get("format"))
		assert.Equal(t, "9", r.URL.Query().Get("gid"))
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, packetCSV)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetcher_Fetch(t *testing.T) {
	srv := fileServer(t)
	sheets := &fakeSheetReader{values: [][]any{
		{"Account", "A/C Holder Name", "State", "Jan"},
		{float64(7), "Kiran", "TN", float64(3)},
	}}
	objects := &fakeObjects{data: map[string][]byte{
		"reports/q1/invoices.xlsx": testutil.Workbook(t, testutil.InvoiceSheet),
	}}

	tests := []struct {
		name     string
		opts     []FetcherOption
		locator  string
		wantCols []string
		wantRows int
		wantErr  string
	}{
		{
			name:     "direct csv",
			opts:     []FetcherOption{WithHTTPClient(srv.Client())},
			locator:  srv.URL + "/files/packets.csv",
			wantCols: []string{"Account", "A/C Holder Name", "State", "Jan", "Feb"},
			wantRows: 2,
		},
		{
			name:     "direct xlsx",
			opts:     []FetcherOption{WithHTTPClient(srv.Client())},
			locator:  srv.URL + "/files/invoices.xlsx",
			wantCols: []string{"Sr No", "Invoice No", "Account Holder Name", "Customer Name", "Amount"},
			wantRows: 3,
		},
		{
			name:     "csv by content type",
			opts:     []FetcherOption{WithHTTPClient(srv.Client())},
			locator:  srv.URL + "/download?id=1",
			wantRows: 2,
		},
		{
			name:    "html page",
			opts:    []FetcherOption{WithHTTPClient(srv.Client())},
			locator: srv.URL + "/login",
			wantErr: "not publicly readable",
		},
		{
			name:    "missing file",
			opts:    []FetcherOption{WithHTTPClient(srv.Client())},
			locator: srv.URL + "/files/nope.xlsx",
			wantErr: "404",
		},
		{
			name:     "google sheet csv export",
			opts:     []FetcherOption{WithHTTPClient(srv.Client()), WithCSVExportBase(srv.URL)},
			locator:  "https://docs.google.com/spreadsheets/d/SHEET/edit#gid=9",
			wantRows: 2,
		},
		{
			name:     "google sheet api",
			opts:     []FetcherOption{WithSheetReader(sheets)},
			locator:  "https://docs.google.com/spreadsheets/d/API_ID/edit",
			wantCols: []string{"Account", "A/C Holder Name", "State", "Jan"},
			wantRows: 1,
		},
		{
			name:     "gcs object",
			opts:     []FetcherOption{WithObjectOpener(objects)},
			locator:  "gs://reports/q1/invoices.xlsx",
			wantRows: 3,
		},
		{
			name:    "gcs missing object",
			opts:    []FetcherOption{WithObjectOpener(objects)},
			locator: "gs://reports/q2/invoices.xlsx",
			wantErr: "doesn't exist",
		},
		{
			name:    "unsupported",
			locator: "ftp://example.com/x.csv",
			wantErr: "unsupported",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFetcher(t, tt.opts...)
			table, err := f.Fetch(context.Background(), domain.NamedSource{Name: "src", Locator: tt.locator})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, table)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "src", table.Name)
			if tt.wantCols != nil {
				assert.Equal(t, tt.wantCols, table.Columns)
			}
			assert.Len(t, table.Rows, tt.wantRows)
		})
	}

	assert.Equal(t, "API_ID", sheets.gotID)
	assert.Empty(t, sheets.gotGID)
}

func TestFetcher_DownloadLimit(t *testing.T) {
	var big strings.Builder
	big.WriteString("Account,A/C Holder Name,State,Jan,Feb\n")
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&big, "%d,Holder %d,MH,%d,%d\n", 1000+i, i, i, i+1)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, big.String())
	}))
	defer srv.Close()

	objects := &fakeObjects{data: map[string][]byte{"reports/big.csv": []byte(big.String())}}
	files := fileServer(t)

	tests := []struct {
		name    string
		locator string
		client  *http.Client
	}{
		{"csv download", srv.URL + "/big.csv", srv.Client()},
		{"xlsx download", files.URL + "/files/invoices.xlsx", files.Client()},
		{"cloud storage object", "gs://reports/big.csv", srv.Client()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			cfg := testSourcesConfig()
			cfg.MaxDownloadSize = 1000

			f, err := NewFetcher(context.Background(), cfg, nil, logger,
				WithHTTPClient(tt.client), WithObjectOpener(objects))
			require.NoError(t, err)

			table, err := f.Fetch(context.Background(), domain.NamedSource{Name: "big", Locator: tt.locator})
			assert.Nil(t, table)
			assert.ErrorIs(t, err, ErrDownloadTooLarge)
		})
	}

	t.Run("file at the limit", func(t *testing.T) {
		logger, _ := testutil.NewTestLogger(t)
		cfg := testSourcesConfig()
		cfg.MaxDownloadSize = int64(len(packetCSV))

		f, err := NewFetcher(context.Background(), cfg, nil, logger, WithHTTPClient(files.Client()))
		require.NoError(t, err)

		table, err := f.Fetch(context.Background(), domain.NamedSource{Name: "packets", Locator: files.URL + "/files/packets.csv"})
		require.NoError(t, err)
		assert.Len(t, table.Rows, 2)
	})
}

func TestFetcher_UnreadableDownload(t *testing.T) {
	objects := &fakeObjects{data: map[string][]byte{"reports/junk.xlsx": []byte("PK\x03\x04 not really a zip")}}
	f := newTestFetcher(t, WithObjectOpener(objects))

	_, err := f.Fetch(context.Background(), domain.NamedSource{Name: "junk", Locator: "gs://reports/junk.xlsx"})
	require.Error(t, err)

	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.ErrTypeParsing, appErr.Type)
	assert.Equal(t, "junk.xlsx", appErr.Context["file"])
}

func TestFetcher_FetchAll(t *testing.T) {
	var inFlight, peak int32
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)

		if r.URL.Path == "/broken.csv" {
			http.Error(w, "gone", http.StatusGone)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, packetCSV)
	}))
	defer srv.Close()

	f := newTestFetcher(t, WithHTTPClient(srv.Client()))
	srcs := []domain.NamedSource{
		{Name: "a", Locator: srv.URL + "/a.csv"},
		{Name: "b", Locator: srv.URL + "/broken.csv"},
		{Name: "c", Locator: srv.URL + "/c.csv"},
		{Name: "d", Locator: srv.URL + "/d.csv"},
		{Name: "e", Locator: "ftp://nowhere/e.csv"},
	}

	results, err := f.FetchAll(context.Background(), srcs)
	require.NoError(t, err)
	require.Len(t, results, len(srcs))

	for i, res := range results {
		assert.Equal(t, srcs[i].Name, res.Source.Name)
	}
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.NoError(t, results[3].Err)
	assert.ErrorIs(t, results[4].Err, ErrUnsupportedLocator)
	assert.Equal(t, domain.LocatorUnsupported, results[4].Kind)
	assert.Equal(t, "c", results[2].Table.Name)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int32(2))
}

func TestFetcher_FetchAll_Cancelled(t *testing.T) {
	f := newTestFetcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := f.FetchAll(ctx, []domain.NamedSource{{Name: "a", Locator: "https://example.invalid/a.csv"}})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}

func TestWorksheetTitleAndQuote(t *testing.T) {
	assert.Equal(t, "'Sheet1'", quoteSheetTitle("Sheet1"))
	assert.Equal(t, "'Bob''s data'", quoteSheetTitle("Bob's data"))
}
