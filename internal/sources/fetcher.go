package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"sheetpulse/internal/config"
	"sheetpulse/internal/dataprocessing"
	apierrors "sheetpulse/internal/errors"
	"sheetpulse/internal/infrastructure"
	"sheetpulse/pkg/contracts/domain"
)

// DefaultCSVExportBase is the public Google Sheets host used when no API
// credentials are configured.
const DefaultCSVExportBase = "https://docs.google.com"

// SheetReader returns the cell values of one worksheet of a spreadsheet.
// An empty gid means the first worksheet.
type SheetReader interface {
	ReadSheet(ctx context.Context, spreadsheetID, gid string) ([][]any, error)
}

// ObjectOpener opens a Cloud Storage object for reading.
type ObjectOpener interface {
	Open(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

// FetchResult is the outcome of fetching one source. Exactly one of Table
// and Err is set.
type FetchResult struct {
	Source   domain.NamedSource
	Kind     domain.LocatorKind
	Table    *domain.RawTable
	Err      error
	Duration time.Duration
}

// Fetcher loads named sources into raw tables.
type Fetcher struct {
	client        *http.Client
	sheets        SheetReader
	objects       ObjectOpener
	csvExportBase string
	maxDownload   int64
	timeout       time.Duration
	concurrency   int
	metrics       *infrastructure.BusinessMetrics
	logger        *slog.Logger
}

// FetcherOption customizes a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the client used for direct downloads and CSV exports.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithSheetReader replaces the Sheets API reader.
func WithSheetReader(r SheetReader) FetcherOption {
	return func(f *Fetcher) { f.sheets = r }
}

// WithObjectOpener replaces the Cloud Storage opener.
func WithObjectOpener(o ObjectOpener) FetcherOption {
	return func(f *Fetcher) { f.objects = o }
}

// WithCSVExportBase points Google Sheet CSV exports at another host.
func WithCSVExportBase(base string) FetcherOption {
	return func(f *Fetcher) { f.csvExportBase = strings.TrimRight(base, "/") }
}

// NewFetcher builds a fetcher from the sources configuration. The Sheets API
// client is created only when an API key or a credentials file is set.
func NewFetcher(ctx context.Context, cfg config.SourcesConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger, opts ...FetcherOption) (*Fetcher, error) {
	f := &Fetcher{
		client:        &http.Client{Timeout: cfg.FetchTimeout},
		csvExportBase: DefaultCSVExportBase,
		maxDownload:   cfg.MaxDownloadSize,
		timeout:       cfg.FetchTimeout,
		concurrency:   cfg.MaxConcurrentFetches,
		metrics:       metrics,
		logger:        infrastructure.WithComponent(logger, "source_fetcher"),
	}
	if f.concurrency <= 0 {
		f.concurrency = 1
	}

	googleOpts := googleClientOptions(cfg)
	f.objects = &gcsOpener{opts: googleOpts}
	if len(googleOpts) > 0 {
		svc, err := sheets.NewService(ctx, googleOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets service: %w", err)
		}
		f.sheets = &sheetsAPIReader{svc: svc}
	}

	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func googleClientOptions(cfg config.SourcesConfig) []option.ClientOption {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	} else if cfg.GoogleAPIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.GoogleAPIKey))
	}
	return opts
}

// Fetch loads one source. The returned table is named after the source.
func (f *Fetcher) Fetch(ctx context.Context, src domain.NamedSource) (*domain.RawTable, error) {
	res := f.fetch(ctx, src)
	return res.Table, res.Err
}

func (f *Fetcher) fetch(ctx context.Context, src domain.NamedSource) FetchResult {
	start := time.Now()
	res := FetchResult{Source: src}

	loc, err := ParseLocator(src.Locator)
	res.Kind = loc.Kind
	if err != nil {
		res.Err = err
		return res
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	var table *domain.RawTable
	switch loc.Kind {
	case domain.LocatorGoogleSheet:
		table, err = f.fetchGoogleSheet(ctx, loc)
	case domain.LocatorCloudStore:
		table, err = f.fetchObject(ctx, loc)
	default:
		table, err = f.fetchURL(ctx, loc.URL.String(), loc.fileName())
	}

	res.Duration = time.Since(start)
	f.metrics.RecordSourceFetch(ctx, string(loc.Kind), res.Duration, err)

	if err != nil {
		f.logger.WarnContext(ctx, "source fetch failed",
			slog.String("source", src.Name),
			slog.String("kind", string(loc.Kind)),
			slog.String("error", err.Error()))
		res.Err = fmt.Errorf("fetch %s: %w", src.Name, err)
		return res
	}

	table.Name = src.Name
	f.logger.InfoContext(ctx, "source fetched",
		slog.String("source", src.Name),
		slog.String("kind", string(loc.Kind)),
		slog.Int("rows", len(table.Rows)),
		slog.Duration("duration", res.Duration))
	res.Table = table
	return res
}

// FetchAll loads srcs concurrently, at most MaxConcurrentFetches at a time.
// Results are returned in the order of srcs; a failing source does not stop
// the others. Only context cancellation aborts the batch.
func (f *Fetcher) FetchAll(ctx context.Context, srcs []domain.NamedSource) ([]FetchResult, error) {
	results := make([]FetchResult, len(srcs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, src := range srcs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = FetchResult{Source: src, Err: err}
				return err
			}
			results[i] = f.fetch(gctx, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func (f *Fetcher) fetchGoogleSheet(ctx context.Context, loc Locator) (*domain.RawTable, error) {
	if f.sheets != nil {
		values, err := f.sheets.ReadSheet(ctx, loc.SpreadsheetID, loc.GID)
		if err != nil {
			return nil, err
		}
		table, err := dataprocessing.ValuesToTable(loc.SpreadsheetID, values)
		if err != nil {
			return nil, parseError(loc.SpreadsheetID, err)
		}
		return table, nil
	}

	q := url.Values{"format": {"csv"}}
	if loc.GID != "" {
		q.Set("gid", loc.GID)
	}
	exportURL := fmt.Sprintf("%s/spreadsheets/d/%s/export?%s", f.csvExportBase, url.PathEscape(loc.SpreadsheetID), q.Encode())
	return f.fetchURL(ctx, exportURL, loc.fileName())
}

func (f *Fetcher) fetchObject(ctx context.Context, loc Locator) (*domain.RawTable, error) {
	rc, err := f.objects.Open(ctx, loc.Bucket, loc.Object)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	table, err := dataprocessing.ParseWorkbook(loc.fileName(), f.limit(rc))
	if err != nil {
		return nil, parseError(loc.fileName(), err)
	}
	return table, nil
}

func (f *Fetcher) fetchURL(ctx context.Context, rawURL, name string) (*domain.RawTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned %s", resp.Status)
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch mediaType {
	case "text/html":
		// Private sheets and expired links redirect to a sign-in page.
		return nil, errors.New("download returned an HTML page, the file is not publicly readable")
	case "text/csv":
		if !strings.HasSuffix(strings.ToLower(name), ".csv") {
			name += ".csv"
		}
	}
	table, err := dataprocessing.ParseWorkbook(name, f.limit(resp.Body))
	if err != nil {
		return nil, parseError(name, err)
	}
	return table, nil
}

// parseError marks a downloaded file that arrived but could not be read as
// a workbook. Oversized downloads keep their own error.
func parseError(name string, err error) error {
	if errors.Is(err, ErrDownloadTooLarge) {
		return err
	}
	return apierrors.NewParsingError("unreadable workbook "+name, err).WithContext("file", name)
}

// limit caps a download at maxDownload bytes. Reading past the cap fails
// with ErrDownloadTooLarge instead of ending the stream early.
func (f *Fetcher) limit(r io.Reader) io.Reader {
	if f.maxDownload <= 0 {
		return r
	}
	return &capReader{r: r, remaining: f.maxDownload, max: f.maxDownload}
}

type capReader struct {
	r         io.Reader
	remaining int64
	max       int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.remaining < 0 {
		return 0, fmt.Errorf("%w: download exceeds %d bytes", ErrDownloadTooLarge, c.max)
	}
	// one byte past the cap is enough to tell a full file from an oversized one
	if int64(len(p)) > c.remaining+1 {
		p = p[:c.remaining+1]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return 0, fmt.Errorf("%w: download exceeds %d bytes", ErrDownloadTooLarge, c.max)
	}
	return n, err
}

// sheetsAPIReader reads worksheets through the Sheets API v4.
type sheetsAPIReader struct {
	svc *sheets.Service
}

func (r *sheetsAPIReader) ReadSheet(ctx context.Context, spreadsheetID, gid string) ([][]any, error) {
	ss, err := r.svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet metadata: %w", err)
	}
	title, err := worksheetTitle(ss, gid)
	if err != nil {
		return nil, err
	}

	resp, err := r.svc.Spreadsheets.Values.Get(spreadsheetID, quoteSheetTitle(title)).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet values: %w", err)
	}

	values := make([][]any, len(resp.Values))
	for i, row := range resp.Values {
		values[i] = append([]any(nil), row...)
	}
	return values, nil
}

func worksheetTitle(ss *sheets.Spreadsheet, gid string) (string, error) {
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "", dataprocessing.ErrEmptyWorkbook
	}
	if gid == "" {
		return ss.Sheets[0].Properties.Title, nil
	}
	id, err := strconv.ParseInt(gid, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid worksheet gid %q", gid)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.SheetId == id {
			return sh.Properties.Title, nil
		}
	}
	return "", fmt.Errorf("worksheet gid %s not found", gid)
}

// quoteSheetTitle turns a worksheet title into an A1 range covering the
// whole sheet.
func quoteSheetTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// gcsOpener opens objects with a short-lived storage client per read.
type gcsOpener struct {
	opts []option.ClientOption
}

func (o *gcsOpener) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	client, err := storage.NewClient(ctx, o.opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	return &objectReader{Reader: r, client: client}, nil
}

type objectReader struct {
	*storage.Reader
	client *storage.Client
}

func (r *objectReader) Close() error {
	err := r.Reader.Close()
	if cerr := r.client.Close(); err == nil {
		err = cerr
	}
	return err
}
