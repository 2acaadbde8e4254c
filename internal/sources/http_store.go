package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apierrors "sheetpulse/internal/errors"
	"sheetpulse/pkg/contracts/domain"
)

// HTTPStore keeps sources behind a remote link API:
//
//	GET    {base}/links          -> {"links":[...]} or [...]
//	POST   {base}/links          <- {"name":..,"locator":..}
//	DELETE {base}/links/{name}
//
// 409 maps to ErrSourceExists and 404 to ErrSourceNotFound.
type HTTPStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPStore returns a store talking to baseURL. apiKey, when set, is sent
// as a bearer token.
func NewHTTPStore(baseURL, apiKey string, timeout time.Duration) (*HTTPStore, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid link API URL %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (s *HTTPStore) List(ctx context.Context) ([]domain.NamedSource, error) {
	resp, err := s.do(ctx, http.MethodGet, "/links", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read link API response: %w", err)
	}

	// The API answers either with a bare array or wrapped in {"links":[...]}.
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var links []domain.NamedSource
		if err := json.Unmarshal(trimmed, &links); err != nil {
			return nil, fmt.Errorf("failed to decode link API response: %w", err)
		}
		return links, nil
	}
	var doc linksDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode link API response: %w", err)
	}
	return doc.Links, nil
}

func (s *HTTPStore) Insert(ctx context.Context, src domain.NamedSource) error {
	payload, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("failed to encode source: %w", err)
	}
	resp, err := s.do(ctx, http.MethodPost, "/links", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusConflict:
		return ErrSourceExists
	default:
		return statusError(resp)
	}
}

func (s *HTTPStore) Delete(ctx context.Context, name string) error {
	resp, err := s.do(ctx, http.MethodDelete, "/links/"+url.PathEscape(name), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrSourceNotFound
	default:
		return statusError(resp)
	}
}

func (s *HTTPStore) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build link API request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apierrors.NewNetworkError(fmt.Sprintf("link API %s %s", method, path), err).
			WithContext("backend", "http")
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return apierrors.NewStorageError(
		fmt.Sprintf("link API returned %s: %s", resp.Status, strings.TrimSpace(string(snippet))), nil).
		WithContext("backend", "http")
}
