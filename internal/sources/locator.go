package sources

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"sheetpulse/pkg/contracts/domain"
)

// Locator is a parsed source locator.
type Locator struct {
	Kind domain.LocatorKind
	URL  *url.URL

	// Google Sheets
	SpreadsheetID string
	GID           string

	// Cloud Storage
	Bucket string
	Object string
}

// ParseLocator resolves raw to a fetch strategy.
//
//	https://docs.google.com/spreadsheets/d/<id>/...  google_sheet
//	gs://bucket/path/to/object.xlsx                  gcs
//	http(s)://any/other/url                          file_url
func ParseLocator(raw string) (Locator, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Locator{Kind: domain.LocatorUnsupported}, fmt.Errorf("%w: %v", ErrUnsupportedLocator, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "gs":
		object := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || object == "" {
			return Locator{Kind: domain.LocatorUnsupported, URL: u},
				fmt.Errorf("%w: gs locator needs a bucket and an object", ErrUnsupportedLocator)
		}
		return Locator{Kind: domain.LocatorCloudStore, URL: u, Bucket: u.Host, Object: object}, nil

	case "http", "https":
		if u.Host == "" {
			return Locator{Kind: domain.LocatorUnsupported, URL: u},
				fmt.Errorf("%w: missing host", ErrUnsupportedLocator)
		}
		if id, ok := spreadsheetID(u); ok {
			return Locator{Kind: domain.LocatorGoogleSheet, URL: u, SpreadsheetID: id, GID: sheetGID(u)}, nil
		}
		return Locator{Kind: domain.LocatorFileURL, URL: u}, nil

	default:
		return Locator{Kind: domain.LocatorUnsupported, URL: u},
			fmt.Errorf("%w: %q", ErrUnsupportedLocator, u.Scheme)
	}
}

// ClassifyLocator returns the fetch strategy kind for raw.
func ClassifyLocator(raw string) (domain.LocatorKind, error) {
	loc, err := ParseLocator(raw)
	return loc.Kind, err
}

func spreadsheetID(u *url.URL) (string, bool) {
	if !strings.EqualFold(u.Hostname(), "docs.google.com") {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "spreadsheets" && parts[i+1] == "d" && parts[i+2] != "" {
			return parts[i+2], true
		}
	}
	return "", false
}

// sheetGID reads the worksheet id from ?gid= or #gid=.
func sheetGID(u *url.URL) string {
	if gid := u.Query().Get("gid"); gid != "" {
		return gid
	}
	if frag, err := url.ParseQuery(u.Fragment); err == nil {
		return frag.Get("gid")
	}
	return ""
}

// fileName returns the last path element of a locator, used for format
// detection.
func (l Locator) fileName() string {
	switch l.Kind {
	case domain.LocatorCloudStore:
		return path.Base(l.Object)
	case domain.LocatorGoogleSheet:
		return l.SpreadsheetID + ".csv"
	}
	if l.URL == nil {
		return ""
	}
	return path.Base(l.URL.Path)
}
