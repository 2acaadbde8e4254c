package domain

import "time"

// NamedSource is a user-managed link to an external spreadsheet
type NamedSource struct {
	Name      string    `json:"name" validate:"required,min=1,max=100"`
	Locator   string    `json:"locator" validate:"required,url"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// LocatorKind tells the fetcher which strategy resolves a locator
type LocatorKind string

const (
	LocatorGoogleSheet LocatorKind = "google_sheet"
	LocatorCloudStore  LocatorKind = "gcs"
	LocatorFileURL     LocatorKind = "file_url"
	LocatorUnsupported LocatorKind = "unsupported"
)
