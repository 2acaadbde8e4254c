// Package api contains the request and response contracts of the SheetPulse
// HTTP API. Version v1 represents the current stable API version.
package api

import (
	"sheetpulse/pkg/contracts/domain"
)

// Source API requests

// AddSourceRequest registers a named spreadsheet link
type AddSourceRequest struct {
	Name    string `json:"name" validate:"required,sourcename,max=100"`
	Locator string `json:"locator" validate:"required,url"`
}

// LoadSourcesRequest fetches and ingests several named sources
type LoadSourcesRequest struct {
	Names []string `json:"names" validate:"required,min=1,dive,required"`
}

// Dataset API requests

// CombinedStatsRequest asks for statistics across stored datasets
type CombinedStatsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid"`
}

// DownloadFormat values accepted by the download endpoint
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Responses

// SourceListResponse lists the registered sources
type SourceListResponse struct {
	Sources []domain.NamedSource `json:"sources"`
	Count   int                  `json:"count"`
}
