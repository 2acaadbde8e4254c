// Package sources manages named links to external spreadsheets and fetches
// their contents.
//
// A Registry is built once at startup over one Store backend (memory, JSON
// file, remote link API or SQLite). A Fetcher resolves a locator to a raw
// table: Google Sheets go through the Sheets API when credentials are
// configured and the public CSV export otherwise, gs:// objects are read
// from Cloud Storage, and any other http(s) URL is downloaded directly.
package sources
