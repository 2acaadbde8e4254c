package sources

import "errors"

var (
	// ErrSourceExists is returned when adding a name that is already registered.
	ErrSourceExists = errors.New("source already exists")

	// ErrSourceNotFound is returned for operations on an unknown name.
	ErrSourceNotFound = errors.New("source not found")

	// ErrUnsupportedLocator is returned for locators no fetch strategy handles.
	ErrUnsupportedLocator = errors.New("invalid locator: unsupported scheme")

	// ErrDownloadTooLarge is returned when a source is bigger than MaxDownloadSize.
	ErrDownloadTooLarge = errors.New("download too large")
)
