package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"sheetpulse/internal/config"
)

// Upload validation errors
var (
	ErrUnsupportedFileType = errors.New("invalid file type: expected .xlsx, .xlsm or .csv")
	ErrTemporaryFile       = errors.New("invalid file: office lock file")
	ErrEmptyFile           = errors.New("invalid file: empty")
	ErrFileTooLarge        = errors.New("file exceeds the upload size limit")
	ErrTooManyFiles        = errors.New("too many files in one upload")
	ErrNotWorkbook         = errors.New("invalid file: content does not match its extension")
)

// SniffLength is the number of leading bytes ValidateUpload inspects
const SniffLength = 512

var (
	allowedExtensions = map[string]bool{".xlsx": true, ".xlsm": true, ".csv": true}
	zipMagic          = []byte("PK\x03\x04")
)

// FileValidator checks uploaded and local spreadsheets before parsing
type FileValidator struct {
	maxFileSize int64
	maxFiles    int
	logger      *slog.Logger
}

// NewFileValidator creates a new file validator. Zero limits disable the
// corresponding check.
func NewFileValidator(cfg config.UploadConfig, logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		maxFileSize: cfg.MaxFileSize,
		maxFiles:    cfg.MaxFiles,
		logger:      logger.With(slog.String("component", "file_validator")),
	}
}

// MaxFileSize returns the per-file limit in bytes
func (v *FileValidator) MaxFileSize() int64 {
	return v.maxFileSize
}

// MaxFiles returns the per-upload file limit
func (v *FileValidator) MaxFiles() int {
	return v.maxFiles
}

// ValidateBatch checks the number of files in one upload
func (v *FileValidator) ValidateBatch(count int) error {
	if count == 0 {
		return errors.New("invalid upload: no files")
	}
	if v.maxFiles > 0 && count > v.maxFiles {
		v.logger.Warn("Upload rejected",
			slog.Int("files", count),
			slog.Int("max_files", v.maxFiles))
		return fmt.Errorf("%w: %d files, at most %d allowed", ErrTooManyFiles, count, v.maxFiles)
	}
	return nil
}

// ValidateUpload checks the name, size and leading bytes of one file
func (v *FileValidator) ValidateUpload(name string, size int64, head []byte) error {
	base := filepath.Base(name)
	ext := strings.ToLower(filepath.Ext(base))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: %s", ErrUnsupportedFileType, base)
	}
	if strings.HasPrefix(base, "~$") {
		return fmt.Errorf("%w: %s", ErrTemporaryFile, base)
	}
	if size == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, base)
	}
	if v.maxFileSize > 0 && size > v.maxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, base, size, v.maxFileSize)
	}

	isZip := bytes.HasPrefix(head, zipMagic)
	switch ext {
	case ".xlsx", ".xlsm":
		if !isZip {
			return fmt.Errorf("%w: %s", ErrNotWorkbook, base)
		}
	case ".csv":
		if isZip || bytes.IndexByte(head, 0) >= 0 {
			return fmt.Errorf("%w: %s", ErrNotWorkbook, base)
		}
	}

	v.logger.Debug("File validated",
		slog.String("file", base),
		slog.Int64("size", size))
	return nil
}

// ValidateFile checks that a local file exists, is readable and passes
// ValidateUpload
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	defer file.Close()

	head := make([]byte, SniffLength)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return v.ValidateUpload(path, info.Size(), head[:n])
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	testFile.Close()
	os.Remove(testFile.Name())
	return nil
}
