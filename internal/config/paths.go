package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved application paths
type Paths struct {
	ExecutableDir string
	DataDir       string
	WebDir        string
	StaticDir     string
	LogsDir       string
	ExportsDir    string
}

// ResolvePaths resolves configured directories against the executable
// directory, never the working directory. Absolute entries are kept as
// they are.
func ResolvePaths(cfg PathsConfig) (*Paths, error) {
	exeDir, err := executableDir()
	if err != nil {
		return nil, err
	}
	return resolveAgainst(exeDir, cfg), nil
}

func resolveAgainst(base string, cfg PathsConfig) *Paths {
	dataDir := resolve(base, cfg.DataDir, "data")
	webDir := resolve(base, cfg.WebDir, "web")

	return &Paths{
		ExecutableDir: base,
		DataDir:       dataDir,
		WebDir:        webDir,
		StaticDir:     filepath.Join(webDir, "static"),
		LogsDir:       resolve(base, cfg.LogsDir, "logs"),
		ExportsDir:    filepath.Join(dataDir, "exports"),
	}
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}
	return filepath.Dir(exe), nil
}

func resolve(base, configured, fallback string) string {
	if configured == "" {
		configured = fallback
	}
	if filepath.IsAbs(configured) {
		return configured
	}
	return filepath.Join(base, configured)
}

// EnsureDirectories creates the data, export and log directories
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ExportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DataFile resolves a data file name. Absolute names are returned as is.
func (p *Paths) DataFile(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.DataDir, name)
}

// LogPathResolution logs the resolved directories
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("exports", p.ExportsDir),
			slog.String("logs", p.LogsDir),
			slog.String("web", p.WebDir),
		))
}
