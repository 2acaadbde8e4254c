package http

import (
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

var statusPage = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>SheetPulse</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .status { padding: 10px; margin: 10px 0; border-radius: 4px; background-color: #d1ecf1; color: #0c5460; }
    </style>
</head>
<body>
    <h1>SheetPulse</h1>
    <div class="status">
        <strong>Status:</strong> API is running, no dashboard bundle installed
        <br><strong>Version:</strong> {{.Version}}
        <br><strong>Time:</strong> {{.Time}}
    </div>
    <h2>Endpoints</h2>
    <ul>
        <li><a href="/api/health">Health</a></li>
        <li><a href="/api/datasets">Datasets</a></li>
        <li><a href="/api/sources">Sources</a></li>
        <li><a href="/metrics">Metrics</a></li>
    </ul>
</body>
</html>
`))

// ServeDashboard serves index.html from webDir. Without a dashboard bundle
// it renders a status page listing the API endpoints.
func ServeDashboard(webDir, version string) http.HandlerFunc {
	indexPath := filepath.Join(webDir, "index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		setPageHeaders(w)

		if _, err := os.Stat(indexPath); err == nil {
			http.ServeFile(w, r, indexPath)
			return
		}

		data := struct {
			Version string
			Time    string
		}{version, time.Now().Format("2006-01-02 15:04:05")}
		if err := statusPage.Execute(w, data); err != nil {
			http.Error(w, "Error rendering page", http.StatusInternalServerError)
		}
	}
}

// StaticFiles serves the dashboard assets under webDir
func StaticFiles(webDir string) http.Handler {
	return http.StripPrefix("/static/", http.FileServer(http.Dir(filepath.Join(webDir, "static"))))
}

func setPageHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}
