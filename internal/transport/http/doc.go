// Package http implements the HTTP handlers of the SheetPulse API. Handlers
// stay thin: they decode and validate the request, call a service and render
// the result.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Dataset store / Source registry
//
// # Routes
//
//	/api/health, /api/health/ready, /api/health/live, /api/version
//	/api/datasets            upload (multipart) and list
//	/api/datasets/combined   combined statistics
//	/api/datasets/{id}       summary, report, download, delete
//	/api/sources             named source registry and loading
//	/api/logs                dashboard log forwarding
//
// # Error Handling
//
// Every failure goes through apierrors.ErrorHandler and is written as an
// RFC 7807 problem document:
//
//	{
//	    "type": "/errors/not-found",
//	    "title": "Resource Not Found",
//	    "status": 404,
//	    "detail": "dataset not found: 3f2c...",
//	    "instance": "/api/datasets/3f2c.../report"
//	}
//
// Per-file spreadsheet problems in an upload are not request failures; they
// are returned as skipped diagnostics next to the datasets that loaded.
package http
