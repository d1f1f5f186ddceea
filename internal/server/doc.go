// Package server implements the HTTP surface of netboxdeploy.
//
// This package provides:
//   - Validation of deployment configs posted as YAML or JSON
//   - Rendering of artifact sets, recorded in the render history
//   - Per-IP rate limiting
//   - Health and render history endpoints
//   - Structured logging of all HTTP requests
//
// The server integrates with other packages:
//   - internal/render: config validation and artifact rendering
//   - internal/history: SQLite-based render history tracking
//
// Validation failures are answered with 422 and the offending field names.
// The server never writes artifacts to disk. Render responses carry every
// secret of the posted config and there is no authentication, so the server
// must only listen on loopback or behind an authenticating proxy.
package server
