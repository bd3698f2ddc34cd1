// file: internal/lifecycle/application.go

// Package lifecycle runs an application until shutdown and rebuilds it on SIGHUP.
package lifecycle

import "context"

// Application is a runnable unit that supports graceful shutdown. A fresh
// instance is created on every reload.
type Application interface {
	// Run blocks until ctx is cancelled or a fatal error occurs. Normal
	// shutdown returns nil.
	Run(ctx context.Context) error

	// Close releases the repository connection, HTTP servers and background
	// jobs. It must be safe to call more than once.
	Close() error
}
