// Package transport defines the interface for pluggable request transports.
//
// Each transport (gRPC, HTTP, MQTT) implements this interface and hands the
// requests it decodes to the dispatcher. The dispatcher doesn't care how
// requests arrive; it only works with the Transport contract.
package transport

import (
	"context"

	"github.com/4xachi/pcast/internal/message"
)

// Handler processes one podcast request and returns its result. progress may
// be nil; when set it receives every pipeline state change.
type Handler func(ctx context.Context, req *message.Request, progress func(message.Progress)) (*message.Result, error)

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http", "mqtt").
	Name() string

	// Listen starts accepting requests and passes them to the handler.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, handler Handler) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
