package domain

import "errors"

var (
	// ErrInvalidQuery signals an empty or malformed search query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrAllSourcesFailed signals that every invoked retrieval source errored or timed out.
	ErrAllSourcesFailed = errors.New("all retrieval sources failed")
	// ErrUnsupported signals that a source does not support the requested operation.
	ErrUnsupported = errors.New("operation not supported by source")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
