// FILE: pkg/rag/errors.go
// PURPOSE: Error kinds shared by chat, document and registry layers

package rag

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when a message or question is empty or whitespace only.
// It is always raised before any upstream service is contacted.
var ErrEmptyInput = errors.New("Empty message")

// DocumentLoadError means the uploaded file could not be turned into an index:
// unreadable, not a PDF, or no extractable text.
type DocumentLoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DocumentLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("document load failed (%s): %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("document load failed (%s): %s", e.Path, e.Reason)
}

func (e *DocumentLoadError) Unwrap() error {
	return e.Err
}

// RetrievalError signals an empty or inconsistent document index.
// The document session has to be recreated to recover.
type RetrievalError struct {
	Reason string
}

func (e *RetrievalError) Error() string {
	return "retrieval failed: " + e.Reason
}

// UpstreamServiceError wraps failures of the LLM or embedding service,
// including timeouts.
type UpstreamServiceError struct {
	Op  string // "chat", "embed", ...
	Err error
}

func (e *UpstreamServiceError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamServiceError) Unwrap() error {
	return e.Err
}

// Upstream wraps err as an UpstreamServiceError unless it already is one.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	var upstream *UpstreamServiceError
	if errors.As(err, &upstream) {
		return err
	}
	return &UpstreamServiceError{Op: op, Err: err}
}

func IsDocumentLoad(err error) bool {
	var target *DocumentLoadError
	return errors.As(err, &target)
}

func IsRetrieval(err error) bool {
	var target *RetrievalError
	return errors.As(err, &target)
}

func IsUpstream(err error) bool {
	var target *UpstreamServiceError
	return errors.As(err, &target)
}
