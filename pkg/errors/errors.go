package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Kind classifies pipeline errors
type Kind string

const (
	// KindRenderTimeout means a rendering wait condition was not met in time
	KindRenderTimeout Kind = "render_timeout"
	// KindDiscovery means the pagination indicator was never found
	KindDiscovery Kind = "discovery"
	// KindExtraction means an item page could not be parsed into a record
	KindExtraction Kind = "extraction"
	// KindFetch means the retry budget for a page fetch was exhausted
	KindFetch Kind = "fetch"
	// KindGeo means the routing API response was malformed or retries ran out
	KindGeo Kind = "geo"
	// KindNumericParse means a price or area text was irreducible to a number
	KindNumericParse Kind = "numeric_parse"
	// KindConfiguration represents configuration errors
	KindConfiguration Kind = "configuration"
	// KindCache represents cache-related errors
	KindCache Kind = "cache"
	// KindPublisher represents publisher-related errors
	KindPublisher Kind = "publisher"
	// KindStorage represents result-sink errors
	KindStorage Kind = "storage"
)

// PipelineError is the error type surfaced by all pipeline components.
type PipelineError struct {
	Kind    Kind
	Op      string // component or operation that failed
	Message string
	Status  int // HTTP-equivalent status code, when one is known
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, e.Message)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s - %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a PipelineError of the given kind.
func IsKind(err error, kind Kind) bool {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// New creates a new PipelineError
func New(kind Kind, op, message string, err error) *PipelineError {
	return &PipelineError{
		Kind:    kind,
		Op:      op,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewRenderTimeout creates a render timeout error
func NewRenderTimeout(op, message string) *PipelineError {
	return New(KindRenderTimeout, op, message, nil)
}

// NewDiscovery creates a pagination discovery error
func NewDiscovery(op, message string, err error) *PipelineError {
	return New(KindDiscovery, op, message, err)
}

// NewExtraction creates an extraction error
func NewExtraction(op, message string, err error) *PipelineError {
	return New(KindExtraction, op, message, err)
}

// NewFetch creates a fetch error carrying the last seen status code
func NewFetch(op, message string, status int, err error) *PipelineError {
	e := New(KindFetch, op, message, err)
	e.Status = status
	return e
}

// NewGeo creates a routing API error
func NewGeo(op, message string, status int, err error) *PipelineError {
	e := New(KindGeo, op, message, err)
	e.Status = status
	return e
}

// NewNumericParse creates a numeric parse error
func NewNumericParse(op, message string) *PipelineError {
	return New(KindNumericParse, op, message, nil)
}

// NewConfiguration creates a configuration error
func NewConfiguration(message string, err error) *PipelineError {
	return New(KindConfiguration, "config", message, err)
}

// NewCache creates a cache error
func NewCache(op, message string, err error) *PipelineError {
	return New(KindCache, op, message, err)
}

// NewPublisher creates a publisher error
func NewPublisher(op, message string, err error) *PipelineError {
	return New(KindPublisher, op, message, err)
}

// NewStorage creates a result-sink error
func NewStorage(op, message string, err error) *PipelineError {
	return New(KindStorage, op, message, err)
}
