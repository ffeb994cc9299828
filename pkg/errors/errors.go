package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeStructural represents a broken page structure (missing
	// selectors for a whole record). Fatal for the crawl session.
	ErrorTypeStructural ErrorType = "structural"
	// ErrorTypeField represents a single field extraction failure.
	// Recovered locally; the record is still emitted.
	ErrorTypeField ErrorType = "field"
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypePublish represents publisher-related errors
	ErrorTypePublish ErrorType = "publish"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// CrawlError represents a crawl-specific error
type CrawlError struct {
	Type    ErrorType
	Site    string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *CrawlError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Site, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Site, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the error must abort the whole crawl session.
func (e *CrawlError) IsFatal() bool {
	return e.Type == ErrorTypeStructural
}

// IsRetryable reports whether the fetch layer may retry the request.
func (e *CrawlError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork:
		return true
	default:
		return false
	}
}

// New creates a new CrawlError
func New(errType ErrorType, site, message string, err error) *CrawlError {
	return &CrawlError{
		Type:    errType,
		Site:    site,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewStructural creates a new structural error
func NewStructural(site, message string, err error) *CrawlError {
	return New(ErrorTypeStructural, site, message, err)
}

// NewField creates a new field extraction error
func NewField(site, field string, err error) *CrawlError {
	return New(ErrorTypeField, site, fmt.Sprintf("field %q", field), err)
}

// NewNetwork creates a new network error
func NewNetwork(site, message string, err error) *CrawlError {
	return New(ErrorTypeNetwork, site, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(site string, duration time.Duration) *CrawlError {
	return New(ErrorTypeRateLimit, site, fmt.Sprintf("rate limited for %v", duration), nil)
}

// NewPublish creates a new publish error
func NewPublish(site, message string, err error) *CrawlError {
	return New(ErrorTypePublish, site, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// IsFatal reports whether err carries a session-fatal CrawlError.
func IsFatal(err error) bool {
	var ce *CrawlError
	if errors.As(err, &ce) {
		return ce.IsFatal()
	}
	return false
}

// IsRateLimited reports whether err is a rate-limit error.
func IsRateLimited(err error) bool {
	var ce *CrawlError
	if errors.As(err, &ce) {
		return ce.Type == ErrorTypeRateLimit
	}
	return false
}
