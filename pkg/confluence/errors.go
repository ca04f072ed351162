package confluence

import (
	"errors"
	"fmt"
)

// ErrInvalidSiteURL is returned by New when the site URL is not an
// absolute URL with both a scheme and a host. It is raised before any
// network call is attempted.
var ErrInvalidSiteURL = errors.New("invalid site URL: provide a complete URL (e.g. https://your-domain.atlassian.net)")

// Scope identifies which remote call a FetchError originated from.
type Scope string

const (
	ScopeListSpaces  Scope = "listSpaces"
	ScopeListPages   Scope = "listPages"
	ScopePage        Scope = "page"
	ScopeAttachments Scope = "attachments"
	ScopeDownload    Scope = "attachmentDownload"
)

// FetchError is the tagged error for any failed remote call. Callers
// inspect Scope and Key instead of parsing message text. The underlying
// cause is preserved for errors.Is/As; credentials never appear in it.
type FetchError struct {
	Scope Scope
	Key   string // space key, page ID, or "pageID/filename" for downloads
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("confluence: %s %q: %v", e.Scope, e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string // truncated server response, for diagnostics
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}
