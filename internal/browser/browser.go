// Package browser abstracts the remote browser-control surface used to drive
// the map search. Implementations must be safe to use from one goroutine per
// page; sessions and pages are not shared between harvests.
package browser

import (
	"context"
	"errors"
	"strings"
	"time"
)

type ResourceType string

const (
	ResourceImage      ResourceType = "image"
	ResourceStylesheet ResourceType = "stylesheet"
	ResourceFont       ResourceType = "font"
	ResourceMedia      ResourceType = "media"
)

// NonEssentialResources are aborted on detail pages.
var NonEssentialResources = []ResourceType{ResourceImage, ResourceStylesheet, ResourceFont, ResourceMedia}

// KeyEnter is the key sequence submitting a form input.
const KeyEnter = "\r"

// ErrProtocol marks failures of the automation channel itself (closed
// targets, CDP errors) as opposed to page content problems.
var ErrProtocol = errors.New("protocol error")

// IsProtocolError reports whether err signals an overloaded or broken
// automation channel. Drivers wrap ErrProtocol; the "ProtocolError" text
// covers errors relayed as plain messages by remote browsers.
func IsProtocolError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrProtocol) || strings.Contains(err.Error(), "ProtocolError")
}

// Provider launches isolated browser sessions.
type Provider interface {
	Launch(ctx context.Context) (Session, error)
}

type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

type Page interface {
	// SetDefaultTimeout bounds every operation that does not carry its own timeout.
	SetDefaultTimeout(d time.Duration)
	SetUserAgent(ctx context.Context, userAgent string) error
	// BlockResources enables request interception, aborting requests of the given types.
	BlockResources(ctx context.Context, types ...ResourceType) error
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	Type(ctx context.Context, selector, text string) error
	Press(ctx context.Context, selector, key string) error
	// QueryAll returns the elements currently matching selector.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	// Attribute reads name from the first element matching selector. The
	// boolean is false when the element or the attribute is missing.
	Attribute(ctx context.Context, selector, name string) (string, bool, error)
	ScrollBy(ctx context.Context, selector string, dy int) error
	Close() error
}

// Element is a node returned by Page.QueryAll. Lookups are relative to it.
type Element interface {
	Text(ctx context.Context, selector string) (string, bool, error)
	Attribute(ctx context.Context, selector, name string) (string, bool, error)
}
