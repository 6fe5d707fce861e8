package repository

import (
	"context"
	"time"
)

// Locator identifies elements on a page by CSS selector.
type Locator string

// ByID returns a locator matching the element with the given id attribute.
func ByID(id string) Locator {
	return Locator("#" + id)
}

// Cookie is a browser cookie scoped to a domain.
type Cookie struct {
	Name    string
	Value   string
	Domain  string
	Path    string
	Expires time.Time
}

// PageAccess defines the contract for driving a single browser page.
// Navigation never reports success; callers must re-read CurrentURL.
type PageAccess interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	// FindElements returns every match in document order, possibly none.
	FindElements(ctx context.Context, loc Locator) ([]Element, error)
	Cookies(ctx context.Context) ([]Cookie, error)
	AddCookie(ctx context.Context, c Cookie) error
	Close() error
}

// Element is a handle to a node found on the current page.
type Element interface {
	Text(ctx context.Context) (string, error)
	// Attribute returns the attribute value and whether it was present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	InnerHTML(ctx context.Context) (string, error)
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Submit(ctx context.Context) error
	FindElements(ctx context.Context, loc Locator) ([]Element, error)
}
