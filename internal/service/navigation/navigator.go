// internal/service/navigation/navigator.go

package navigation

import (
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"mediaintel/internal/domain/dashboard"
)

// DefaultMaxSessions is used when no session limit is configured
const DefaultMaxSessions = 10000

// PageCatalog resolves page names
type PageCatalog interface {
	Page(name string) (dashboard.Page, bool)
	DefaultPage() dashboard.Page
}

// Navigator keeps the selected page of each session in memory. At most
// maxSessions are remembered; the least recently used one is evicted first
// and falls back to the default page.
type Navigator struct {
	pages    PageCatalog
	sessions *lru.Cache[string, string]
}

// NewNavigator creates a new navigator
func NewNavigator(pages PageCatalog, maxSessions int) (*Navigator, error) {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}

	sessions, err := lru.New[string, string](maxSessions)
	if err != nil {
		return nil, fmt.Errorf("error creating session cache: %w", err)
	}

	return &Navigator{
		pages:    pages,
		sessions: sessions,
	}, nil
}

// NewSession returns a fresh session id
func (n *Navigator) NewSession() string {
	return uuid.New().String()
}

// Current returns the page selected in a session, or the default page
func (n *Navigator) Current(session string) dashboard.Page {
	if id, ok := n.sessions.Get(session); ok {
		if p, found := n.pages.Page(id); found {
			return p
		}
	}
	return n.pages.DefaultPage()
}

// Select stores the page for a session. The name may be a page id or title.
// An unknown page resets the session to the default page and returns
// ErrUnknownPage.
func (n *Navigator) Select(session, name string) (dashboard.Page, error) {
	p, ok := n.pages.Page(name)
	if !ok {
		p = n.pages.DefaultPage()
	}

	n.sessions.Add(session, p.ID)

	if !ok {
		return p, fmt.Errorf("%w: %s", dashboard.ErrUnknownPage, name)
	}
	return p, nil
}

// Forget drops a session
func (n *Navigator) Forget(session string) {
	n.sessions.Remove(session)
}

// Sessions returns the number of remembered sessions
func (n *Navigator) Sessions() int {
	return n.sessions.Len()
}
