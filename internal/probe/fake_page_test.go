package probe

import (
	"context"
	"errors"
	"sync"

	"github.com/user/slotwatch/internal/repository"
)

// fakePage is an in-memory PageAccess. Elements are keyed by locator, and
// redirects send a navigation somewhere other than its target.
type fakePage struct {
	mu          sync.Mutex
	current     string
	redirects   map[string]string
	elements    map[repository.Locator][]*fakeElement
	cookies     []repository.Cookie
	navigations []string
	closed      bool
}

func newFakePage() *fakePage {
	return &fakePage{
		redirects: make(map[string]string),
		elements:  make(map[repository.Locator][]*fakeElement),
	}
}

func (p *fakePage) on(loc repository.Locator, els ...*fakeElement) *fakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[loc] = els
	return p
}

func (p *fakePage) redirect(from, to string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redirects[from] = to
}

func (p *fakePage) clearRedirect(from string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.redirects, from)
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, url)
	if to, ok := p.redirects[url]; ok {
		p.current = to
		return nil
	}
	p.current = url
	return nil
}

func (p *fakePage) CurrentURL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, nil
}

func (p *fakePage) FindElements(_ context.Context, loc repository.Locator) ([]repository.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return toElements(p.elements[loc]), nil
}

func (p *fakePage) Cookies(context.Context) ([]repository.Cookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]repository.Cookie(nil), p.cookies...), nil
}

func (p *fakePage) AddCookie(_ context.Context, c repository.Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cookies = append(p.cookies, c)
	return nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type fakeElement struct {
	mu       sync.Mutex
	text     string
	html     string
	attrs    map[string]string
	children map[repository.Locator][]*fakeElement
	keys     []string
	clicks   int
	submits  int
	onClick  func()
	onSubmit func()
	clickErr error
}

func el(text string) *fakeElement {
	return &fakeElement{text: text, attrs: map[string]string{}, children: map[repository.Locator][]*fakeElement{}}
}

func (e *fakeElement) attr(name, value string) *fakeElement {
	e.attrs[name] = value
	return e
}

func (e *fakeElement) child(loc repository.Locator, els ...*fakeElement) *fakeElement {
	e.children[loc] = els
	return e
}

func (e *fakeElement) Text(context.Context) (string, error) { return e.text, nil }

func (e *fakeElement) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *fakeElement) InnerHTML(context.Context) (string, error) { return e.html, nil }

func (e *fakeElement) Click(context.Context) error {
	e.mu.Lock()
	e.clicks++
	fn := e.onClick
	e.mu.Unlock()
	if e.clickErr != nil {
		return e.clickErr
	}
	if fn != nil {
		fn()
	}
	return nil
}

func (e *fakeElement) SendKeys(_ context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keys = append(e.keys, text)
	return nil
}

func (e *fakeElement) Submit(context.Context) error {
	e.mu.Lock()
	e.submits++
	fn := e.onSubmit
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (e *fakeElement) FindElements(_ context.Context, loc repository.Locator) ([]repository.Element, error) {
	return toElements(e.children[loc]), nil
}

func (e *fakeElement) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

func toElements(els []*fakeElement) []repository.Element {
	out := make([]repository.Element, len(els))
	for i, e := range els {
		out[i] = e
	}
	return out
}

type staticCredentials map[string]repository.Credentials

func (s staticCredentials) Read(_ context.Context, id string) (repository.Credentials, error) {
	c, ok := s[id]
	if !ok {
		return repository.Credentials{}, errors.Join(repository.ErrCredentialsNotFound, errors.New(id))
	}
	return c, nil
}
