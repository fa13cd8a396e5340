// Package browsertest provides an in-memory browser.Provider whose pages
// serve scripted feed snapshots and detail documents.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mapharvest/harvester/internal/browser"
)

// Element is a scripted node. Texts and attributes are keyed by the
// relative selector the caller looks up.
type Element struct {
	texts map[string]string
	attrs map[string]map[string]string
}

func NewElement() *Element {
	return &Element{texts: map[string]string{}, attrs: map[string]map[string]string{}}
}

func (e *Element) WithText(selector, text string) *Element {
	e.texts[selector] = text
	return e
}

func (e *Element) WithAttr(selector, name, value string) *Element {
	if e.attrs[selector] == nil {
		e.attrs[selector] = map[string]string{}
	}
	e.attrs[selector][name] = value
	return e
}

func (e *Element) Text(_ context.Context, selector string) (string, bool, error) {
	v, ok := e.texts[selector]
	return v, ok, nil
}

func (e *Element) Attribute(_ context.Context, selector, name string) (string, bool, error) {
	v, ok := e.attrs[selector][name]
	return v, ok, nil
}

// Document is a scripted page reachable by URL.
type Document = Element

func NewDocument() *Document { return NewElement() }

// Provider serves every page from the same script. Feed snapshots are
// returned one per QueryAll call; once exhausted the last snapshot repeats.
type Provider struct {
	mu sync.Mutex

	Feed      [][]*Element
	Documents map[string]*Document

	// FeedError is returned by the FeedErrorAt-th feed read (1-based).
	FeedError   error
	FeedErrorAt int
	// NavigateErrors fails navigation to the given URLs.
	NavigateErrors map[string]error
	LaunchError    error

	sessions []*Session
	pages    []*Page
}

var _ browser.Provider = (*Provider)(nil)

func NewProvider() *Provider {
	return &Provider{
		Documents:      map[string]*Document{},
		NavigateErrors: map[string]error{},
	}
}

func (p *Provider) Launch(_ context.Context) (browser.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.LaunchError != nil {
		return nil, p.LaunchError
	}
	s := &Session{provider: p}
	p.sessions = append(p.sessions, s)
	return s, nil
}

func (p *Provider) Sessions() []*Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Session{}, p.sessions...)
}

func (p *Provider) Pages() []*Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Page{}, p.pages...)
}

// Navigations lists every URL navigated to, across all pages, in order.
func (p *Provider) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var urls []string
	for _, page := range p.pages {
		urls = append(urls, page.navigations...)
	}
	return urls
}

type Session struct {
	provider *Provider
	closes   int
}

func (s *Session) NewPage(_ context.Context) (browser.Page, error) {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()
	page := &Page{provider: s.provider}
	s.provider.pages = append(s.provider.pages, page)
	return page, nil
}

func (s *Session) Close() error {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()
	s.closes++
	return nil
}

func (s *Session) Closes() int {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()
	return s.closes
}

type Page struct {
	provider *Provider

	navigations []string
	url         string
	reads       int
	scrolls     int
	closes      int

	DefaultTimeout    time.Duration
	NavigationTimeout time.Duration
	UserAgent         string
	Blocked           []browser.ResourceType
	Typed             []string
	Pressed           []string
}

func (p *Page) SetDefaultTimeout(d time.Duration) {
	p.provider.mu.Lock()
	defer p.provider.mu.Unlock()
	p.DefaultTimeout = d
}

func (p *Page) SetUserAgent(_ context.Context, userAgent string) error {
	p.provider.mu.Lock()
	defer p.provider.mu.Unlock()
	p.UserAgent = userAgent
	return nil
}

func (p *Page) BlockResources(_ context.Context, types ...browser.ResourceType) error {
	p.provider.mu.Lock()
	defer p.provider.mu.Unlock()
	p.Blocked = append(p.Blocked, types...)
	return nil
}

func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.provider.mu.Lock()
	defer p.provider.mu.Unlock()
	p.navigations = append(p.navigations, url)
	p.NavigationTimeout = timeout
	if err, ok := p.provider.NavigateErrors[url]; ok {
		return err
	}
	p.url = url
	return nil
}

func (p *Page) Type(_ context.Context, _, text string) error {
	p.provider.mu.Lock()
	defer p.provider.mu.Unlock()
	p.Typed = append(p.Typed, text)
	return nil
}

func (p *Page) Press(_ context.Context, _, key string) error {
	p.provider.mu.Lock()
	defer p.provider.mu.Unlock()
	p.Pressed = append(p.Pressed, key)
	return nil
}

func (p *Page) QueryAll(ctx context.Context, _ string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.provider.mu.Lock()
	defer p.provider.mu.Unlock()
	p.reads++
	if p.provider.FeedError != nil && p.reads == p.provider.FeedErrorAt {
		return nil, p.provider.FeedError
	}
	if len(p.provider.Feed) == 0 {
		return nil, nil
	}
	idx := p.reads - 1
	if idx >= len(p.provider.Feed) {
		idx = len(p.provider.Feed) - 1
	}
	snapshot := p.provider.Feed[idx]
	elements := make([]browser.Element, 0, len(snapshot))
	for _, e := range snapshot {
		elements = append(elements, e)
	}
	return elements, nil
}

func (p *Page) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	p.provider.mu.Lock()
	doc, ok := p.provider.Documents[p.url]
	p.provider.mu.Unlock()
	if !ok {
		return "", false, nil
	}
	return doc.Attribute(ctx, selector, name)
}

func (p *Page) ScrollBy(_ context.Context, _ string, _ int) error {
	p.provider.mu.Lock()
	defer p.provider.mu.Unlock()
	p.scrolls++
	return nil
}

func (p *Page) Close() error {
	p.provider.mu.Lock()
	defer p.provider.mu.Unlock()
	p.closes++
	return nil
}

func (p *Page) Reads() int {
	p.provider.mu.Lock()
	defer p.provider.mu.Unlock()
	return p.reads
}

func (p *Page) Scrolls() int {
	p.provider.mu.Lock()
	defer p.provider.mu.Unlock()
	return p.scrolls
}

func (p *Page) Closes() int {
	p.provider.mu.Lock()
	defer p.provider.mu.Unlock()
	return p.closes
}

func (p *Page) String() string {
	return fmt.Sprintf("page(%v)", p.navigations)
}
