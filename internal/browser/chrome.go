package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/mapharvest/harvester/internal/config"
	"go.uber.org/zap"
)

const defaultPageTimeout = 30 * time.Second

var launchFlags = []string{
	"no-sandbox",
	"disable-setuid-sandbox",
	"disable-dev-shm-usage",
	"disable-gpu",
	"no-first-run",
	"no-zygote",
	"disable-extensions",
	"disable-background-timer-throttling",
	"disable-backgrounding-occluded-windows",
	"disable-renderer-backgrounding",
}

// ChromeProvider launches a local Chrome through the DevTools protocol.
type ChromeProvider struct {
	opts []chromedp.ExecAllocatorOption
}

var _ Provider = (*ChromeProvider)(nil)

func NewChromeProvider(cfg *config.BrowserConfig) *ChromeProvider {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, flag := range launchFlags {
		opts = append(opts, chromedp.Flag(flag, true))
	}
	opts = append(opts, chromedp.Flag("headless", cfg.Headless))
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return &ChromeProvider{opts: opts}
}

func (p *ChromeProvider) Launch(ctx context.Context) (Session, error) {
	// The browser outlives the launching call; it is torn down by Session.Close.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), p.opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	if err := start(ctx, browserCtx, cancelBrowser); err != nil {
		cancelAlloc()
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	return &chromeSession{ctx: browserCtx, cancelBrowser: cancelBrowser, cancelAlloc: cancelAlloc}, nil
}

// start performs the first Run on target, which allocates the browser or tab.
// chromedp binds their lifetime to that Run's context, so it cannot carry a
// deadline; the timeout and caller cancellation cancel target instead.
func start(ctx, target context.Context, cancel context.CancelFunc) error {
	timer := time.AfterFunc(defaultPageTimeout, cancel)
	stop := context.AfterFunc(ctx, cancel)
	err := chromedp.Run(target)
	timer.Stop()
	stop()
	if err != nil {
		cancel()
		return classify(err)
	}
	return nil
}

type chromeSession struct {
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	once          sync.Once
}

func (s *chromeSession) NewPage(ctx context.Context) (Page, error) {
	tabCtx, cancelTab := chromedp.NewContext(s.ctx)
	if err := start(ctx, tabCtx, cancelTab); err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	return &chromePage{ctx: tabCtx, cancel: cancelTab, timeout: defaultPageTimeout}, nil
}

func (s *chromeSession) Close() error {
	var err error
	s.once.Do(func() {
		err = chromedp.Cancel(s.ctx)
		s.cancelBrowser()
		s.cancelAlloc()
	})
	return err
}

type chromePage struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	once    sync.Once
}

// lookup is the result shape of every DOM read script.
type lookup struct {
	Found bool   `json:"found"`
	Value string `json:"value"`
}

func (p *chromePage) SetDefaultTimeout(d time.Duration) {
	p.timeout = d
}

func (p *chromePage) SetUserAgent(ctx context.Context, userAgent string) error {
	return p.run(ctx, p.timeout, emulation.SetUserAgentOverride(userAgent))
}

func (p *chromePage) BlockResources(ctx context.Context, types ...ResourceType) error {
	blocked := make(map[network.ResourceType]bool, len(types))
	for _, t := range types {
		blocked[toNetworkResource(t)] = true
	}

	chromedp.ListenTarget(p.ctx, func(ev interface{}) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(p.ctx)
			execCtx := cdp.WithExecutor(p.ctx, c.Target)
			var err error
			if blocked[paused.ResourceType] {
				err = fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
			} else {
				err = fetch.ContinueRequest(paused.RequestID).Do(execCtx)
			}
			if err != nil && p.ctx.Err() == nil {
				zap.S().Named("browser").Debugw("request interception failed", "url", paused.Request.URL, "error", err)
			}
		}()
	})

	return p.run(ctx, p.timeout, fetch.Enable())
}

func (p *chromePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return p.run(ctx, timeout, chromedp.Navigate(url))
}

func (p *chromePage) Type(ctx context.Context, selector, text string) error {
	return p.run(ctx, p.timeout, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

func (p *chromePage) Press(ctx context.Context, selector, key string) error {
	return p.run(ctx, p.timeout, chromedp.SendKeys(selector, key, chromedp.ByQuery))
}

func (p *chromePage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	var count int
	script := fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(selector))
	if err := p.run(ctx, p.timeout, chromedp.Evaluate(script, &count)); err != nil {
		return nil, err
	}
	elements := make([]Element, 0, count)
	for i := 0; i < count; i++ {
		elements = append(elements, &chromeElement{page: p, selector: selector, index: i})
	}
	return elements, nil
}

func (p *chromePage) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	return p.lookup(ctx, "document", selector, attributeRead(name))
}

func (p *chromePage) ScrollBy(ctx context.Context, selector string, dy int) error {
	var found bool
	script := fmt.Sprintf(`(() => { const c = document.querySelector(%s); if (c) c.scrollBy(0, %d); return !!c; })()`, jsString(selector), dy)
	return p.run(ctx, p.timeout, chromedp.Evaluate(script, &found))
}

func (p *chromePage) Close() error {
	var err error
	p.once.Do(func() {
		err = chromedp.Cancel(p.ctx)
		p.cancel()
	})
	return err
}

// run executes actions on the tab bounded by timeout and by the caller's context.
func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return classify(err)
	}
	return nil
}

func (p *chromePage) lookup(ctx context.Context, root, selector, read string) (string, bool, error) {
	script := fmt.Sprintf(`(() => {
	const root = %s;
	if (!root) return {found: false, value: ""};
	const el = root.querySelector(%s);
	if (!el) return {found: false, value: ""};
	%s
})()`, root, jsString(selector), read)

	var res lookup
	if err := p.run(ctx, p.timeout, chromedp.Evaluate(script, &res)); err != nil {
		return "", false, err
	}
	return res.Value, res.Found, nil
}

type chromeElement struct {
	page     *chromePage
	selector string
	index    int
}

func (e *chromeElement) root() string {
	return fmt.Sprintf("document.querySelectorAll(%s)[%d]", jsString(e.selector), e.index)
}

func (e *chromeElement) Text(ctx context.Context, selector string) (string, bool, error) {
	return e.page.lookup(ctx, e.root(), selector, `return {found: true, value: (el.innerText || "").trim()};`)
}

func (e *chromeElement) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	return e.page.lookup(ctx, e.root(), selector, attributeRead(name))
}

// attributeRead resolves href through the element property so relative links come back absolute.
func attributeRead(name string) string {
	return fmt.Sprintf(`const name = %s;
	const value = name === "href" && el.href ? el.href : el.getAttribute(name);
	return value === null ? {found: false, value: ""} : {found: true, value: value};`, jsString(name))
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func toNetworkResource(t ResourceType) network.ResourceType {
	switch t {
	case ResourceImage:
		return network.ResourceTypeImage
	case ResourceStylesheet:
		return network.ResourceTypeStylesheet
	case ResourceFont:
		return network.ResourceTypeFont
	case ResourceMedia:
		return network.ResourceTypeMedia
	default:
		return network.ResourceType(t)
	}
}

func classify(err error) error {
	var cdpErr *cdproto.Error
	switch {
	case errors.As(err, &cdpErr),
		errors.Is(err, chromedp.ErrChannelClosed),
		errors.Is(err, chromedp.ErrInvalidContext):
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	default:
		return err
	}
}
