package chromedp_page

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/user/slotwatch/internal/repository"
)

const defaultUserAgent = `Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36`

// Options configures the browser processes started by a Browser.
type Options struct {
	Headless        bool
	UserAgent       string
	PageLoadTimeout time.Duration
}

// Browser starts one isolated Chrome session per page.
type Browser struct {
	opts Options
}

// NewBrowser creates a new page factory backed by chromedp.
func NewBrowser(opts Options) *Browser {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = 60 * time.Second
	}
	return &Browser{opts: opts}
}

// NewPage launches a browser for target and waits until it is ready. Each
// page has its own cookie jar, so sessions never leak between targets.
func (b *Browser) NewPage(target string) (repository.PageAccess, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(b.opts.UserAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	log := slog.Default().With("target", target, "component", "chromedp")
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) { log.Debug(fmt.Sprintf(format, args...)) }),
		chromedp.WithErrorf(func(format string, args ...any) { log.Warn(fmt.Sprintf(format, args...)) }),
	)

	// An empty Run starts the browser process.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser for %s: %w", target, err)
	}

	return &Page{
		ctx:     tabCtx,
		timeout: b.opts.PageLoadTimeout,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
	}, nil
}

// Page drives a single chromedp tab.
type Page struct {
	ctx     context.Context
	timeout time.Duration
	cancel  context.CancelFunc
}

// run executes actions on the tab, bounded by the page timeout and by ctx.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (p *Page) FindElements(ctx context.Context, loc repository.Locator) ([]repository.Element, error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(string(loc), &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query %s: %w", loc, err)
	}
	return p.wrap(nodes), nil
}

func (p *Page) Cookies(ctx context.Context) ([]repository.Cookie, error) {
	var out []repository.Cookie
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			out = append(out, repository.Cookie{
				Name:    c.Name,
				Value:   c.Value,
				Domain:  c.Domain,
				Path:    c.Path,
				Expires: fromEpoch(c.Expires),
			})
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	return out, nil
}

func (p *Page) AddCookie(ctx context.Context, c repository.Cookie) error {
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		params := network.SetCookie(c.Name, c.Value).WithDomain(c.Domain)
		if c.Path != "" {
			params = params.WithPath(c.Path)
		}
		if !c.Expires.IsZero() {
			expires := cdp.TimeSinceEpoch(c.Expires)
			params = params.WithExpires(&expires)
		}
		return params.Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("set cookie %s: %w", c.Name, err)
	}
	return nil
}

func (p *Page) Close() error {
	p.cancel()
	return nil
}

func (p *Page) wrap(nodes []*cdp.Node) []repository.Element {
	out := make([]repository.Element, len(nodes))
	for i, n := range nodes {
		out[i] = &element{page: p, node: n}
	}
	return out
}

// element addresses a DOM node by its node id.
type element struct {
	page *Page
	node *cdp.Node
}

func (e *element) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.page.run(ctx, chromedp.Text(e.ids(), &text, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return text, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var value string
	var ok bool
	if err := e.page.run(ctx, chromedp.AttributeValue(e.ids(), name, &value, &ok, chromedp.ByNodeID)); err != nil {
		return "", false, err
	}
	return value, ok, nil
}

func (e *element) InnerHTML(ctx context.Context) (string, error) {
	var html string
	if err := e.page.run(ctx, chromedp.InnerHTML(e.ids(), &html, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return html, nil
}

func (e *element) Click(ctx context.Context) error {
	return e.page.run(ctx, chromedp.MouseClickNode(e.node))
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	return e.page.run(ctx, chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID))
}

func (e *element) Submit(ctx context.Context) error {
	return e.page.run(ctx, chromedp.Submit(e.ids(), chromedp.ByNodeID))
}

func (e *element) FindElements(ctx context.Context, loc repository.Locator) ([]repository.Element, error) {
	var nodes []*cdp.Node
	err := e.page.run(ctx, chromedp.Nodes(string(loc), &nodes,
		chromedp.ByQueryAll, chromedp.FromNode(e.node), chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", loc, err)
	}
	return e.page.wrap(nodes), nil
}

// fromEpoch converts a CDP expiry in seconds; session cookies report -1.
func fromEpoch(sec float64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9))
}
