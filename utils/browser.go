package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
	"storefront-sampler/internal/types"
)

// BrowserClient launches headless browser sessions
type BrowserClient struct {
	config *types.Config
	logger types.Logger
}

// NewBrowserClient creates a new browser client
func NewBrowserClient(config *types.Config, logger types.Logger) *BrowserClient {
	return &BrowserClient{
		config: config,
		logger: logger,
	}
}

// Open starts a browser configured for the site's locale and returns its tab.
// The caller must Close the page.
func (b *BrowserClient) Open(ctx context.Context, profile *types.SiteProfile) (*BrowserPage, error) {
	headless := profile.Headless
	if b.config.Headless != nil {
		headless = *b.config.Headless
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", profile.Locale.Language),
		chromedp.UserAgent(b.config.UserAgent),
		chromedp.WindowSize(b.config.WindowWidth, b.config.WindowHeight),
	)
	if b.config.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(b.config.Proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(b.logger.Debugf),
		chromedp.WithErrorf(b.logger.Debugf),
	)

	cancel := func() {
		tabCancel()
		allocCancel()
	}

	if err := chromedp.Run(tabCtx, b.disguise(profile.Locale)); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	b.logger.WithFields(logrus.Fields{
		"site":     profile.Name,
		"headless": headless,
		"locale":   profile.Locale.Language,
	}).Debug("Browser session started")

	return &BrowserPage{
		ctx:    tabCtx,
		cancel: cancel,
		config: b.config,
		logger: b.logger,
		pointer: types.Point{
			X: float64(b.config.WindowWidth) / 2,
			Y: float64(b.config.WindowHeight) / 2,
		},
	}, nil
}

// disguise applies the locale profile and hides the automation signals
// before the first navigation
func (b *BrowserClient) disguise(locale types.Locale) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return err
		}

		headers := network.Headers{}
		for k, v := range locale.Headers() {
			headers[k] = v
		}
		if err := network.SetExtraHTTPHeaders(headers).Do(ctx); err != nil {
			return err
		}

		if locale.Timezone != "" {
			if err := emulation.SetTimezoneOverride(locale.Timezone).Do(ctx); err != nil {
				return err
			}
		}
		if locale.Language != "" {
			if err := emulation.SetLocaleOverride().WithLocale(locale.Language).Do(ctx); err != nil {
				return err
			}
		}

		override := emulation.SetUserAgentOverride(b.config.UserAgent).WithAcceptLanguage(locale.AcceptLanguage)
		if locale.Platform != "" {
			override = override.WithPlatform(locale.Platform)
		}
		if err := override.Do(ctx); err != nil {
			return err
		}

		_, err := page.AddScriptToEvaluateOnNewDocument(StealthScript(locale)).Do(ctx)
		return err
	})
}

// StealthScript returns the init script that masks the automation flag,
// plugin list, platform and language list
func StealthScript(locale types.Locale) string {
	languages, _ := json.Marshal(locale.Languages)
	platform, _ := json.Marshal(locale.Platform)

	return fmt.Sprintf(`Object.defineProperty(navigator, 'webdriver', {get: () => false});
Object.defineProperty(navigator, 'languages', {get: () => %s});
Object.defineProperty(navigator, 'platform', {get: () => %s});
window.chrome = { runtime: {} };
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
`, languages, platform)
}

// textMatchJS walks text nodes in document order and returns the text of the
// first element whose own text matches the pattern
const textMatchJS = `(() => {
	const re = new RegExp(%s);
	const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_TEXT);
	let node;
	while ((node = walker.nextNode())) {
		const parent = node.parentElement;
		if (!parent || ['SCRIPT', 'STYLE', 'NOSCRIPT'].includes(parent.tagName)) continue;
		if (re.test(node.textContent)) return (parent.innerText || node.textContent).trim();
	}
	return '';
})()`

// BrowserPage implements types.Page over a chromedp tab
type BrowserPage struct {
	ctx     context.Context
	cancel  context.CancelFunc
	config  *types.Config
	logger  types.Logger
	pointer types.Point
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx
func (p *BrowserPage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url and waits for the load event
func (p *BrowserPage) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, p.config.NavigationTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// WaitReady waits for the document body
func (p *BrowserPage) WaitReady(ctx context.Context) error {
	if err := p.run(ctx, p.config.ReadyTimeout, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("page not ready: %w", err)
	}
	return nil
}

// QueryAll returns every node matching sel without waiting for one to appear
func (p *BrowserPage) QueryAll(ctx context.Context, sel types.Selector) ([]types.Element, error) {
	var nodes []*cdp.Node
	err := p.run(ctx, p.config.ActionTimeout,
		chromedp.Nodes(sel.CSS, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", sel, err)
	}

	elements := make([]types.Element, 0, len(nodes))
	for _, node := range nodes {
		el := &browserElement{page: p, node: node}
		if sel.HasText != "" {
			var text string
			if err := p.run(ctx, p.config.ActionTimeout,
				chromedp.TextContent(el.ids(), &text, chromedp.ByNodeID),
			); err != nil || !strings.Contains(text, sel.HasText) {
				continue
			}
		}
		elements = append(elements, el)
	}

	return elements, nil
}

// QueryFirst returns the first node matching sel, or nil
func (p *BrowserPage) QueryFirst(ctx context.Context, sel types.Selector) (types.Element, error) {
	elements, err := p.QueryAll(ctx, sel)
	if err != nil || len(elements) == 0 {
		return nil, err
	}
	return elements[0], nil
}

// FirstTextMatching evaluates pattern as a JavaScript regular expression
func (p *BrowserPage) FirstTextMatching(ctx context.Context, pattern string) (string, error) {
	quoted, err := json.Marshal(pattern)
	if err != nil {
		return "", err
	}

	var text string
	if err := p.run(ctx, p.config.ActionTimeout,
		chromedp.Evaluate(fmt.Sprintf(textMatchJS, quoted), &text),
	); err != nil {
		return "", fmt.Errorf("text search failed: %w", err)
	}
	return text, nil
}

// MouseMove dispatches a pointer move
func (p *BrowserPage) MouseMove(ctx context.Context, x, y float64) error {
	if err := p.run(ctx, p.config.ActionTimeout, chromedp.MouseEvent(input.MouseMoved, x, y)); err != nil {
		return err
	}
	p.pointer = types.Point{X: x, Y: y}
	return nil
}

// MouseClick dispatches a left click at the coordinate
func (p *BrowserPage) MouseClick(ctx context.Context, x, y float64) error {
	if err := p.run(ctx, p.config.ActionTimeout, chromedp.MouseClickXY(x, y)); err != nil {
		return err
	}
	p.pointer = types.Point{X: x, Y: y}
	return nil
}

// MouseWheel dispatches a wheel event at the current pointer position
func (p *BrowserPage) MouseWheel(ctx context.Context, dx, dy float64) error {
	return p.run(ctx, p.config.ActionTimeout,
		input.DispatchMouseEvent(input.MouseWheel, p.pointer.X, p.pointer.Y).
			WithDeltaX(dx).
			WithDeltaY(dy),
	)
}

// Screenshot captures the full page as PNG
func (p *BrowserPage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, p.config.ActionTimeout, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// URL returns the current location
func (p *BrowserPage) URL(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, p.config.ActionTimeout, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Close shuts the tab and the browser process down
func (p *BrowserPage) Close() {
	p.cancel()
}

type browserElement struct {
	page *BrowserPage
	node *cdp.Node
}

func (e *browserElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

// Click waits for the node to be visible and clicks its centre
func (e *browserElement) Click(ctx context.Context) error {
	return e.page.run(ctx, e.page.config.ActionTimeout, chromedp.Click(e.ids(), chromedp.ByNodeID))
}

func (e *browserElement) BoundingBox(ctx context.Context) (*types.Box, error) {
	var model *dom.BoxModel
	err := e.page.run(ctx, e.page.config.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		model, err = dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	if model == nil || len(model.Border) < 2 || model.Width == 0 || model.Height == 0 {
		return nil, nil
	}

	return &types.Box{
		X:      model.Border[0],
		Y:      model.Border[1],
		Width:  float64(model.Width),
		Height: float64(model.Height),
	}, nil
}

// Visible treats a node with a non-empty layout box as visible
func (e *browserElement) Visible(ctx context.Context) (bool, error) {
	box, err := e.BoundingBox(ctx)
	if err != nil {
		return false, err
	}
	return box != nil, nil
}

func (e *browserElement) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.page.run(ctx, e.page.config.ActionTimeout, chromedp.Text(e.ids(), &text, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (e *browserElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	if err := e.page.run(ctx, e.page.config.ActionTimeout,
		chromedp.AttributeValue(e.ids(), name, &value, &ok, chromedp.ByNodeID),
	); err != nil {
		return "", false, err
	}
	return value, ok, nil
}
