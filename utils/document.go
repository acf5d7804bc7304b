package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"storefront-sampler/internal/types"
)

// ErrNotRendered is returned for operations that need a layout engine
var ErrNotRendered = errors.New("static document pages cannot be rendered")

// ErrNotLink is returned when clicking an element that has no link to follow
var ErrNotLink = errors.New("element is not a link")

// nominal layout for elements of a static document, one row per match
const (
	nominalWidth  = 100
	nominalHeight = 20
)

// Fetcher retrieves raw page bodies. *HTTPClient satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// DocumentPage implements types.Page over a parsed HTML document. Pointer
// input has nothing to act on and is accepted silently; clicking a link
// follows it.
type DocumentPage struct {
	fetcher Fetcher
	logger  types.Logger
	doc     *goquery.Document
	current *url.URL
	pointer types.Point
}

// NewDocumentPage creates an empty page that loads documents through fetcher
func NewDocumentPage(fetcher Fetcher, logger types.Logger) *DocumentPage {
	return &DocumentPage{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Navigate fetches and parses rawURL
func (d *DocumentPage) Navigate(ctx context.Context, rawURL string) error {
	target, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	body, err := d.fetcher.Get(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("failed to get page content: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to parse page: %w", err)
	}

	d.doc = doc
	d.current = target
	d.logger.Debugf("Loaded document %s (%d bytes)", rawURL, len(body))
	return nil
}

// WaitReady succeeds once a document is loaded
func (d *DocumentPage) WaitReady(ctx context.Context) error {
	if d.doc == nil {
		return errors.New("no document loaded")
	}
	return ctx.Err()
}

// QueryAll returns every element matching sel in document order
func (d *DocumentPage) QueryAll(ctx context.Context, sel types.Selector) ([]types.Element, error) {
	if d.doc == nil {
		return nil, errors.New("no document loaded")
	}

	var elements []types.Element
	d.doc.Find(sel.CSS).Each(func(i int, s *goquery.Selection) {
		if sel.HasText != "" && !strings.Contains(normalizeText(s.Text()), sel.HasText) {
			return
		}
		elements = append(elements, &documentElement{
			page:  d,
			sel:   s,
			index: len(elements),
		})
	})

	return elements, nil
}

// QueryFirst returns the first element matching sel, or nil
func (d *DocumentPage) QueryFirst(ctx context.Context, sel types.Selector) (types.Element, error) {
	elements, err := d.QueryAll(ctx, sel)
	if err != nil || len(elements) == 0 {
		return nil, err
	}
	return elements[0], nil
}

// FirstTextMatching scans elements in document order and returns the text of
// the first one whose own text matches pattern
func (d *DocumentPage) FirstTextMatching(ctx context.Context, pattern string) (string, error) {
	if d.doc == nil {
		return "", errors.New("no document loaded")
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid text pattern %q: %w", pattern, err)
	}

	var found string
	d.doc.Find("body *").EachWithBreak(func(i int, s *goquery.Selection) bool {
		switch goquery.NodeName(s) {
		case "script", "style", "noscript", "template":
			return true
		}
		if re.MatchString(ownText(s)) {
			found = normalizeText(s.Text())
			return false
		}
		return true
	})

	return found, nil
}

// MouseMove records the pointer position
func (d *DocumentPage) MouseMove(ctx context.Context, x, y float64) error {
	d.pointer = types.Point{X: x, Y: y}
	return nil
}

// MouseClick records the pointer position
func (d *DocumentPage) MouseClick(ctx context.Context, x, y float64) error {
	d.pointer = types.Point{X: x, Y: y}
	return nil
}

// MouseWheel is accepted and ignored
func (d *DocumentPage) MouseWheel(ctx context.Context, dx, dy float64) error {
	return nil
}

// Pointer returns the last pointer position
func (d *DocumentPage) Pointer() types.Point {
	return d.pointer
}

// Screenshot always fails with ErrNotRendered
func (d *DocumentPage) Screenshot(ctx context.Context) ([]byte, error) {
	return nil, ErrNotRendered
}

// URL returns the address of the loaded document
func (d *DocumentPage) URL(ctx context.Context) (string, error) {
	if d.current == nil {
		return "", errors.New("no document loaded")
	}
	return d.current.String(), nil
}

// Close closes the fetcher when it holds resources
func (d *DocumentPage) Close() {
	if c, ok := d.fetcher.(interface{ Close() }); ok {
		c.Close()
	}
}

func (d *DocumentPage) resolve(href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", href, err)
	}
	if d.current == nil {
		return ref.String(), nil
	}
	return d.current.ResolveReference(ref).String(), nil
}

type documentElement struct {
	page  *DocumentPage
	sel   *goquery.Selection
	index int
}

// Click follows the element's link, or its enclosing link. Elements
// outside any link return ErrNotLink.
func (e *documentElement) Click(ctx context.Context) error {
	link := e.sel
	if _, ok := link.Attr("href"); !ok {
		link = e.sel.Closest("a[href]")
	}

	href, ok := link.Attr("href")
	if !ok {
		return ErrNotLink
	}

	target, err := e.page.resolve(href)
	if err != nil {
		return err
	}
	return e.page.Navigate(ctx, target)
}

func (e *documentElement) BoundingBox(ctx context.Context) (*types.Box, error) {
	if isHidden(e.sel) {
		return nil, nil
	}
	return &types.Box{
		X:      0,
		Y:      float64(e.index * nominalHeight),
		Width:  nominalWidth,
		Height: nominalHeight,
	}, nil
}

func (e *documentElement) Visible(ctx context.Context) (bool, error) {
	return !isHidden(e.sel), nil
}

func (e *documentElement) Text(ctx context.Context) (string, error) {
	return normalizeText(e.sel.Text()), nil
}

func (e *documentElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	value, ok := e.sel.Attr(name)
	return value, ok, nil
}

// isHidden reports whether s or an ancestor is hidden by markup
func isHidden(s *goquery.Selection) bool {
	for cur := s; cur.Length() > 0; cur = cur.Parent() {
		if _, ok := cur.Attr("hidden"); ok {
			return true
		}
		if t, _ := cur.Attr("type"); t == "hidden" {
			return true
		}
		style, _ := cur.Attr("style")
		style = strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return true
		}
	}
	return false
}

func ownText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(i int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
		}
	})
	return b.String()
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
