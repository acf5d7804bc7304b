package adapters

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"storefront-sampler/internal/types"
	"storefront-sampler/utils"
)

// ErrNoProducts is returned when no product-link selector matches anything
var ErrNoProducts = errors.New("no products found on listing page")

// ErrUnknownSite is returned by Lookup for unregistered site names
var ErrUnknownSite = errors.New("unknown site")

// maxPriceCandidates bounds how many matches of one price selector are read
const maxPriceCandidates = 5

// Outcome classifies a single candidate attempt
type Outcome int

const (
	NotFound Outcome = iota
	Found
	Errored
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Errored:
		return "errored"
	default:
		return "not found"
	}
}

// Attempt is the result of trying one selector
type Attempt[T any] struct {
	Outcome Outcome
	Value   T
	Err     error
}

func found[T any](v T) Attempt[T] {
	return Attempt[T]{Outcome: Found, Value: v}
}

func notFound[T any]() Attempt[T] {
	return Attempt[T]{Outcome: NotFound}
}

func errored[T any](err error) Attempt[T] {
	return Attempt[T]{Outcome: Errored, Err: err}
}

// FirstMatch tries candidates in order and returns the value of the first
// attempt that is Found. NotFound and Errored both advance to the next
// candidate; onMiss, when set, observes them.
func FirstMatch[T any](
	ctx context.Context,
	candidates []types.Selector,
	try func(context.Context, types.Selector) Attempt[T],
	onMiss func(types.Selector, Outcome, error),
) (T, types.Selector, bool) {
	for _, sel := range candidates {
		attempt := try(ctx, sel)
		if attempt.Outcome == Found {
			return attempt.Value, sel, true
		}
		if onMiss != nil {
			onMiss(sel, attempt.Outcome, attempt.Err)
		}
	}

	var zero T
	return zero, types.Selector{}, false
}

// Adapter runs the selector cascades of one site profile against a page
type Adapter struct {
	profile *types.SiteProfile
	config  *types.Config
	logger  types.Logger
	human   *utils.Humanizer
}

// NewAdapter creates a new adapter for profile
func NewAdapter(profile *types.SiteProfile, config *types.Config, logger types.Logger, human *utils.Humanizer) *Adapter {
	return &Adapter{
		profile: profile,
		config:  config,
		logger:  logger,
		human:   human,
	}
}

// Profile returns the site profile the adapter was built for
func (a *Adapter) Profile() *types.SiteProfile {
	return a.profile
}

func (a *Adapter) missLogger(role types.Role) func(types.Selector, Outcome, error) {
	return func(sel types.Selector, outcome Outcome, err error) {
		entry := a.logger.WithFields(logrus.Fields{
			"site":     a.profile.Name,
			"role":     role,
			"selector": sel.String(),
			"outcome":  outcome.String(),
		})
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Debug("Selector did not match")
	}
}

// DismissOverlay closes the first overlay found. It is best effort and never
// fails the caller.
func (a *Adapter) DismissOverlay(ctx context.Context, page types.Page) bool {
	return a.dismiss(ctx, page, types.RoleOverlayClose, false, 500*time.Millisecond, 1500*time.Millisecond)
}

// ClickBanner clicks the first visible promotional banner found
func (a *Adapter) ClickBanner(ctx context.Context, page types.Page) bool {
	return a.dismiss(ctx, page, types.RoleBanner, true, time.Second, 2*time.Second)
}

func (a *Adapter) dismiss(ctx context.Context, page types.Page, role types.Role, mustBeVisible bool, reactMin, reactMax time.Duration) bool {
	_, sel, ok := FirstMatch(ctx, a.profile.Selectors[role], func(ctx context.Context, sel types.Selector) Attempt[bool] {
		el, err := page.QueryFirst(ctx, sel)
		if err != nil {
			return errored[bool](err)
		}
		if el == nil {
			return notFound[bool]()
		}

		if mustBeVisible {
			visible, err := el.Visible(ctx)
			if err != nil {
				return errored[bool](err)
			}
			if !visible {
				return notFound[bool]()
			}
		}

		box, err := el.BoundingBox(ctx)
		if err != nil {
			return errored[bool](err)
		}
		if box == nil {
			return notFound[bool]()
		}

		center := box.Center()
		if a.profile.PointerTravel {
			a.human.MoveTo(ctx, page, a.human.RandomPoint(50, 200), center, a.human.RandInt(8, 20))
		}

		a.human.Pause(ctx, 200*time.Millisecond, 600*time.Millisecond)
		if err := el.Click(ctx); err != nil {
			a.logger.Debugf("Direct click on %s failed, clicking at (%.0f, %.0f): %v", sel, center.X, center.Y, err)
			if err := page.MouseClick(ctx, center.X, center.Y); err != nil {
				return errored[bool](err)
			}
		}
		a.human.Pause(ctx, reactMin, reactMax)

		return found(true)
	}, a.missLogger(role))

	if ok {
		a.logger.WithFields(logrus.Fields{
			"site":     a.profile.Name,
			"role":     role,
			"selector": sel.String(),
		}).Info("Dismissed interstitial")
	}
	return ok
}

// LocateProducts returns the matches of the first product-link selector that
// matches anything. Later selectors are not tried once one matches.
func (a *Adapter) LocateProducts(ctx context.Context, page types.Page) ([]types.Element, types.Selector, error) {
	products, sel, ok := FirstMatch(ctx, a.profile.Selectors[types.RoleProductLink], func(ctx context.Context, sel types.Selector) Attempt[[]types.Element] {
		elements, err := page.QueryAll(ctx, sel)
		if err != nil {
			return errored[[]types.Element](err)
		}
		if len(elements) == 0 {
			return notFound[[]types.Element]()
		}
		return found(elements)
	}, a.missLogger(types.RoleProductLink))

	if !ok {
		return nil, types.Selector{}, ErrNoProducts
	}

	a.logger.WithFields(logrus.Fields{
		"site":     a.profile.Name,
		"selector": sel.String(),
		"count":    len(products),
	}).Info("Found products")
	return products, sel, nil
}

// PickProduct draws one product uniformly at random
func (a *Adapter) PickProduct(products []types.Element) types.Element {
	if len(products) == 0 {
		return nil
	}
	return products[a.human.RandInt(0, len(products)-1)]
}

// SelectProduct locates the products and picks one of them
func (a *Adapter) SelectProduct(ctx context.Context, page types.Page) (types.Element, error) {
	products, _, err := a.LocateProducts(ctx, page)
	if err != nil {
		return nil, err
	}
	return a.PickProduct(products), nil
}

// ValidName accepts names longer than three characters
func ValidName(text string) bool {
	return utf8.RuneCountInString(text) > 3
}

// ValidPrice accepts non-empty text carrying a currency marker or a digit
func (a *Adapter) ValidPrice(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	for _, marker := range a.profile.CurrencyMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return strings.IndexFunc(text, unicode.IsDigit) >= 0
}

// FallbackPricePattern matches any currency marker of the site or a run of
// two or more digits
func (a *Adapter) FallbackPricePattern() string {
	parts := make([]string, 0, len(a.profile.CurrencyMarkers)+1)
	for _, marker := range a.profile.CurrencyMarkers {
		parts = append(parts, regexp.QuoteMeta(marker))
	}
	parts = append(parts, `\d{2,}`)
	return strings.Join(parts, "|")
}

// ExtractName returns the first valid product name, or types.NameNotFound
func (a *Adapter) ExtractName(ctx context.Context, page types.Page) string {
	name, sel, ok := FirstMatch(ctx, a.profile.Selectors[types.RoleNameField], func(ctx context.Context, sel types.Selector) Attempt[string] {
		readCtx, cancel := context.WithTimeout(ctx, a.config.NameReadTimeout)
		defer cancel()

		el, err := page.QueryFirst(readCtx, sel)
		if err != nil {
			return errored[string](err)
		}
		if el == nil {
			return notFound[string]()
		}

		text, err := el.Text(readCtx)
		if err != nil {
			return errored[string](err)
		}
		if !ValidName(text) {
			return notFound[string]()
		}
		return found(text)
	}, a.missLogger(types.RoleNameField))

	if !ok {
		a.logger.WithField("site", a.profile.Name).Warn("Product name not found")
		return types.NameNotFound
	}

	a.logger.WithField("selector", sel.String()).Debug("Name found")
	return name
}

// ExtractPrice returns the first valid price among the first matches of each
// price selector, then tries a page wide text search, then gives
// types.PriceNotFound
func (a *Adapter) ExtractPrice(ctx context.Context, page types.Page) string {
	price, sel, ok := FirstMatch(ctx, a.profile.Selectors[types.RolePriceField], func(ctx context.Context, sel types.Selector) Attempt[string] {
		elements, err := page.QueryAll(ctx, sel)
		if err != nil {
			return errored[string](err)
		}
		if len(elements) > maxPriceCandidates {
			elements = elements[:maxPriceCandidates]
		}

		for _, el := range elements {
			readCtx, cancel := context.WithTimeout(ctx, a.config.PriceReadTimeout)
			text, err := el.Text(readCtx)
			cancel()
			if err != nil {
				continue
			}
			if a.ValidPrice(text) {
				return found(strings.TrimSpace(text))
			}
		}
		return notFound[string]()
	}, a.missLogger(types.RolePriceField))

	if ok {
		a.logger.WithField("selector", sel.String()).Info("Price found")
		return price
	}

	readCtx, cancel := context.WithTimeout(ctx, a.config.FallbackReadTimeout)
	defer cancel()

	text, err := page.FirstTextMatching(readCtx, a.FallbackPricePattern())
	if err == nil && strings.TrimSpace(text) != "" {
		a.logger.Info("Price found via text search")
		return strings.TrimSpace(text)
	}
	if err != nil {
		a.logger.Debugf("Price text search failed: %v", err)
	}

	a.logger.WithField("site", a.profile.Name).Warn("Product price not found")
	return types.PriceNotFound
}

// ResolveLink joins a possibly relative product link with the site origin
func (a *Adapter) ResolveLink(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "http") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return strings.TrimRight(a.profile.Origin, "/") + href
}

var registry = map[string]func() *types.SiteProfile{
	"mercadolivre": MercadoLivre,
	"shopee":       Shopee,
}

// Lookup returns a fresh copy of the named site profile
func Lookup(name string) (*types.SiteProfile, error) {
	build, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownSite, name, strings.Join(Sites(), ", "))
	}
	return build(), nil
}

// Sites lists the registered site names
func Sites() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
