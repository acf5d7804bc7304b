package types

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sentinel values persisted when a field cannot be extracted
const (
	NameNotFound  = "NOME NÃO ENCONTRADO"
	PriceNotFound = "PREÇO NÃO ENCONTRADO"
)

// ExtractedProduct is the record written once per successful session
type ExtractedProduct struct {
	Name  string `json:"name"`
	Price string `json:"price"`
	URL   string `json:"url"`
}

// Role names the purpose of a selector list
type Role string

const (
	RoleOverlayClose Role = "overlay-close"
	RoleBanner       Role = "banner"
	RoleProductLink  Role = "product-link"
	RoleNameField    Role = "name-field"
	RolePriceField   Role = "price-field"
)

// Roles lists every role in the order a session uses them
var Roles = []Role{RoleOverlayClose, RoleBanner, RoleProductLink, RoleNameField, RolePriceField}

// Selector is a single lookup pattern. HasText optionally restricts the CSS
// matches to elements whose text contains the given string.
type Selector struct {
	CSS     string `json:"css"`
	HasText string `json:"has_text,omitempty"`
}

// String renders the selector for logs
func (s Selector) String() string {
	if s.HasText == "" {
		return s.CSS
	}
	return s.CSS + ":has-text('" + s.HasText + "')"
}

// SelectorTable maps each role to its ordered candidates
type SelectorTable map[Role][]Selector

// Locale is the regional traffic profile of a marketplace
type Locale struct {
	Language       string   // e.g. pt-BR
	Languages      []string // navigator.languages
	Timezone       string
	AcceptLanguage string
	Referer        string
	Platform       string
}

// Headers returns the extra HTTP headers sent with every request
func (l Locale) Headers() map[string]string {
	return map[string]string{
		"Referer":         l.Referer,
		"Accept-Language": l.AcceptLanguage,
		"DNT":             "1",
	}
}

// SiteProfile is everything site specific about a session, as data
type SiteProfile struct {
	Name             string
	Origin           string // joined with relative product links
	DefaultURL       string
	Locale           Locale
	Selectors        SelectorTable
	CurrencyMarkers  []string
	ScreenshotPrefix string
	Headless         bool
	// PointerTravel moves the pointer along an eased path before clicks
	PointerTravel bool
}

// Config holds the configuration for a sampling run
type Config struct {
	Site          string
	URL           string
	Proxy         string
	Mode          string // "browser" or "http"
	UserAgent     string
	Headless      *bool // nil keeps the site profile default
	ClickBanner   bool
	Seed          int64 // 0 seeds from the clock
	OutputFile    string
	ScreenshotDir string
	DatabaseURL   string

	Timeout             time.Duration // whole session
	NavigationTimeout   time.Duration
	ReadyTimeout        time.Duration
	ActionTimeout       time.Duration
	NameReadTimeout     time.Duration
	PriceReadTimeout    time.Duration
	FallbackReadTimeout time.Duration

	WindowWidth  int
	WindowHeight int
}

const (
	ModeBrowser = "browser"
	ModeHTTP    = "http"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Site:                "mercadolivre",
		Mode:                ModeBrowser,
		UserAgent:           "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		OutputFile:          "produtos.csv",
		ScreenshotDir:       "screenshots",
		Timeout:             5 * time.Minute,
		NavigationTimeout:   60 * time.Second,
		ReadyTimeout:        30 * time.Second,
		ActionTimeout:       10 * time.Second,
		NameReadTimeout:     5 * time.Second,
		PriceReadTimeout:    2 * time.Second,
		FallbackReadTimeout: 3 * time.Second,
		WindowWidth:         1380,
		WindowHeight:        900,
	}
}

// Point is a viewport coordinate
type Point struct {
	X, Y float64
}

// Box is an element's bounding box in viewport coordinates
type Box struct {
	X, Y, Width, Height float64
}

// Center returns the middle of the box
func (b Box) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Element is a handle to one located node
type Element interface {
	Click(ctx context.Context) error
	// BoundingBox returns nil when the element has no layout box
	BoundingBox(ctx context.Context) (*Box, error)
	Visible(ctx context.Context) (bool, error)
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
}

// Page is one open tab, driven by a real browser or a parsed document
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitReady(ctx context.Context) error
	// QueryFirst returns nil, nil when nothing matches
	QueryFirst(ctx context.Context, sel Selector) (Element, error)
	QueryAll(ctx context.Context, sel Selector) ([]Element, error)
	// FirstTextMatching returns the text of the first element whose text
	// matches pattern, or "" when none does
	FirstTextMatching(ctx context.Context, pattern string) (string, error)
	MouseMove(ctx context.Context, x, y float64) error
	MouseClick(ctx context.Context, x, y float64) error
	MouseWheel(ctx context.Context, dx, dy float64) error
	Screenshot(ctx context.Context) ([]byte, error)
	URL(ctx context.Context) (string, error)
	Close()
}

// Rand is the randomness the humanizer and product picker draw from.
// *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) *logrus.Entry
	WithFields(fields logrus.Fields) *logrus.Entry
}
