package extractor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"storefront-sampler/adapters"
	"storefront-sampler/internal/types"
	"storefront-sampler/storage"
	"storefront-sampler/utils"
)

// Options carries the collaborators of an Extractor. Rand, Sleep and Now
// default to a seeded source, utils.Sleep and time.Now.
type Options struct {
	Profile *types.SiteProfile
	Open    OpenFunc
	Sink    storage.Sink
	Rand    types.Rand
	Sleep   utils.SleepFunc
	Now     func() time.Time
}

// Extractor samples one random product from a storefront listing
type Extractor struct {
	config  *types.Config
	logger  types.Logger
	profile *types.SiteProfile
	adapter *adapters.Adapter
	human   *utils.Humanizer
	open    OpenFunc
	sink    storage.Sink
	now     func() time.Time
}

// NewExtractor creates a new extractor for opts.Profile
func NewExtractor(config *types.Config, logger types.Logger, opts Options) *Extractor {
	rng := opts.Rand
	if rng == nil {
		seed := config.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	human := utils.NewHumanizer(rng, opts.Sleep)

	return &Extractor{
		config:  config,
		logger:  logger,
		profile: opts.Profile,
		adapter: adapters.NewAdapter(opts.Profile, config, logger, human),
		human:   human,
		open:    opts.Open,
		sink:    opts.Sink,
		now:     now,
	}
}

// Run performs one session: open the listing, pick a product, extract its
// name and price, screenshot it and append the record to the sink. It returns
// adapters.ErrNoProducts when the listing shows no products; no record is
// written in that case or on any other error.
func (e *Extractor) Run(ctx context.Context) (*types.ExtractedProduct, error) {
	startTime := time.Now()
	log := e.logger.WithField("site", e.profile.Name)

	listingURL := e.config.URL
	if listingURL == "" {
		listingURL = e.profile.DefaultURL
	}

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	page, err := e.open(ctx, e.profile)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		page.Close()
		log.Infof("Session closed after %v", time.Since(startTime))
	}()

	log.Infof("Step 1: Opening listing %s", listingURL)
	if err := page.Navigate(ctx, listingURL); err != nil {
		return nil, fmt.Errorf("failed to load listing: %w", err)
	}
	e.browse(ctx, page, 3*time.Second, 6*time.Second, 300, 800)

	log.Info("Step 2: Dismissing interstitials...")
	e.adapter.DismissOverlay(ctx, page)
	e.human.Pause(ctx, 500*time.Millisecond, 1200*time.Millisecond)
	if e.config.ClickBanner {
		e.adapter.ClickBanner(ctx, page)
	}

	log.Info("Step 3: Looking for products...")
	product, err := e.adapter.SelectProduct(ctx, page)
	if err != nil {
		if errors.Is(err, adapters.ErrNoProducts) {
			log.Warn("No products found, check the product selectors")
		}
		return nil, err
	}

	if e.profile.PointerTravel {
		e.approach(ctx, page, product)
	}
	e.human.Pause(ctx, 500*time.Millisecond, 1500*time.Millisecond)

	log.Info("Step 4: Opening a random product...")
	if err := e.openProduct(ctx, page, product); err != nil {
		log.WithError(err).Error("Could not open product")
		return nil, err
	}

	e.human.Pause(ctx, 3*time.Second, 5*time.Second)
	if err := page.WaitReady(ctx); err != nil {
		return nil, fmt.Errorf("product page did not load: %w", err)
	}
	e.browse(ctx, page, 0, 0, 200, 500)

	log.Info("Step 5: Capturing screenshot...")
	if path, err := e.saveScreenshot(ctx, page); err != nil {
		log.WithError(err).Warn("Screenshot not saved")
	} else {
		log.Infof("Screenshot saved to %s", path)
	}

	log.Info("Step 6: Extracting name and price...")
	record := types.ExtractedProduct{
		Name:  e.adapter.ExtractName(ctx, page),
		Price: e.adapter.ExtractPrice(ctx, page),
	}

	record.URL, err = page.URL(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read product url: %w", err)
	}

	log.WithFields(logrus.Fields{
		"name":  record.Name,
		"price": record.Price,
		"url":   record.URL,
	}).Info("Product found")

	if err := e.sink.Append(ctx, e.profile.Name, record); err != nil {
		return nil, fmt.Errorf("failed to persist record: %w", err)
	}

	log.Infof("Sampling completed in %v", time.Since(startTime))
	return &record, nil
}

// browse idles, scrolls a random distance in [scrollMin, scrollMax] and idles
// again, the way a reader skims a page
func (e *Extractor) browse(ctx context.Context, page types.Page, idleMin, idleMax time.Duration, scrollMin, scrollMax int) {
	e.human.Pause(ctx, idleMin, idleMax)
	e.human.Scroll(ctx, page, e.human.RandInt(scrollMin, scrollMax))
	e.human.Pause(ctx, time.Second, 2*time.Second)
}

// approach moves the pointer from a random spot to the product
func (e *Extractor) approach(ctx context.Context, page types.Page, product types.Element) {
	box, err := product.BoundingBox(ctx)
	if err != nil || box == nil {
		return
	}
	e.human.MoveTo(ctx, page, e.human.RandomPoint(100, 300), box.Center(), e.human.RandInt(15, 25))
}

// openProduct clicks the product, falling back to following its link
func (e *Extractor) openProduct(ctx context.Context, page types.Page, product types.Element) error {
	clickCtx, cancel := context.WithTimeout(ctx, e.config.ActionTimeout)
	err := product.Click(clickCtx)
	cancel()
	if err == nil {
		return nil
	}
	e.logger.Debugf("Click on product failed, following its link: %v", err)

	href, ok, err := product.Attribute(ctx, "href")
	if err != nil {
		return fmt.Errorf("failed to read product link: %w", err)
	}
	if !ok || href == "" {
		return errors.New("product is neither clickable nor a link")
	}

	target := e.adapter.ResolveLink(href)
	if err := page.Navigate(ctx, target); err != nil {
		return fmt.Errorf("failed to open product link: %w", err)
	}
	return nil
}

// saveScreenshot writes a full page capture named after the capture time
func (e *Extractor) saveScreenshot(ctx context.Context, page types.Page) (string, error) {
	buf, err := page.Screenshot(ctx)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.config.ScreenshotDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.png", e.profile.ScreenshotPrefix, e.now().Format("20060102_150405"))
	path := filepath.Join(e.config.ScreenshotDir, name)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}
