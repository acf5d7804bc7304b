package extractor

import (
	"context"
	"fmt"

	"storefront-sampler/internal/types"
	"storefront-sampler/utils"
)

// OpenFunc starts a browsing session for a site
type OpenFunc func(ctx context.Context, profile *types.SiteProfile) (types.Page, error)

// BrowserOpener opens chromedp driven sessions
func BrowserOpener(config *types.Config, logger types.Logger) OpenFunc {
	client := utils.NewBrowserClient(config, logger)
	return func(ctx context.Context, profile *types.SiteProfile) (types.Page, error) {
		page, err := client.Open(ctx, profile)
		if err != nil {
			return nil, err
		}
		return page, nil
	}
}

// DocumentOpener opens static sessions that fetch pages over HTTP with the
// site's regional headers
func DocumentOpener(config *types.Config, logger types.Logger) OpenFunc {
	return func(ctx context.Context, profile *types.SiteProfile) (types.Page, error) {
		client, err := utils.NewHTTPClient(config, logger)
		if err != nil {
			return nil, err
		}
		client.SetHeaders(profile.Locale.Headers())
		return utils.NewDocumentPage(client, logger), nil
	}
}

// OpenerFor picks the opener matching config.Mode
func OpenerFor(config *types.Config, logger types.Logger) (OpenFunc, error) {
	switch config.Mode {
	case types.ModeBrowser, "":
		return BrowserOpener(config, logger), nil
	case types.ModeHTTP:
		return DocumentOpener(config, logger), nil
	default:
		return nil, fmt.Errorf("unknown mode %q (use %s or %s)", config.Mode, types.ModeBrowser, types.ModeHTTP)
	}
}
