package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/sirupsen/logrus"
	"storefront-sampler/adapters"
	"storefront-sampler/extractor"
	"storefront-sampler/internal/types"
)

// Prints how many elements each selector of a site matches on a page, to
// spot selectors that went stale after a site redesign.
func main() {
	var (
		siteFlag = flag.String("site", "mercadolivre", "Site whose selectors are probed")
		urlFlag  = flag.String("url", "", "Page to probe (default: the site's listing)")
		modeFlag = flag.String("mode", types.ModeHTTP, "Session backend: browser or http")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	profile, err := adapters.Lookup(*siteFlag)
	if err != nil {
		log.Fatal(err)
	}

	config := types.DefaultConfig()
	config.Site = profile.Name
	config.Mode = *modeFlag
	headless := true
	config.Headless = &headless

	target := *urlFlag
	if target == "" {
		target = profile.DefaultURL
	}

	open, err := extractor.OpenerFor(config, logger)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	page, err := open(ctx, profile)
	if err != nil {
		log.Fatalf("Failed to open session: %v", err)
	}
	defer page.Close()

	if err := page.Navigate(ctx, target); err != nil {
		log.Fatalf("Failed to load %s: %v", target, err)
	}

	fmt.Printf("=== Probing %s ===\n%s\n", profile.Name, target)
	for _, role := range types.Roles {
		fmt.Printf("\n%s\n", role)
		for _, sel := range profile.Selectors[role] {
			probe(ctx, page, sel)
		}
	}
}

func probe(ctx context.Context, page types.Page, sel types.Selector) {
	elements, err := page.QueryAll(ctx, sel)
	if err != nil {
		fmt.Printf("  %-50s error: %v\n", sel, err)
		return
	}

	fmt.Printf("  %-50s %d\n", sel, len(elements))
	if len(elements) == 0 {
		return
	}

	text, _ := elements[0].Text(ctx)
	href, _, _ := elements[0].Attribute(ctx, "href")
	if r := []rune(text); len(r) > 60 {
		text = string(r[:60]) + "..."
	}
	fmt.Printf("  %-50s first: text='%s' href='%s'\n", "", text, href)
}
