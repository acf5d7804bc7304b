package adapters

import "storefront-sampler/internal/types"

// Shopee returns the profile for shopee.com.ar. The pointer travels to
// targets before clicking on this site.
func Shopee() *types.SiteProfile {
	return &types.SiteProfile{
		Name:       "shopee",
		Origin:     "https://shopee.com.ar",
		DefaultURL: "https://shopee.com.ar/topick_global_ar.ar",
		Locale: types.Locale{
			Language:       "es-AR",
			Languages:      []string{"es-AR", "es", "en"},
			Timezone:       "America/Argentina/Buenos_Aires",
			AcceptLanguage: "es-AR,es;q=0.9,en-US;q=0.8,en;q=0.7",
			Referer:        "https://www.google.com.ar/",
			Platform:       "Linux x86_64",
		},
		Selectors: types.SelectorTable{
			types.RoleOverlayClose: {
				{CSS: "svg.V4lWQZ"},
				{CSS: "button[aria-label='Fechar']"},
				{CSS: "button[aria-label='Close']"},
				{CSS: ".shopee-modal__close"},
				{CSS: ".modal-close"},
				{CSS: "button[data-testid='close']"},
				{CSS: "button", HasText: "Fechar"},
				{CSS: "button", HasText: "Close"},
			},
			types.RoleBanner: {
				{CSS: "img.uXN1L5"},
				{CSS: "img[alt='Banner']"},
				{CSS: "img[src*='down-ar.img.susercontent.com']"},
			},
			types.RoleProductLink: {
				{CSS: "a[href*='/product/']"},
				{CSS: "div[data-sqe='item']"},
				{CSS: ".shop-search-result-view__item"},
			},
			types.RoleNameField: {
				{CSS: "span.qaNIZv"},
				{CSS: "h1"},
				{CSS: "div[class*='title']"},
				{CSS: "span[class*='product-title']"},
			},
			types.RolePriceField: {
				{CSS: "div.pmmxKx"},
				{CSS: "div[class*='price']"},
				{CSS: "span[class*='price']"},
				{CSS: "div.price"},
				{CSS: "[class*='PriceSection']"},
				{CSS: "[class*='product-price']"},
				{CSS: "div[data-testid='lblProductPrice']"},
			},
		},
		CurrencyMarkers:  []string{"$", "AR$", "ARS", "AR"},
		ScreenshotPrefix: "produto",
		Headless:         false,
		PointerTravel:    true,
	}
}
