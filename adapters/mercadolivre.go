package adapters

import "storefront-sampler/internal/types"

// MercadoLivre returns the profile for mercadolivre.com.br
func MercadoLivre() *types.SiteProfile {
	return &types.SiteProfile{
		Name:       "mercadolivre",
		Origin:     "https://www.mercadolivre.com.br",
		DefaultURL: "https://www.mercadolivre.com.br/ofertas/decoracao-de-natal?DEAL_ID=&S=MKT&V=1&T=DCVY&L=CM_MLB_FH_VERTICAL_NATALDECO_NOV_SEG",
		Locale: types.Locale{
			Language:       "pt-BR",
			Languages:      []string{"pt-BR", "pt", "en"},
			Timezone:       "America/Sao_Paulo",
			AcceptLanguage: "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
			Referer:        "https://www.google.com.br/",
			Platform:       "Linux x86_64",
		},
		Selectors: types.SelectorTable{
			types.RoleOverlayClose: {
				{CSS: "button[aria-label='Fechar']"},
				{CSS: "button[aria-label='close']"},
				{CSS: "button[aria-label='Close']"},
				{CSS: ".andes-modal__close"},
				{CSS: ".ui-pdp-dialog__close"},
				{CSS: ".modal-close"},
				{CSS: "button[data-testid='close']"},
				{CSS: "button", HasText: "Fechar"},
				{CSS: "button", HasText: "Fechar ventana"},
			},
			types.RoleBanner: {
				{CSS: "img[alt*='Banner']"},
				{CSS: "img[alt*='banner']"},
				{CSS: "img[src*='mercadolivre']"},
				{CSS: "img[src*='mlb-s3']"},
				{CSS: "div.promotions img"},
			},
			types.RoleProductLink: {
				{CSS: "a.ui-search-link"},
				{CSS: "li.ui-search-layout__item a.ui-search-link"},
				{CSS: "a[href*='/p/']"},
				{CSS: ".ui-search-result__content"},
			},
			types.RoleNameField: {
				{CSS: "h1.ui-pdp-title"},
				{CSS: "h1[itemprop='name']"},
				{CSS: "h1"},
				{CSS: "span.ui-pdp-title"},
			},
			types.RolePriceField: {
				{CSS: "span.price-tag-fraction"},
				{CSS: "span.price-tag-symbol"},
				{CSS: "span.price-tag-amount"},
				{CSS: "div.ui-pdp-price__second-line"},
				{CSS: "[class*='price-tag']"},
				{CSS: "div.andes-money-amount"},
			},
		},
		CurrencyMarkers:  []string{"R$", "$"},
		ScreenshotPrefix: "mercado",
		Headless:         true,
	}
}
