package utils

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront-sampler/internal/types"
)

type fixtureFetcher struct {
	pages  map[string]string
	closed bool
}

func (f *fixtureFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("unexpected status code: 404")
	}
	return []byte(body), nil
}

func (f *fixtureFetcher) Close() {
	f.closed = true
}

const listingHTML = `<html><body>
<div class="modal"><button aria-label="Fechar">x</button><button>Fechar ventana</button></div>
<ul>
  <li class="item"><a class="product" href="/p/1">Árvore de Natal 1.5m</a></li>
  <li class="item"><a class="product" href="https://shop.example/p/2">Guirlanda</a></li>
  <li class="item" style="display: none"><a class="product" href="/p/3">Esgotado</a></li>
  <li class="item"><div class="card"><span class="title">Pisca-pisca</span></div></li>
</ul>
<a href="/p/4"><div class="tile">Bola de Natal</div></a>
<input type="hidden" name="token" value="abc">
</body></html>`

const productHTML = `<html><body>
<script>window.__PRICE__ = "R$ 1";</script>
<div class="pdp">
  <h1 class="ui-pdp-title">Árvore de Natal 1.5m</h1>
  <div class="price"><span class="amount">R$ 129,90</span></div>
</div>
</body></html>`

func newFixturePage(t *testing.T) (*DocumentPage, *fixtureFetcher) {
	t.Helper()
	fetcher := &fixtureFetcher{pages: map[string]string{
		"https://shop.example/list": listingHTML,
		"https://shop.example/p/1":  productHTML,
		"https://shop.example/p/4":  productHTML,
	}}
	page := NewDocumentPage(fetcher, logrus.New())
	require.NoError(t, page.Navigate(context.Background(), "https://shop.example/list"))
	return page, fetcher
}

func TestDocumentPage_NotLoaded(t *testing.T) {
	page := NewDocumentPage(&fixtureFetcher{}, logrus.New())
	ctx := context.Background()

	assert.Error(t, page.WaitReady(ctx))
	_, err := page.QueryAll(ctx, types.Selector{CSS: "a"})
	assert.Error(t, err)
	_, err = page.URL(ctx)
	assert.Error(t, err)
}

func TestDocumentPage_NavigateFailure(t *testing.T) {
	page := NewDocumentPage(&fixtureFetcher{}, logrus.New())

	err := page.Navigate(context.Background(), "https://shop.example/missing")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestDocumentPage_QueryAll(t *testing.T) {
	page, _ := newFixturePage(t)
	ctx := context.Background()

	products, err := page.QueryAll(ctx, types.Selector{CSS: "a.product"})
	require.NoError(t, err)
	assert.Len(t, products, 3)

	text, err := products[0].Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Árvore de Natal 1.5m", text)

	none, err := page.QueryAll(ctx, types.Selector{CSS: "a.ui-search-link"})
	require.NoError(t, err)
	assert.Empty(t, none)

	first, err := page.QueryFirst(ctx, types.Selector{CSS: "a.ui-search-link"})
	require.NoError(t, err)
	assert.Nil(t, first)
}

func TestDocumentPage_HasText(t *testing.T) {
	page, _ := newFixturePage(t)
	ctx := context.Background()

	buttons, err := page.QueryAll(ctx, types.Selector{CSS: "button", HasText: "Fechar ventana"})
	require.NoError(t, err)
	assert.Len(t, buttons, 1)

	buttons, err = page.QueryAll(ctx, types.Selector{CSS: "button", HasText: "Fechar"})
	require.NoError(t, err)
	assert.Len(t, buttons, 1)

	buttons, err = page.QueryAll(ctx, types.Selector{CSS: "button", HasText: "Close"})
	require.NoError(t, err)
	assert.Empty(t, buttons)
}

func TestDocumentPage_HiddenElements(t *testing.T) {
	page, _ := newFixturePage(t)
	ctx := context.Background()

	products, err := page.QueryAll(ctx, types.Selector{CSS: "a.product"})
	require.NoError(t, err)

	visible, err := products[0].Visible(ctx)
	require.NoError(t, err)
	assert.True(t, visible)

	visible, err = products[2].Visible(ctx)
	require.NoError(t, err)
	assert.False(t, visible)

	box, err := products[2].BoundingBox(ctx)
	require.NoError(t, err)
	assert.Nil(t, box)

	token, err := page.QueryFirst(ctx, types.Selector{CSS: "input[name='token']"})
	require.NoError(t, err)
	visible, err = token.Visible(ctx)
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestDocumentPage_BoundingBox(t *testing.T) {
	page, _ := newFixturePage(t)
	ctx := context.Background()

	products, err := page.QueryAll(ctx, types.Selector{CSS: "a.product"})
	require.NoError(t, err)

	box, err := products[1].BoundingBox(ctx)
	require.NoError(t, err)
	require.NotNil(t, box)
	assert.Equal(t, types.Point{X: nominalWidth / 2, Y: nominalHeight + nominalHeight/2}, box.Center())
}

func TestDocumentPage_ClickFollowsLink(t *testing.T) {
	page, _ := newFixturePage(t)
	ctx := context.Background()

	product, err := page.QueryFirst(ctx, types.Selector{CSS: "a.product"})
	require.NoError(t, err)
	require.NoError(t, product.Click(ctx))

	current, err := page.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/p/1", current)

	title, err := page.QueryFirst(ctx, types.Selector{CSS: "h1.ui-pdp-title"})
	require.NoError(t, err)
	require.NotNil(t, title)
}

func TestDocumentPage_ClickFollowsEnclosingLink(t *testing.T) {
	page, _ := newFixturePage(t)
	ctx := context.Background()

	tile, err := page.QueryFirst(ctx, types.Selector{CSS: "div.tile"})
	require.NoError(t, err)
	require.NoError(t, tile.Click(ctx))

	current, err := page.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/p/4", current)
}

func TestDocumentPage_ClickWithoutLink(t *testing.T) {
	page, _ := newFixturePage(t)
	ctx := context.Background()

	card, err := page.QueryFirst(ctx, types.Selector{CSS: "div.card"})
	require.NoError(t, err)
	assert.ErrorIs(t, card.Click(ctx), ErrNotLink)

	current, err := page.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/list", current)

	_, ok, err := card.Attribute(ctx, "href")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDocumentPage_FirstTextMatching(t *testing.T) {
	page, _ := newFixturePage(t)
	ctx := context.Background()
	require.NoError(t, page.Navigate(ctx, "https://shop.example/p/1"))

	text, err := page.FirstTextMatching(ctx, `R\$|\d{2,}`)
	require.NoError(t, err)
	assert.Equal(t, "R$ 129,90", text)

	text, err = page.FirstTextMatching(ctx, `EUR`)
	require.NoError(t, err)
	assert.Empty(t, text)

	_, err = page.FirstTextMatching(ctx, `(`)
	assert.Error(t, err)
}

func TestDocumentPage_PointerAndScreenshot(t *testing.T) {
	page, fetcher := newFixturePage(t)
	ctx := context.Background()

	require.NoError(t, page.MouseMove(ctx, 10, 20))
	require.NoError(t, page.MouseClick(ctx, 30, 40))
	require.NoError(t, page.MouseWheel(ctx, 0, 120))
	assert.Equal(t, types.Point{X: 30, Y: 40}, page.Pointer())

	_, err := page.Screenshot(ctx)
	assert.ErrorIs(t, err, ErrNotRendered)

	page.Close()
	assert.True(t, fetcher.closed)
}
