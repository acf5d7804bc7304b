package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront-sampler/extractor"
	"storefront-sampler/internal/types"
	"storefront-sampler/storage"
	"storefront-sampler/utils"
)

func newTestServer(open extractor.OpenFunc) *Server {
	return &Server{
		logger: logrus.New(),
		config: types.DefaultConfig(),
		sink:   storage.Multi{},
		open: func(config *types.Config, logger types.Logger) (extractor.OpenFunc, error) {
			return open, nil
		},
		sleep: func(ctx context.Context, d time.Duration) error { return nil },
	}
}

type pageSource map[string]string

func (p pageSource) Get(ctx context.Context, url string) ([]byte, error) {
	body, ok := p[url]
	if !ok {
		return nil, errors.New("unexpected status code: 404")
	}
	return []byte(body), nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(nil)
	rec := httptest.NewRecorder()

	server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"mercadolivre"`)
}

func TestHandleSample_Rejections(t *testing.T) {
	server := newTestServer(nil)

	tests := []struct {
		name    string
		method  string
		body    string
		status  int
		wantErr string
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed, "Method not allowed"},
		{"invalid body", http.MethodPost, "{", http.StatusBadRequest, "Invalid request body"},
		{"unknown site", http.MethodPost, `{"site":"amazon"}`, http.StatusBadRequest, "unknown site"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			server.Routes().ServeHTTP(rec, httptest.NewRequest(tt.method, "/sample", strings.NewReader(tt.body)))

			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Error, tt.wantErr)
		})
	}
}

func TestHandleSample_Preflight(t *testing.T) {
	server := newTestServer(nil)
	rec := httptest.NewRecorder()

	server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/sample", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandleSample_SessionFailure(t *testing.T) {
	var opened *types.SiteProfile
	server := newTestServer(func(ctx context.Context, profile *types.SiteProfile) (types.Page, error) {
		opened = profile
		return nil, errors.New("chrome not found")
	})
	rec := httptest.NewRecorder()

	server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sample", strings.NewReader(`{"site":"shopee"}`)))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decode(t, rec).Error, "chrome not found")
	require.NotNil(t, opened)
	assert.Equal(t, "shopee", opened.Name)
}

func TestHandleSample_Success(t *testing.T) {
	const listing = "https://www.mercadolivre.com.br/ofertas/arvores"
	source := pageSource{
		listing: `<html><body><ol>
  <li class="ui-search-layout__item"><a class="poly-component__title" href="/p/MLB1">Árvore de Natal 1.5m</a></li>
</ol></body></html>`,
		"https://www.mercadolivre.com.br/p/MLB1": `<html><body>
<h1 class="ui-pdp-title">Árvore de Natal 1.5m</h1>
<div class="ui-pdp-price__second-line">R$ 129,90</div>
</body></html>`,
	}
	server := newTestServer(func(ctx context.Context, profile *types.SiteProfile) (types.Page, error) {
		return utils.NewDocumentPage(source, logrus.New()), nil
	})
	dir := t.TempDir()
	server.config.OutputFile = filepath.Join(dir, "produtos.csv")
	server.config.ScreenshotDir = filepath.Join(dir, "screenshots")
	server.sink = storage.NewCSVLog(server.config.OutputFile)
	rec := httptest.NewRecorder()

	body := `{"site":"mercadolivre","url":"` + listing + `"}`
	server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sample", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Error)
	require.NotNil(t, resp.Data)
	assert.Equal(t, types.ExtractedProduct{
		Name:  "Árvore de Natal 1.5m",
		Price: "R$ 129,90",
		URL:   "https://www.mercadolivre.com.br/p/MLB1",
	}, *resp.Data)

	data, err := os.ReadFile(server.config.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, "Árvore de Natal 1.5m,\"R$ 129,90\",https://www.mercadolivre.com.br/p/MLB1\n", string(data))
}
