package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyiv-estate/rentscout/internal/filter"
	"github.com/kyiv-estate/rentscout/internal/pipeline"
)

type fakeAPI struct {
	token   string
	params  filter.Params
	pages   map[int]pipeline.PageView
	caption string
}

func (f *fakeAPI) Search(_ context.Context, params filter.Params) (string, int, error) {
	f.params = params
	return f.token, len(f.pages[0].Cards), nil
}

func (f *fakeAPI) Page(_ context.Context, token string, n int) (pipeline.PageView, error) {
	if token != f.token {
		return pipeline.PageView{}, pipeline.ErrNoSession
	}
	view, ok := f.pages[n]
	if !ok {
		return pipeline.PageView{}, pipeline.ErrPageOutOfRange
	}
	return view, nil
}

func (f *fakeAPI) Calculator(_ context.Context, token, cardID string, _ int, _ time.Time) (string, error) {
	if token != f.token || cardID != "card-1" {
		return "", pipeline.ErrNoCard
	}
	return f.caption, nil
}

func newTestServer(t *testing.T, api searchAPI, collageDir string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newRouter(api, collageDir))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouterHealth(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeAPI{}, t.TempDir())
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouterSearchReturnsFirstPage(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		token: "tok-1",
		pages: map[int]pipeline.PageView{0: {
			TotalPages: 1, TotalOffers: 1,
			Cards: []pipeline.Card{{ID: "card-1", GroupSlug: "парус", Caption: "<b>Парус</b>", HasPhoto: true}},
		}},
	}
	srv := newTestServer(t, api, t.TempDir())

	body := `{"kind":"office","min_size":50,"max_size":200}`
	resp, err := http.Post(srv.URL+"/api/search", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Token string            `json:"token"`
		Total int               `json:"total"`
		Page  pipeline.PageView `json:"page"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "tok-1", got.Token)
	require.Len(t, got.Page.Cards, 1)
	assert.Equal(t, "парус", got.Page.Cards[0].GroupSlug)

	assert.InDelta(t, 50, api.params.MinSize, 0.001)
	require.NotNil(t, api.params.MaxSize)
	assert.InDelta(t, 200, *api.params.MaxSize, 0.001)
}

func TestRouterSearchRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeAPI{}, t.TempDir())
	resp, err := http.Post(srv.URL+"/api/search", "application/json", strings.NewReader(`{"kind":"garage"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouterPageErrors(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{token: "tok-1", pages: map[int]pipeline.PageView{0: {}}}
	srv := newTestServer(t, api, t.TempDir())

	resp, err := http.Get(srv.URL + "/api/sessions/other/pages/0")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/sessions/tok-1/pages/9")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/sessions/tok-1/pages/abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouterCalculator(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{token: "tok-1", caption: "каптон\n\n📊 Розрахунок:"}
	srv := newTestServer(t, api, t.TempDir())

	resp, err := http.Post(srv.URL+"/api/cards/tok-1/card-1/calculator",
		"application/json", strings.NewReader(`{"posting_id":12}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Contains(t, got["caption"], "Розрахунок")

	missing, err := http.Post(srv.URL+"/api/cards/tok-1/card-9/calculator",
		"application/json", strings.NewReader(`{"posting_id":12}`))
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestRouterServesCollage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "парус.jpg"), []byte("jpeg-bytes"), 0o644))
	srv := newTestServer(t, &fakeAPI{}, dir)

	resp, err := http.Get(srv.URL + "/api/collages/парус.jpg")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), body)

	missing, err := http.Get(srv.URL + "/api/collages/немає.jpg")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}
