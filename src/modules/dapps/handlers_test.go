package dapps

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamatcyber90/crypti/src/core/database"
	"github.com/mamatcyber90/crypti/src/core/storage"
	"github.com/mamatcyber90/crypti/src/modules/fetch"
	"github.com/mamatcyber90/crypti/src/modules/tags"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	exec := storage.NewExecutor(db)
	index := tags.NewIndex(exec)
	registry := NewRegistry(exec, index)
	pipeline := fetch.NewPipeline(fetch.NewZipDownloader(), t.TempDir(), "master")
	handler := NewHandler(registry, pipeline)

	app := fiber.New()
	group := app.Group("/api/dapps")
	group.Get("/search", handler.SearchDapps)
	group.Get("/tags/:tag", handler.ListByTag)
	group.Get("/tags", handler.Tags)
	group.Get("/", handler.ListDapps)
	group.Post("/", handler.CreateDapp)
	group.Get("/:id", handler.GetDapp)
	group.Get("/:id/fetch", handler.FetchDapp)
	group.Delete("/:id", handler.RemoveDapp)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func TestCreateAndGetDapp(t *testing.T) {
	app := newTestApp(t)

	resp, env := doJSON(t, app, http.MethodPost, "/api/dapps/", CreateInput{
		Name: "chess",
		URL:  "https://github.com/acme/chess",
		Tags: []string{"Board Game", "strategy"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", env.Status)

	var created struct {
		ID   int64    `json:"id"`
		Tags []string `json:"tags"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Positive(t, created.ID)
	assert.ElementsMatch(t, []string{"board-game", "strategy"}, created.Tags)

	resp, env = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/dapps/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", env.Status)
}

func TestCreateDappValidation(t *testing.T) {
	app := newTestApp(t)

	cases := []struct {
		name  string
		input CreateInput
	}{
		{"name too long", CreateInput{Name: "seventeen-chars-x", URL: "https://github.com/acme/chess"}},
		{"missing url", CreateInput{Name: "chess"}},
		{"url not github", CreateInput{Name: "chess", URL: "https://gitlab.com/acme/chess"}},
		{"too many tags", CreateInput{
			Name: "chess",
			URL:  "https://github.com/acme/chess",
			Tags: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, env := doJSON(t, app, http.MethodPost, "/api/dapps/", tc.input)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "error", env.Status)
		})
	}
}

func TestGetDappNotFound(t *testing.T) {
	app := newTestApp(t)

	resp, env := doJSON(t, app, http.MethodGet, "/api/dapps/99", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "error", env.Status)
}

func TestListDappsPaging(t *testing.T) {
	app := newTestApp(t)

	for _, name := range []string{"alpha", "beta", "gamma"} {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/dapps/", CreateInput{
			Name: name,
			URL:  "https://github.com/acme/" + name,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, env := doJSON(t, app, http.MethodGet, "/api/dapps/?size=2&page=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page, 1)
	assert.Equal(t, "gamma", page[0].Name)
}

func TestListDappsRejectsUnsafeOrder(t *testing.T) {
	app := newTestApp(t)

	resp, env := doJSON(t, app, http.MethodGet, "/api/dapps/?order=name;drop", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "error", env.Status)
}

func TestSearchFallsBackToListing(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/dapps/", CreateInput{
		Name: "chess",
		URL:  "https://github.com/acme/chess",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env := doJSON(t, app, http.MethodGet, "/api/dapps/search", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)
}

func TestTagsRoutes(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/dapps/", CreateInput{
		Name: "chess",
		URL:  "https://github.com/acme/chess",
		Tags: []string{"Board Game", "strategy"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Single tag lookup, normalized from the path parameter.
	resp, env := doJSON(t, app, http.MethodGet, "/api/dapps/tags/strategy", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	// Multi-tag lookup.
	resp, env = doJSON(t, app, http.MethodGet, "/api/dapps/tags?tags=board-game,strategy", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	// No tags parameter reports usage counts.
	resp, env = doJSON(t, app, http.MethodGet, "/api/dapps/tags", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var usage []struct {
		Tag   string `json:"tag"`
		Count int64  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &usage))
	assert.Len(t, usage, 2)
}

func TestRemoveDapp(t *testing.T) {
	app := newTestApp(t)

	_, env := doJSON(t, app, http.MethodPost, "/api/dapps/", CreateInput{
		Name: "chess",
		URL:  "https://github.com/acme/chess",
	})
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	resp, _ := doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/dapps/%d", created.ID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/dapps/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
