package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/postgres-ai/varfetch/pkg/config"
	"gitlab.com/postgres-ai/varfetch/pkg/flux"
	"gitlab.com/postgres-ai/varfetch/pkg/models"
	"gitlab.com/postgres-ai/varfetch/pkg/services/resolver"
	"gitlab.com/postgres-ai/varfetch/pkg/services/storage"
)

type queryExecutor map[string]string

func (e queryExecutor) Execute(_ context.Context, _, query string, _ *flux.File) (string, error) {
	response, ok := e[query]
	if !ok {
		return "", errors.New("unknown query")
	}

	return response, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *App) {
	t.Helper()

	executor := queryExecutor{
		"hosts":   "#datatype,string,long,string\n,result,table,_value\n,_result,0,h2\n,_result,0,h1\n",
		"buckets": "#datatype,string,long,string\n,result,table,_value\n,_result,0,telegraf\n",
		"broken":  "#datatype,string,long,string\n,result,table,host\n,_result,0,h1\n",
	}

	cfg := &config.Config{
		App:    config.App{Version: "v0.1.0"},
		Source: config.Source{Type: config.SourceHTTP},
	}

	a := NewApp(cfg, resolver.NewResolver(executor, resolver.Options{Coalesce: true}), nil)
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	return srv, a
}

func post(t *testing.T, url string, body interface{}, accept string) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	require.NoError(t, err)

	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	return resp
}

func valuesRequest(query string) models.ValuesRequest {
	return models.ValuesRequest{
		ExecutionContext: models.ExecutionContext{
			DataSourceURL:  "http://localhost:8086",
			OrganizationID: "org1",
			Query:          query,
		},
	}
}

func TestVariableValues(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("it returns sorted values", func(t *testing.T) {
		request := valuesRequest("hosts")
		request.DefaultSelection = &[]string{"h2"}[0]

		resp := post(t, srv.URL+"/variable-values", request, "")
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var values models.VariableValues
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&values))

		assert.Equal(t, []string{"h1", "h2"}, values.Values)
		assert.Equal(t, models.ColumnString, values.ValueType)
		require.NotNil(t, values.SelectedValue)
		assert.Equal(t, "h2", *values.SelectedValue)
	})

	t.Run("it renders values as text", func(t *testing.T) {
		resp := post(t, srv.URL+"/variable-values", valuesRequest("hosts"), "text/plain")
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Contains(t, string(body), "h1")
		assert.Contains(t, string(body), "*")
	})

	t.Run("it rejects invalid requests", func(t *testing.T) {
		resp := post(t, srv.URL+"/variable-values", models.ValuesRequest{}, "")
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		emptyResp, err := http.Post(srv.URL+"/variable-values", "application/json", http.NoBody)
		require.NoError(t, err)
		defer func() { _ = emptyResp.Body.Close() }()

		assert.Equal(t, http.StatusBadRequest, emptyResp.StatusCode)
	})

	t.Run("it rejects malformed variables", func(t *testing.T) {
		request := valuesRequest("hosts")
		request.Variables = []models.VariableAssignment{
			{Name: "limit", Init: models.Expression{Type: models.IntegerLiteral, Value: "many"}},
		}

		resp := post(t, srv.URL+"/variable-values", request, "")
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Contains(t, string(body), "BAD_REQUEST")
		assert.Contains(t, string(body), `invalid variable \"limit\"`)
	})

	t.Run("it reports invalid responses", func(t *testing.T) {
		resp := post(t, srv.URL+"/variable-values", valuesRequest("broken"), "")
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var errResp models.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
		assert.Equal(t, codeInvalidResponse, errResp.Code)
	})

	t.Run("it reports upstream failures", func(t *testing.T) {
		resp := post(t, srv.URL+"/variable-values", valuesRequest("unknown"), "")
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

		var errResp models.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
		assert.Equal(t, codeUpstreamFailure, errResp.Code)
		assert.Equal(t, "unknown query", errResp.Message)
	})
}

func TestBatchVariableValues(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("it resolves all variables in order", func(t *testing.T) {
		batch := models.BatchValuesRequest{
			Variables: []models.ValuesRequest{valuesRequest("hosts"), valuesRequest("buckets")},
		}

		resp := post(t, srv.URL+"/variable-values/batch", batch, "")
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var batchResp models.BatchValuesResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&batchResp))

		require.Len(t, batchResp.Variables, 2)
		assert.Equal(t, []string{"h1", "h2"}, batchResp.Variables[0].Values)
		assert.Equal(t, []string{"telegraf"}, batchResp.Variables[1].Values)
	})

	t.Run("it fails when any variable fails", func(t *testing.T) {
		batch := models.BatchValuesRequest{
			Variables: []models.ValuesRequest{valuesRequest("hosts"), valuesRequest("broken")},
		}

		resp := post(t, srv.URL+"/variable-values/batch", batch, "")
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := post(t, srv.URL+"/variable-values", valuesRequest("hosts"), "")
	_ = resp.Body.Close()

	healthResp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer func() { _ = healthResp.Body.Close() }()

	require.Equal(t, http.StatusOK, healthResp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(healthResp.Body).Decode(&health))

	assert.Equal(t, "v0.1.0", health.Version)
	assert.Equal(t, config.SourceHTTP, health.Source)
	assert.Equal(t, 1, health.CacheEntries)
}

func TestShutdownSavesCache(t *testing.T) {
	executor := queryExecutor{"hosts": "#datatype,string\n,_value\n,h1\n"}
	valueResolver := resolver.NewResolver(executor, resolver.Options{})
	path := filepath.Join(t.TempDir(), "cache.json")

	a := NewApp(&config.Config{}, valueResolver, storage.NewJSONCacheStorage(path, valueResolver))

	_, err := valueResolver.Resolve(context.Background(), valuesRequest("hosts").ExecutionContext, nil, nil).
		Wait(context.Background())
	require.NoError(t, err)

	require.NoError(t, a.Shutdown(context.Background()))

	restored := resolver.NewResolver(executor, resolver.Options{})
	require.NoError(t, storage.NewJSONCacheStorage(path, restored).Load())
	assert.Equal(t, 1, restored.CacheLen())
}
