/*
2019 © Postgres.ai
*/

package querier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"gitlab.com/postgres-ai/database-lab/v2/pkg/log"

	"gitlab.com/postgres-ai/varfetch/pkg/config"
	"gitlab.com/postgres-ai/varfetch/pkg/flux"
	"gitlab.com/postgres-ai/varfetch/pkg/util/text"
)

const (
	queryPath      = "/api/v2/query"
	maxErrorLength = 500
)

var defaultAnnotations = []string{"datatype", "group", "default"}

// QueryRequest defines a body of a query request.
type QueryRequest struct {
	Query   string     `json:"query"`
	Extern  *flux.File `json:"extern,omitempty"`
	Dialect Dialect    `json:"dialect"`
}

// Dialect describes the format of a query response.
type Dialect struct {
	Annotations []string `json:"annotations"`
}

// HTTPExecutor runs variable queries via the HTTP query API.
type HTTPExecutor struct {
	url     *url.URL
	token   string
	timeout time.Duration
	client  *http.Client
}

// NewHTTPExecutor creates a new HTTP executor.
func NewHTTPExecutor(cfg config.Source) (*HTTPExecutor, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse a source URL")
	}

	u.Path = strings.TrimRight(u.Path, "/")

	return &HTTPExecutor{
		url:     u,
		token:   cfg.Token,
		timeout: cfg.Timeout,
		client: &http.Client{
			Transport: &http.Transport{},
		},
	}, nil
}

// Execute posts the query and returns the raw annotated CSV response.
func (e *HTTPExecutor) Execute(ctx context.Context, orgID, query string, extern *flux.File) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	reqData, err := json.Marshal(QueryRequest{
		Query:   query,
		Extern:  extern,
		Dialect: Dialect{Annotations: defaultAnnotations},
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal request")
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, e.buildURL(orgID), bytes.NewBuffer(reqData))
	if err != nil {
		return "", errors.Wrap(err, "failed to create a request")
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/csv")

	if e.token != "" {
		request.Header.Set("Authorization", "Token "+e.token)
	}

	response, err := e.client.Do(request)
	if err != nil {
		return "", errors.Wrap(err, "failed to make a request")
	}

	defer func() { _ = response.Body.Close() }()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response")
	}

	if response.StatusCode != http.StatusOK {
		message, _ := text.CutText(strings.TrimSpace(string(body)), maxErrorLength, "...")
		log.Dbg(fmt.Sprintf("Response: %v", message))

		return "", errors.Errorf("unsuccessful status given: %d: %s", response.StatusCode, message)
	}

	return string(body), nil
}

func (e *HTTPExecutor) buildURL(orgID string) string {
	u := *e.url
	u.Path += queryPath

	values := url.Values{}
	values.Set("orgID", orgID)
	u.RawQuery = values.Encode()

	return u.String()
}
