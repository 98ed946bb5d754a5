/*
2021 © Postgres.ai
*/

package app

import (
	"context"
	"html"
	"net/http"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"gitlab.com/postgres-ai/database-lab/v2/pkg/log"
	"gitlab.com/postgres-ai/database-lab/v2/pkg/srv/api"

	"gitlab.com/postgres-ai/varfetch/pkg/flux"
	"gitlab.com/postgres-ai/varfetch/pkg/models"
	"gitlab.com/postgres-ai/varfetch/pkg/services/resolver"
)

const (
	codeInvalidResponse = "INVALID_RESPONSE"
	codeUpstreamFailure = "UPSTREAM_FAILURE"
)

// healthCheck handles health-check requests.
func (a *App) healthCheck(w http.ResponseWriter, r *http.Request) {
	log.Msg("Health check received:", html.EscapeString(r.URL.Path))

	healthResponse := HealthResponse{
		Version:      a.Config.App.Version,
		Source:       a.Config.Source.Type,
		CacheEntries: a.resolver.CacheLen(),
	}

	writeJSON(w, http.StatusOK, healthResponse)
}

func (a *App) variableValues(w http.ResponseWriter, r *http.Request) {
	if r.Body == http.NoBody {
		api.SendBadRequestError(w, r, "request body cannot be empty")
		return
	}

	var valuesRequest models.ValuesRequest
	if err := api.ReadJSON(r, &valuesRequest); err != nil {
		api.SendBadRequestError(w, r, err.Error())
		return
	}

	if err := validateRequest(valuesRequest); err != nil {
		api.SendBadRequestError(w, r, err.Error())
		return
	}

	values, err := a.resolve(r.Context(), valuesRequest)
	if err != nil {
		sendResolveError(w, r, err)
		return
	}

	if strings.HasPrefix(r.Header.Get("Accept"), "text/plain") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		renderValues(w, values)

		return
	}

	writeJSON(w, http.StatusOK, values)
}

func (a *App) batchVariableValues(w http.ResponseWriter, r *http.Request) {
	if r.Body == http.NoBody {
		api.SendBadRequestError(w, r, "request body cannot be empty")
		return
	}

	var batchRequest models.BatchValuesRequest
	if err := api.ReadJSON(r, &batchRequest); err != nil {
		api.SendBadRequestError(w, r, err.Error())
		return
	}

	for _, valuesRequest := range batchRequest.Variables {
		if err := validateRequest(valuesRequest); err != nil {
			api.SendBadRequestError(w, r, err.Error())
			return
		}
	}

	results := make([]*models.VariableValues, len(batchRequest.Variables))
	group, ctx := errgroup.WithContext(r.Context())

	for i, valuesRequest := range batchRequest.Variables {
		i, valuesRequest := i, valuesRequest

		group.Go(func() error {
			values, err := a.resolve(ctx, valuesRequest)
			if err != nil {
				return err
			}

			results[i] = values

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		sendResolveError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.BatchValuesResponse{Variables: results})
}

// resolve waits for variable values and cancels the resolution when ctx is done first.
func (a *App) resolve(ctx context.Context, valuesRequest models.ValuesRequest) (*models.VariableValues, error) {
	request := a.resolver.Resolve(ctx, valuesRequest.ExecutionContext, valuesRequest.PrevSelection, valuesRequest.DefaultSelection)

	values, err := request.Wait(ctx)
	if err != nil {
		request.Cancel()
		return nil, err
	}

	return values, nil
}

func validateRequest(valuesRequest models.ValuesRequest) error {
	if valuesRequest.Query == "" {
		return errors.New("query must not be empty")
	}

	if valuesRequest.OrganizationID == "" {
		return errors.New("orgID must not be empty")
	}

	return nil
}

func sendResolveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		log.Dbg("Request canceled by client:", html.EscapeString(r.URL.Path))

	case errors.Is(err, flux.ErrInvalidVariable):
		api.SendBadRequestError(w, r, err.Error())

	case errors.Is(err, resolver.ErrEmptyResponse), errors.Is(err, resolver.ErrMissingValueColumn):
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{Code: codeInvalidResponse, Message: err.Error()})

	default:
		log.Err("failed to resolve variable values: ", err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Code: codeUpstreamFailure, Message: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	if err := api.WriteJSON(w, status, v); err != nil {
		log.Err(err)
	}
}

// renderValues renders variable values in the psql style.
func renderValues(w http.ResponseWriter, values *models.VariableValues) {
	table := tablewriter.NewWriter(w)
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"value", "selected"})

	for _, value := range values.Values {
		selected := ""
		if values.SelectedValue != nil && *values.SelectedValue == value {
			selected = "*"
		}

		table.Append([]string{value, selected})
	}

	table.Render()
}
