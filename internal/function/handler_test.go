package function

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/rss-opinion/internal/domain"
)

func TestHandlerFinished(t *testing.T) {
	rep := domain.InvocationReport{Sources: []domain.SourceReport{
		{Source: "El ABC", Outcome: domain.OutcomeNewEntries, NewEntries: 2},
		{Source: "El Pais", Outcome: domain.OutcomeFetchFailed},
		{Source: "El Mundo", Outcome: domain.OutcomeNoChanges},
	}}
	h := NewHandler(func(context.Context) (domain.InvocationReport, error) { return rep, nil }, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"ignored":true}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "FUNCTION FINISHED", body["status"])
	assert.EqualValues(t, 3, body["processed"])
	assert.EqualValues(t, 1, body["failed"])
	assert.EqualValues(t, 2, body["new_entries"])
}

func TestHandlerFatal(t *testing.T) {
	h := NewHandler(func(context.Context) (domain.InvocationReport, error) {
		return domain.InvocationReport{}, fmt.Errorf("%w: sources file missing", domain.ErrConfiguration)
	}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "FUNCTION FAILED", body["status"])
	assert.Contains(t, body["error"], "sources file missing")
}
