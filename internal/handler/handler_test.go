package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorales-gt/crediventa/internal/apperr"
)

func testHandler() *Handler {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return &Handler{log: log}
}

func TestRespondErrorStatusMapping(t *testing.T) {
	h := testHandler()
	cases := []struct {
		err    error
		status int
	}{
		{apperr.Validationf("bad"), http.StatusBadRequest},
		{apperr.NotFoundf("missing"), http.StatusNotFound},
		{apperr.Conflictf("decided"), http.StatusConflict},
		{apperr.Authf("no"), http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.respondError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	h := testHandler()
	rec := httptest.NewRecorder()
	h.respondError(rec, errors.New("pq: connection reset"))
	assert.NotContains(t, rec.Body.String(), "pq:")
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestPathID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/credits/42", nil)
	r = mux.SetURLVars(r, map[string]string{"id": "42"})
	id, err := pathID(r)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	r = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/credits/x", nil),
		map[string]string{"id": "x"})
	_, err = pathID(r)
	assert.True(t, apperr.Is(err, apperr.Validation))

	r = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/credits/-1", nil),
		map[string]string{"id": "-1"})
	_, err = pathID(r)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestQueryParamHelpers(t *testing.T) {
	assert.Nil(t, int64Param(""))
	assert.Nil(t, int64Param("abc"))
	require.NotNil(t, int64Param("7"))
	assert.Equal(t, int64(7), *int64Param("7"))

	assert.Nil(t, dateParam(""))
	assert.Nil(t, dateParam("not-a-date"))
	require.NotNil(t, dateParam("2024-06-15"))
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), *dateParam("2024-06-15"))

	assert.Equal(t, 0, intParam(""))
	assert.Equal(t, 3, intParam("3"))
}
