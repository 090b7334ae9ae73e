package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-trade-clearinghouse/internal/ingestion/dto"
	"golang-trade-clearinghouse/pkg/logger"
)

func nopLogger() *logger.Logger {
	return logger.NewNop()
}

type stubReportService struct {
	gotDate time.Time
	err     error
}

func (s *stubReportService) Blotter(_ context.Context, date time.Time) ([]dto.BlotterItem, error) {
	s.gotDate = date
	return []dto.BlotterItem{{ID: 1, Ticker: "AAPL", Account: "ACC001", Quantity: 100, Price: 185.5, TotalValue: 18550}}, s.err
}

func (s *stubReportService) Positions(_ context.Context, date time.Time) (dto.PositionsResponse, error) {
	s.gotDate = date
	return dto.PositionsResponse{"ACC001": {"AAPL": "100.0%"}}, s.err
}

func (s *stubReportService) Alarms(_ context.Context, date time.Time) ([]dto.AlarmItem, error) {
	s.gotDate = date
	return []dto.AlarmItem{}, s.err
}

type stubHealthService struct {
	ok bool
}

func (s stubHealthService) Check(context.Context) (dto.HealthResponse, bool) {
	if !s.ok {
		return dto.HealthResponse{Status: "ERROR", Error: "connection refused"}, false
	}
	return dto.HealthResponse{Status: "OK", Database: "connected", Service: "clearinghouse-api"}, true
}

func newServer(reports *stubReportService, health stubHealthService) *echo.Echo {
	e := echo.New()
	root := e.Group("")
	NewReportHandler(reports, nopLogger()).RegisterRoutes(root)
	NewHealthHandler(health).RegisterRoutes(root)
	return e
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestReportRoutesValidateDate(t *testing.T) {
	e := newServer(&stubReportService{}, stubHealthService{ok: true})

	for _, route := range []string{"/blotter", "/positions", "/alarms"} {
		t.Run(route, func(t *testing.T) {
			rec := get(e, route)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"Missing required parameter: date"}`, rec.Body.String())

			rec = get(e, route+"?date=01-15-2025")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"Invalid date format. Use YYYY-MM-DD"}`, rec.Body.String())
		})
	}
}

func TestGetBlotter(t *testing.T) {
	reports := &stubReportService{}
	e := newServer(reports, stubHealthService{ok: true})

	rec := get(e, "/blotter?date=2025-01-15")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), reports.gotDate)
	var items []dto.BlotterItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, 18550.0, items[0].TotalValue)
}

func TestGetPositionsAndAlarms(t *testing.T) {
	e := newServer(&stubReportService{}, stubHealthService{ok: true})

	rec := get(e, "/positions?date=2025-01-15")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ACC001":{"AAPL":"100.0%"}}`, rec.Body.String())

	rec = get(e, "/alarms?date=2025-01-15")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestReportServiceError(t *testing.T) {
	reports := &stubReportService{err: errors.New("db down")}
	e := echo.New()
	NewReportHandler(reports, nopLogger()).RegisterRoutes(e.Group(""))

	rec := get(e, "/alarms?date=2025-01-15")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"db down"}`, rec.Body.String())
}

func TestGetHealth(t *testing.T) {
	rec := get(newServer(&stubReportService{}, stubHealthService{ok: true}), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK","database":"connected","service":"clearinghouse-api"}`, rec.Body.String())

	rec = get(newServer(&stubReportService{}, stubHealthService{ok: false}), "/health")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":"ERROR","error":"connection refused"}`, rec.Body.String())
}
