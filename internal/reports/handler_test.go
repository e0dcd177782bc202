package reports

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"greenmines/emissions-portal/emissions-portal-backend/internal/balance"
	"greenmines/emissions-portal/emissions-portal-backend/internal/emissions"
	"greenmines/emissions-portal/emissions-portal-backend/internal/sinks"
)

func setupRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(svc, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func doRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlerSummary(t *testing.T) {
	records := new(MockRecordSource)
	sinkSource := new(MockSinkSource)
	svc := newTestService(records, sinkSource)
	defer svc.Close()

	records.On("FetchEmissions", mock.Anything, mock.Anything).Return(referenceBundle(), nil)
	sinkSource.On("FetchSinks", mock.Anything, mock.Anything, sinks.KindExisting).Return(existingSinks(), nil)
	sinkSource.On("FetchSinks", mock.Anything, mock.Anything, sinks.KindPlanned).Return([]sinks.Sink{}, nil)

	router := setupRouter(svc)

	w := doRequest(router, http.MethodGet, "/api/v1/emissions/summary?range=week", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report CarbonReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.InDelta(t, 7.0, report.Balance.TotalEmissions, 1e-9)
	assert.InDelta(t, 5.63, report.Balance.Gap, 0.001)
	assert.InDelta(t, 2.0, report.Emissions.PerCategoryTotals[emissions.Electricity], 1e-9)

	w = doRequest(router, http.MethodGet, "/api/v1/emissions/summary?range=fortnight", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestHandlerSourceFailure(t *testing.T) {
	records := new(MockRecordSource)
	svc := newTestService(records, new(MockSinkSource))
	defer svc.Close()

	records.On("FetchEmissions", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	w := doRequest(setupRouter(svc), http.MethodGet, "/api/v1/emissions/series?range=year", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHandlerAggregate(t *testing.T) {
	svc := newTestService(nil, nil)
	defer svc.Close()
	router := setupRouter(svc)

	body := map[string]any{
		"records": map[string]any{
			"shipping": []map[string]any{
				{"result": map[string]any{"carbonEmissions": map[string]any{"metricTonnes": 1.5, "kilograms": 1500}}, "createdAt": "2026-10-03"},
				{"co2Emissions": "500 kg", "createdAt": "2026-10-12"},
			},
			"coalBurn": []map[string]any{{"co2Emissions": -40, "createdAt": "2026-10-05"}},
		},
		"bucketing": "weekOfMonth",
		"anchor":    "2026-10-01",
	}

	w := doRequest(router, http.MethodPost, "/api/v1/emissions/aggregate", body)
	require.Equal(t, http.StatusOK, w.Code)

	var res emissions.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.InDelta(t, 2.0, res.GrandTotal, 1e-9)
	assert.Equal(t, 3, res.RecordCount)
	assert.Equal(t, []string{"Week 1", "Week 2", "Week 3", "Week 4"}, res.BucketLabels)
	assert.InDelta(t, 1.5, res.PerBucketTotals["Week 1"][emissions.Shipping], 1e-9)
	assert.InDelta(t, 0.5, res.PerBucketTotals["Week 2"][emissions.Shipping], 1e-9)
	assert.Zero(t, res.PerBucketTotals["Week 1"][emissions.CoalBurn])

	w = doRequest(router, http.MethodPost, "/api/v1/emissions/aggregate", map[string]any{
		"records":   map[string]any{},
		"bucketing": "fortnightly",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerBalance(t *testing.T) {
	svc := newTestService(nil, nil)
	defer svc.Close()

	w := doRequest(setupRouter(svc), http.MethodPost, "/api/v1/balance", BalanceRequest{
		TotalEmissions:           7,
		TotalAbsorption:          500.0 / 365,
		AverageSequestrationRate: 5,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var b balance.CarbonBalance
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.InDelta(t, 411.0, b.AdditionalSinkAreaNeeded, 0.1)
	assert.False(t, b.Neutral)
}

func TestHandlerAbsorption(t *testing.T) {
	svc := newTestService(nil, nil)
	defer svc.Close()

	w := doRequest(setupRouter(svc), http.MethodPost, "/api/v1/sinks/absorption", map[string]any{
		"sinks": []map[string]any{
			{"carbonSequestrationRate": 5, "areaCovered": 100},
			{"vegetationType": "mangrove", "areaCovered": 365},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp AbsorptionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.PerSink, 2)
	assert.InDelta(t, 1.3699, resp.PerSink[0], 1e-4)
	assert.InDelta(t, 14.0, resp.PerSink[1], 1e-9)
	assert.InDelta(t, 465.0, resp.TotalArea, 1e-9)
	assert.InDelta(t, 500.0, resp.Sequestration[0], 1e-9)
}

func TestHandlerAbsorptionLenientFields(t *testing.T) {
	svc := newTestService(nil, nil)
	defer svc.Close()

	w := doRequest(setupRouter(svc), http.MethodPost, "/api/v1/sinks/absorption", map[string]any{
		"sinks": []map[string]any{
			{"carbonSequestrationRate": 5, "areaCovered": 100},
			{"carbonSequestrationRate": "5", "areaCovered": "n/a"},
		},
		"years": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp AbsorptionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.PerSink, 2)
	assert.InDelta(t, 1.3699, resp.PerSink[0], 1e-4)
	assert.Equal(t, 0.0, resp.PerSink[1])
	assert.InDelta(t, 1000.0, resp.Sequestration[0], 1e-9)
	assert.Equal(t, 0.0, resp.Sequestration[1])
	assert.InDelta(t, 100.0, resp.TotalArea, 1e-9)
}

func TestHandlerRequiredLand(t *testing.T) {
	svc := newTestService(nil, nil)
	defer svc.Close()
	router := setupRouter(svc)

	w := doRequest(router, http.MethodPost, "/api/v1/sinks/required-land", sinks.LandRequest{
		TargetCarbonSequestration: 100,
		LandType:                  "mangrove",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var res sinks.LandResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 8.0, res.RequiredLand)

	w = doRequest(router, http.MethodPost, "/api/v1/sinks/required-land", sinks.LandRequest{
		TargetCarbonSequestration: 100,
		LandType:                  "tundra",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerExport(t *testing.T) {
	records := new(MockRecordSource)
	sinkSource := new(MockSinkSource)
	svc := newTestService(records, sinkSource)
	defer svc.Close()

	records.On("FetchEmissions", mock.Anything, mock.Anything).Return(referenceBundle(), nil)
	sinkSource.On("FetchSinks", mock.Anything, mock.Anything, mock.Anything).Return(existingSinks(), nil)

	router := setupRouter(svc)

	w := doRequest(router, http.MethodGet, "/api/v1/reports/export?format=csv&start=2026-10-01&end=2026-10-14", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "carbon-report_2026-10-01_2026-10-14.csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Equal(t, "Section,Label,Category,Value,Unit", lines[0])
	assert.Contains(t, w.Body.String(), "Emissions,Total,,7,t CO2e")

	w = doRequest(router, http.MethodGet, "/api/v1/reports/export?format=pdf&range=week", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))

	w = doRequest(router, http.MethodGet, "/api/v1/reports/export?format=docx", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadGateway, StatusFor(ErrSourceUnavailable))
	assert.Equal(t, http.StatusBadRequest, StatusFor(sinks.ErrInvalidTarget))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}

func TestHandlerInvalidateCache(t *testing.T) {
	svc := newTestService(nil, nil)
	defer svc.Close()
	router := setupRouter(svc)

	svc.cache.Set(CacheSummary+"_a", 1)
	svc.cache.Set(CacheSeries+"_a", 2)

	w := doRequest(router, http.MethodDelete, "/api/v1/reports/cache?kind=summary", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, svc.cache.Size())

	w = doRequest(router, http.MethodDelete, "/api/v1/reports/cache?kind=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodDelete, "/api/v1/reports/cache", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, svc.cache.Size())
}
