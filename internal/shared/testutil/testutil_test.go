package testutil

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldreport/pkg/contracts/domain"
)

func TestBufferedSlogHandler(t *testing.T) {
	logger, handler := NewTestLogger(nil)

	logger.With(slog.String("component", "test")).Info("report built", slog.Int("rows", 3))
	logger.Error("fetch failed")

	records := handler.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "test", records[0].Attrs["component"])
	assert.EqualValues(t, 3, records[0].Attrs["rows"])

	_, ok := handler.Find("built")
	assert.True(t, ok)
	assert.Len(t, handler.RecordsAt(slog.LevelError), 1)
	AssertLogged(t, handler, slog.LevelInfo, "report built")
}

func TestBackend(t *testing.T) {
	backend := NewBackend(t, PriceRecords(), nil)

	resp, err := http.Get(backend.BaseURL() + "Rapporting/GetRapport?date=2024-03-05")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []domain.PriceObservation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	assert.Equal(t, PriceRecords(), records)
	require.Len(t, backend.Queries(), 1)
	assert.Equal(t, "2024-03-05", backend.Queries()[0].Get("date"))

	backend.FailWith(http.StatusServiceUnavailable)
	resp, err = http.Get(backend.BaseURL() + "Rapporting/GetRapportQte")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
