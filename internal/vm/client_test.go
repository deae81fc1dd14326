package vm

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtm0/solargrid/internal/observability"
	"github.com/rtm0/solargrid/internal/solar"
)

var testRecs = []solar.Record{
	{Timestamp: 1546300800000, Latitude: -90, Longitude: -180, Irradiance: 0, Luminance: 0},
	{Timestamp: 1546300800000, Latitude: 12.5, Longitude: 0.5, Irradiance: 680.5, Luminance: 63286.5},
}

func TestRecToInfluxDB(t *testing.T) {
	var sb strings.Builder
	recToInfluxDB(&sb, &testRecs[1], "solar")
	assert.Equal(t, "solar,la=12.50,lo=0.50 irr=680.500,lum=63286.5 1546300800000000000", sb.String())
}

func TestRecToCSV(t *testing.T) {
	var sb strings.Builder
	recToCSV(&sb, &testRecs[0], "solar")
	assert.Equal(t, "1546300800000,-90.00,-180.00,0.000,0.0", sb.String())
}

func TestNewClient_Validation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewClient(logger, "http://localhost:8428/write", 1, "bad-prefix", nil)
	assert.Error(t, err)

	_, err = NewClient(logger, "http://localhost:8428/api/v1/import", 1, "solar", nil)
	assert.Error(t, err)

	c, err := NewClient(logger, "http://localhost:8428/api/v1/import/csv", 1, "solar", nil)
	require.NoError(t, err)
	assert.Contains(t, c.insertURL, "format=")
	assert.Contains(t, c.insertURL, "solar_irr")
}

func TestInsert(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	m := observability.NewMetricsForTesting()
	c, err := NewClient(slog.New(slog.NewTextHandler(io.Discard, nil)), srv.URL+"/write", 2, "solar", m)
	require.NoError(t, err)

	require.NoError(t, c.Insert(context.Background(), testRecs))
	lines := strings.Split(strings.TrimSpace(body), "\n")
	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "solar,la=-90.00,lo=-180.00 "))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordsExported))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InsertErrors))
}

func TestInsert_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	}))
	defer srv.Close()

	m := observability.NewMetricsForTesting()
	c, err := NewClient(slog.New(slog.NewTextHandler(io.Discard, nil)), srv.URL+"/write", 1, "solar", m)
	require.NoError(t, err)

	err = c.Insert(context.Background(), testRecs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InsertErrors))
}
