package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "json")
	logger.Debug("hello", "day", "2019-01-01")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "2019-01-01", line["day"])
}

func TestNewLogger_TextFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "text")
	logger.Info("quiet")
	logger.Warn("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "msg=loud")
}

func TestMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()
	m.DaysWritten.Inc()
	m.DaysWritten.Inc()
	m.WorkersActive.Set(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DaysWritten))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.WorkersActive))
}
