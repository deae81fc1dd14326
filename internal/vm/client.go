package vm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rtm0/solargrid/internal/observability"
	"github.com/rtm0/solargrid/internal/solar"
)

// Client is a Victoria Metrics client capable of inserting solar grid
// records via various protocols.
type Client struct {
	logger       *slog.Logger
	metrics      *observability.Metrics
	httpCli      *http.Client
	insertURL    string
	metricPrefix string
	recToText    recToTextFunc
}

const metricPrefixRE = "^[a-zA-Z0-9]+$"

// NewClient creates a new VM client. metrics may be nil.
func NewClient(logger *slog.Logger, insertURL string, maxConns int, metricPrefix string, metrics *observability.Metrics) (*Client, error) {
	url, err := url.Parse(insertURL)
	if err != nil {
		return nil, err
	}

	matches, err := regexp.MatchString(metricPrefixRE, metricPrefix)
	if err != nil {
		return nil, err
	}
	if !matches {
		return nil, fmt.Errorf("metric prefix %q does not match %q regular expression", metricPrefix, metricPrefixRE)
	}

	apiParams := apiParamsFuncs[url.Path]
	recToText := recToTextFuncs[url.Path]
	if apiParams == nil || recToText == nil {
		return nil, fmt.Errorf("inserting into %q is not supported", insertURL)
	}
	q := url.Query()
	for name, value := range apiParams(metricPrefix) {
		q.Add(name, value)
	}
	url.RawQuery = q.Encode()

	return &Client{
		logger:  logger,
		metrics: metrics,
		httpCli: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        maxConns,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: maxConns,
				MaxConnsPerHost:     maxConns,
			},
		},
		insertURL:    url.String(),
		metricPrefix: metricPrefix,
		recToText:    recToText,
	}, nil
}

// Insert inserts solar grid records into Victoria Metrics.
func (c *Client) Insert(ctx context.Context, recs []solar.Record) error {
	err := c.insert(ctx, recs)
	if c.metrics != nil {
		if err != nil {
			c.metrics.InsertErrors.Inc()
		} else {
			c.metrics.RecordsExported.Add(float64(len(recs)))
		}
	}
	return err
}

func (c *Client) insert(ctx context.Context, recs []solar.Record) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.insertURL, recsToText(recs, c.metricPrefix, c.recToText))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	res, err := c.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("could not post data: %w", err)
	}
	defer res.Body.Close()
	if _, err := io.Copy(io.Discard, res.Body); err != nil {
		c.logger.Warn("Failed to drain response body", "err", err)
	}
	if res.StatusCode != http.StatusNoContent && res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	return nil
}

type apiParamsFunc func(string) map[string]string

var apiParamsFuncs = map[string]apiParamsFunc{
	"/influx/write":        influxDBAPIParams,
	"/influx/api/v2/write": influxDBAPIParams,
	"/write":               influxDBAPIParams,
	"/api/v2/write":        influxDBAPIParams,
	"/api/v1/import/csv":   csvAPIParams,
}

func influxDBAPIParams(metricPrefix string) map[string]string {
	return nil
}

func csvAPIParams(metricPrefix string) map[string]string {
	return map[string]string{
		"format": fmt.Sprintf(""+
			"1:time:unix_ms,"+
			"2:label:la,"+
			"3:label:lo,"+
			"4:metric:%[1]s_irr,"+
			"5:metric:%[1]s_lum", metricPrefix),
	}
}

type recToTextFunc func(*strings.Builder, *solar.Record, string)

// recsToText converts multiple records to text.
func recsToText(recs []solar.Record, metricPrefix string, recToText recToTextFunc) io.Reader {
	var sb strings.Builder
	for _, r := range recs {
		recToText(&sb, &r, metricPrefix)
		sb.WriteString("\n")
	}
	return strings.NewReader(sb.String())
}

var recToTextFuncs = map[string]recToTextFunc{
	"/influx/write":        recToInfluxDB,
	"/influx/api/v2/write": recToInfluxDB,
	"/write":               recToInfluxDB,
	"/api/v2/write":        recToInfluxDB,
	"/api/v1/import/csv":   recToCSV,
}

var influxDBFmt = "%s,la=%.2f,lo=%.2f irr=%.3f,lum=%.1f %d"

// recToInfluxDB converts a record into InfluxDB line protocol and appends it
// to the string builder. Line protocol timestamps are nanoseconds.
func recToInfluxDB(sb *strings.Builder, r *solar.Record, metricPrefix string) {
	fmt.Fprintf(sb, influxDBFmt,
		metricPrefix,
		r.Latitude,
		r.Longitude,
		r.Irradiance,
		r.Luminance,
		r.Timestamp*int64(time.Millisecond),
	)
}

var csvFmt = "%d,%.2f,%.2f,%.3f,%.1f"

// recToCSV converts a record into a CSV record and appends it to the string
// builder.
func recToCSV(sb *strings.Builder, r *solar.Record, _ string) {
	fmt.Fprintf(sb, csvFmt,
		r.Timestamp,
		r.Latitude,
		r.Longitude,
		r.Irradiance,
		r.Luminance,
	)
}
