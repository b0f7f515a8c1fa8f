package vm

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// QueryResponse is the body returned by /api/v1/query.
type QueryResponse struct {
	Status    string    `json:"status"`
	Data      QueryData `json:"data"`
	ErrorType string    `json:"errorType"`
	Error     string    `json:"error"`
	Warnings  []string  `json:"warnings"`
}

// IsSuccess returns true if the query was successful.
func (r *QueryResponse) IsSuccess() bool {
	return r.Status == "success"
}

// QueryData contains the result data from a query.
type QueryData struct {
	ResultType string   `json:"resultType"`
	Result     []Sample `json:"result"`
}

// IsVector returns true if the result type is "vector" (instant vector).
func (d *QueryData) IsVector() bool {
	return d.ResultType == "vector"
}

// Sample is a single series of an instant vector.
type Sample struct {
	Metric Metric      `json:"metric"`
	Value  SampleValue `json:"value"`
}

// Metric represents a set of label-value pairs for a time series.
type Metric map[string]string

// Name returns the metric name (__name__ label).
func (m Metric) Name() string {
	return m["__name__"]
}

// SampleValue is the [unix_timestamp, "value"] pair of the HTTP API.
type SampleValue [2]interface{}

// Timestamp returns the sample time, or the zero time when absent.
func (v SampleValue) Timestamp() time.Time {
	ts, ok := v[0].(float64)
	if !ok {
		return time.Time{}
	}
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// Value returns the sample value as float64.
func (v SampleValue) Value() (float64, error) {
	switch val := v[1].(type) {
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse value %q: %w", val, err)
		}
		return f, nil
	case float64:
		return val, nil
	default:
		return 0, fmt.Errorf("unexpected value type: %T", v[1])
	}
}

// IsNaN returns true if the value is NaN, Inf, or missing.
func (v SampleValue) IsNaN() bool {
	if v[1] == nil {
		return true
	}
	if str, ok := v[1].(string); ok {
		return str == "NaN" || str == "+Inf" || str == "-Inf"
	}
	return false
}

// QueryResult is one parsed series of an instant vector.
type QueryResult struct {
	Labels    map[string]string
	Value     float64
	Timestamp time.Time
}

// ParseQueryResults converts a vector response into results.
// NaN, Inf and unparsable samples are skipped.
func ParseQueryResults(resp *QueryResponse) ([]QueryResult, error) {
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("query failed: %s - %s", resp.ErrorType, resp.Error)
	}

	if !resp.Data.IsVector() {
		return nil, fmt.Errorf("unexpected result type: %s (expected vector)", resp.Data.ResultType)
	}

	results := make([]QueryResult, 0, len(resp.Data.Result))
	for _, sample := range resp.Data.Result {
		if sample.Value.IsNaN() {
			continue
		}
		value, err := sample.Value.Value()
		if err != nil {
			continue
		}
		results = append(results, QueryResult{
			Labels:    sample.Metric,
			Value:     value,
			Timestamp: sample.Value.Timestamp(),
		})
	}

	return results, nil
}

// MaxResult returns the result with the highest value. ok is false for an
// empty slice.
func MaxResult(results []QueryResult) (max QueryResult, ok bool) {
	for i, r := range results {
		if i == 0 || r.Value > max.Value {
			max = r
		}
	}
	return max, len(results) > 0
}
