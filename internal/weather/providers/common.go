package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/i474232898/safety-companion/internal/upstream"
)

// errMissingField marks payloads that decoded but lacked a required value.
var errMissingField = errors.New("missing required field")

func missing(field string) error {
	return fmt.Errorf("%w: %s", errMissingField, field)
}

// decodeJSON decodes a bounded response body into v and closes it.
func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(io.LimitReader(resp.Body, upstream.MaxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func getRequest(rawURL string) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "safety-companion/1.0")
		return req, nil
	}
}

func clampPercent(v float64) int {
	return int(math.Max(0, math.Min(100, math.Round(v))))
}

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }
