package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

const httpTimeout = 10 * time.Second

// consecutiveFailuresToTrip opens a client's circuit after this many failures in a row.
const consecutiveFailuresToTrip = 5

// ErrCircuitOpen is returned without contacting the upstream while its circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// newHTTPClient returns an http.Client with a 10-second timeout.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// newBreaker returns a circuit breaker that trips on consecutive failures and
// lets a single trial request through after the cool-down. It never retries.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= consecutiveFailuresToTrip
		},
	})
}

// doGet performs a GET request and decodes the JSON response into dst.
func doGet(ctx context.Context, client *http.Client, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", redact(rawURL), err)
	}

	resp, err := client.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = redact(ue.URL)
		}
		return fmt.Errorf("GET %s: %w", redact(rawURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned status %d", redact(rawURL), resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response from %s: %w", redact(rawURL), err)
	}

	return nil
}

// guardedGet runs doGet through the circuit breaker.
func guardedGet(ctx context.Context, cb *gobreaker.CircuitBreaker, client *http.Client, rawURL string, dst any) error {
	_, err := cb.Execute(func() (interface{}, error) {
		return nil, doGet(ctx, client, rawURL, dst)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return err
}
