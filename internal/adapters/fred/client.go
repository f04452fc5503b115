package fred

// client.go: cliente HTTP de FRED para la serie de fed funds (DFF).
//
// FRED publica el tipo en porcentaje y marca los días sin dato con ".".
// El cliente convierte a decimal y omite esos días; el relleno hacia delante
// lo aplica domain.RateSeries al leer. Cada petición lógica (con sus retries)
// pasa por un circuit breaker: tras 3 fallos seguidos las siguientes fallan
// sin tocar la red durante breakerTimeout.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alejandrodnm/eventbt/internal/domain"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	defaultBase   = "https://api.stlouisfed.org"
	DefaultSeries = "DFF"

	// FRED permite 120 peticiones/minuto; usamos la mitad.
	ratePerSec = 1

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond

	breakerTrips   = 3
	breakerTimeout = 60 * time.Second
)

// Client obtiene observaciones de una serie de FRED con rate limiting y retries.
type Client struct {
	http    *http.Client
	base    string
	series  string
	apiKey  string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewClient crea un Client. Si base o series están vacíos usa la API de
// producción y la serie DFF.
func NewClient(base, series, apiKey string) *Client {
	if base == "" {
		base = defaultBase
	}
	if series == "" {
		series = DefaultSeries
	}
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		base:    base,
		series:  series,
		apiKey:  apiKey,
		limiter: rate.NewLimiter(ratePerSec, 2),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "fred",
			Timeout: breakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerTrips
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("circuit breaker state change",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		}),
	}
}

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// FetchRates implementa ports.RateProvider.
func (c *Client) FetchRates(ctx context.Context, from, to time.Time) ([]domain.RatePoint, error) {
	q := url.Values{}
	q.Set("series_id", c.series)
	q.Set("api_key", c.apiKey)
	q.Set("file_type", "json")
	q.Set("observation_start", from.Format(domain.DateLayout))
	q.Set("observation_end", to.Format(domain.DateLayout))
	u := c.base + "/fred/series/observations?" + q.Encode()

	var resp observationsResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("fred.FetchRates: %s: %w", c.series, err)
	}

	points := make([]domain.RatePoint, 0, len(resp.Observations))
	skipped := 0
	for _, o := range resp.Observations {
		if o.Value == "." || o.Value == "" {
			skipped++
			continue
		}
		pct, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("fred.FetchRates: value %q on %s: %w", o.Value, o.Date, err)
		}
		d, err := domain.ParseDay(o.Date)
		if err != nil {
			return nil, fmt.Errorf("fred.FetchRates: %w", err)
		}
		points = append(points, domain.RatePoint{Date: d, Rate: pct / 100})
	}

	slog.Debug("fred observations fetched",
		"series", c.series,
		"points", len(points),
		"skipped", skipped,
	)
	if len(points) == 0 {
		return nil, fmt.Errorf("fred.FetchRates: %s %s..%s: %w",
			c.series, from.Format(domain.DateLayout), to.Format(domain.DateLayout), domain.ErrNoRates)
	}
	return points, nil
}

// get hace un GET con rate limiting y retries detrás del circuit breaker.
func (c *Client) get(ctx context.Context, u string, out any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.doWithRetry(ctx, func() (*http.Response, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Accept", "application/json")
			return c.http.Do(req)
		}, out)
	})
	return err
}

// doWithRetry ejecuta la función con backoff exponencial.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by FRED", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
