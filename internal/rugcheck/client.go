package rugcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/Vladymirovich/MemeBot/internal/domain"
	"github.com/Vladymirovich/MemeBot/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL      = "https://api.rugcheck.xyz/v1/"
	DefaultTimeout      = 15 * time.Second
	DefaultCallInterval = 1 * time.Second
	DefaultMaxFailures  = 5
	DefaultOpenTimeout  = 60 * time.Second
)

var (
	// ErrReportAborted is returned when the service answers with an error body.
	ErrReportAborted = errors.New("risk report aborted by service")
	// ErrUnexpectedStatus is returned for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrMalformedReport is returned when the body cannot be decoded.
	ErrMalformedReport = errors.New("malformed risk report")
	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("risk service circuit open")
)

// Limiter throttles outgoing calls. *rate.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Fetcher returns the risk report of a mint.
type Fetcher interface {
	Report(ctx context.Context, mint string) (*domain.RiskReport, error)
}

// BreakerSettings configures the circuit breaker around the HTTP call.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before a probe.
	OpenTimeout time.Duration
}

// Client fetches token reports from RugCheck.
type Client struct {
	baseURL string
	client  *http.Client
	limiter Limiter
	breaker *gobreaker.CircuitBreaker
}

// ClientOption configures Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	client  *http.Client
	limiter Limiter
	breaker BreakerSettings
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.client = client
	}
}

// WithLimiter replaces the fixed inter-call delay. Tests use it to disable
// throttling.
func WithLimiter(l Limiter) ClientOption {
	return func(c *clientConfig) {
		c.limiter = l
	}
}

// WithCallInterval sets the minimum delay between two calls.
func WithCallInterval(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.limiter = NewIntervalLimiter(d)
	}
}

// WithBreaker sets circuit breaker thresholds.
func WithBreaker(s BreakerSettings) ClientOption {
	return func(c *clientConfig) {
		c.breaker = s
	}
}

// NewIntervalLimiter returns a limiter allowing one call per interval.
// A non-positive interval falls back to DefaultCallInterval; only WithLimiter
// can remove the delay.
func NewIntervalLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		interval = DefaultCallInterval
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// NewClient creates a RugCheck client rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	cfg := clientConfig{
		client:  &http.Client{Timeout: DefaultTimeout},
		limiter: NewIntervalLimiter(DefaultCallInterval),
		breaker: BreakerSettings{MaxFailures: DefaultMaxFailures, OpenTimeout: DefaultOpenTimeout},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Client{
		baseURL: baseURL,
		client:  cfg.client,
		limiter: cfg.limiter,
		breaker: newBreaker(cfg.breaker),
	}
}

func newBreaker(s BreakerSettings) *gobreaker.CircuitBreaker {
	maxFailures := s.MaxFailures
	if maxFailures == 0 {
		maxFailures = DefaultMaxFailures
	}

	st := gobreaker.Settings{Name: "rugcheck"}
	st.Timeout = s.OpenTimeout
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= maxFailures
	}
	// An abort answer or a caller cancellation says nothing about service health.
	st.IsSuccessful = func(err error) bool {
		return err == nil ||
			errors.Is(err, ErrReportAborted) ||
			errors.Is(err, context.Canceled)
	}
	return gobreaker.NewCircuitBreaker(st)
}

// Compile-time interface check.
var _ Fetcher = (*Client)(nil)

// Report waits for the limiter and fetches the report for mint.
func (c *Client) Report(ctx context.Context, mint string) (*domain.RiskReport, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, mint)
	})
	if err != nil {
		observability.RecordRiskReport(outcome(err), time.Since(start))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return nil, err
	}

	observability.RecordRiskReport("ok", time.Since(start))
	return out.(*domain.RiskReport), nil
}

// fetch performs GET {base}tokens/{mint}/report.
func (c *Client) fetch(ctx context.Context, mint string) (*domain.RiskReport, error) {
	endpoint := c.baseURL + "tokens/" + url.PathEscape(mint) + "/report"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return decodeReport(body, mint)
}

// reportBody is the subset of the RugCheck report the gate reads.
type reportBody struct {
	Mint         string          `json:"mint"`
	TokenAddress string          `json:"token_address"`
	Rugged       bool            `json:"rugged"`
	Result       string          `json:"result"`
	Risks        []domain.Risk   `json:"risks"`
	Score        int             `json:"score"`
	Error        json.RawMessage `json:"error"`
}

func decodeReport(body []byte, mint string) (*domain.RiskReport, error) {
	var rb reportBody
	if err := json.Unmarshal(body, &rb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}

	if msg := bytes.TrimSpace(rb.Error); len(msg) > 0 && !bytes.Equal(msg, []byte("null")) &&
		!bytes.Equal(msg, []byte(`""`)) && !bytes.Equal(msg, []byte("false")) {
		return nil, fmt.Errorf("%w: %s", ErrReportAborted, msg)
	}

	report := &domain.RiskReport{
		TokenAddress: firstNonEmpty(rb.TokenAddress, rb.Mint, mint),
		Rugged:       rb.Rugged,
		Result:       domain.RiskResult(rb.Result),
		Risks:        rb.Risks,
		Score:        rb.Score,
	}
	if report.Result == "" {
		report.Result = resultFromRisks(rb.Risks)
	}
	return report, nil
}

// resultFromRisks derives the aggregate result when the service omits it.
func resultFromRisks(risks []domain.Risk) domain.RiskResult {
	result := domain.RiskResultGood
	for _, r := range risks {
		switch strings.ToLower(r.Level) {
		case "danger":
			return domain.RiskResultDanger
		case "warn", "warning":
			result = domain.RiskResultWarning
		}
	}
	return result
}

func outcome(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, ErrReportAborted):
		return "aborted"
	case errors.Is(err, ErrMalformedReport):
		return "malformed"
	default:
		return "error"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
