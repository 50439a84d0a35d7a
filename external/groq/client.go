package groq

import (
	"context"
	"net/http"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/aiqyn-learn/internal/domain/tutor"
	"github.com/riskibarqy/aiqyn-learn/internal/platform/logging"
	"github.com/riskibarqy/aiqyn-learn/internal/platform/resilience"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"

	temperature = 0.7
	maxTokens   = 800

	dependencyName = "groq"
)

// Metrics receives completion observations. *metrics.Recorder satisfies it.
type Metrics interface {
	ObserveCompletion(model, failureKind string, promptTokens, completionTokens int64, duration time.Duration)
	ObserveRejection(model, failureKind string)
	SetCircuitOpen(dependency string, open bool)
}

type noopMetrics struct{}

func (noopMetrics) ObserveCompletion(string, string, int64, int64, time.Duration) {}
func (noopMetrics) ObserveRejection(string, string)                                {}
func (noopMetrics) SetCircuitOpen(string, bool)                                    {}

type ClientConfig struct {
	HTTPClient     *http.Client                    `validate:"-"`
	BaseURL        string                          `validate:"required,url"`
	APIKey         string                          `validate:"required"`
	Model          string                          `validate:"required"`
	Timeout        time.Duration                   `validate:"gte=0"`
	Logger         *logging.Logger                 `validate:"-"`
	Metrics        Metrics                         `validate:"-"`
	CircuitBreaker resilience.CircuitBreakerConfig `validate:"-"`
}

// Client sends tutoring prompts to Groq's OpenAI-compatible chat endpoint.
// Each prompt gets exactly one attempt.
type Client struct {
	api            openai.Client
	model          string
	logger         *logging.Logger
	metrics        Metrics
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	now            func() time.Time
}

func NewClient(cfg ClientConfig) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, crerr.Wrap(err, "invalid groq client config")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 60 * time.Second
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)
	breaker := resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq)
	breaker.OnStateChange(func(from, to resilience.CircuitState) {
		metrics.SetCircuitOpen(dependencyName, to == resilience.CircuitStateOpen)
		logger.Warn("groq circuit breaker state changed", "from", from, "to", to)
	})

	return &Client{
		api: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.BaseURL),
			option.WithMaxRetries(0),
			option.WithHTTPClient(httpClient),
		),
		model:          cfg.Model,
		logger:         logger,
		metrics:        metrics,
		breaker:        breaker,
		circuitEnabled: breakerCfg.Enabled,
		now:            time.Now,
	}, nil
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Complete(ctx context.Context, prompt string) (tutor.Completion, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "groq circuit breaker rejected request", "state", c.breaker.State())
			c.metrics.ObserveRejection(c.model, string(tutor.FailureCircuitOpen))
			return tutor.Completion{}, tutor.NewCompletionError(tutor.FailureCircuitOpen, err)
		}
	}

	startedAt := c.now()
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
	})
	elapsed := c.now().Sub(startedAt)

	completion, err := c.interpret(resp, err)
	c.recordOutcome(err)
	if err != nil {
		kind := tutor.FailureKindOf(err)
		c.metrics.ObserveCompletion(c.model, string(kind), 0, 0, elapsed)
		c.logger.WarnContext(ctx, "groq completion failed",
			"model", c.model,
			"failure_kind", kind,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return tutor.Completion{}, err
	}

	c.metrics.ObserveCompletion(c.model, "", completion.PromptTokens, completion.CompletionTokens, elapsed)
	c.logger.DebugContext(ctx, "groq completion finished",
		"model", completion.Model,
		"prompt_tokens", completion.PromptTokens,
		"completion_tokens", completion.CompletionTokens,
		"duration_ms", elapsed.Milliseconds(),
	)
	return completion, nil
}

func (c *Client) interpret(resp *openai.ChatCompletion, err error) (tutor.Completion, error) {
	if err != nil {
		var apiErr *openai.Error
		if crerr.As(err, &apiErr) {
			wrapped := crerr.Wrapf(err, "groq status=%d", apiErr.StatusCode)
			if isRetryableStatus(apiErr.StatusCode) {
				return tutor.Completion{}, tutor.NewCompletionError(tutor.FailureUnavailable, wrapped)
			}
			return tutor.Completion{}, tutor.NewCompletionError(tutor.FailureRejected, wrapped)
		}
		return tutor.Completion{}, tutor.NewCompletionError(tutor.FailureUnavailable, crerr.Wrap(err, "send groq request"))
	}

	if resp == nil || len(resp.Choices) == 0 {
		return tutor.Completion{}, tutor.NewCompletionError(tutor.FailureEmpty, crerr.New("groq returned no choices"))
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return tutor.Completion{}, tutor.NewCompletionError(tutor.FailureEmpty, crerr.New("groq returned empty content"))
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return tutor.Completion{
		Text:             text,
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// recordOutcome only counts unavailability against the breaker; a rejected
// or empty response still proves the service is reachable.
func (c *Client) recordOutcome(err error) {
	if !c.circuitEnabled {
		return
	}
	if err != nil && tutor.FailureKindOf(err) == tutor.FailureUnavailable {
		c.breaker.RecordFailure()
		return
	}
	c.breaker.RecordSuccess()
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= http.StatusInternalServerError
}
