package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/aiqyn-learn/internal/platform/logging"
)

const (
	DefaultBaseURL     = "https://api.telegram.org"
	defaultPollTimeout = 30 * time.Second
	// Added to the long-poll timeout so the HTTP client never cuts a
	// getUpdates call short.
	pollTimeoutSlack = 10 * time.Second
	maxResponseBytes = 4 << 20
)

var ErrUnauthorized = crerr.New("telegram rejected bot token")

// APIError is a non-ok Bot API response.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: status=%d description=%s", e.Method, e.StatusCode, e.Description)
}

type ClientConfig struct {
	HTTPClient  *http.Client
	BaseURL     string
	Token       string
	PollTimeout time.Duration
	Logger      *logging.Logger
}

type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	pollTimeout time.Duration
	logger      *logging.Logger
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = pollTimeout + pollTimeoutSlack
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		token:       strings.TrimSpace(cfg.Token),
		pollTimeout: pollTimeout,
		logger:      logger,
	}
}

// GetUpdates long-polls for message updates with update_id >= offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	return call[[]Update](ctx, c, "getUpdates", getUpdatesRequest{
		Offset:         offset,
		Timeout:        int(c.pollTimeout / time.Second),
		AllowedUpdates: []string{"message"},
	})
}

func (c *Client) SendMessage(ctx context.Context, input SendMessageInput) error {
	if strings.TrimSpace(input.Text) == "" {
		return crerr.New("telegram sendMessage: text is required")
	}

	_, err := call[Message](ctx, c, "sendMessage", sendMessageRequest{
		ChatID:      input.ChatID,
		Text:        input.Text,
		ReplyMarkup: input.ReplyMarkup,
	})
	return err
}

func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	_, err := call[bool](ctx, c, "sendChatAction", sendChatActionRequest{ChatID: chatID, Action: action})
	return err
}

func call[T any](ctx context.Context, c *Client, method string, payload any) (T, error) {
	var zero T

	body, err := sonic.Marshal(payload)
	if err != nil {
		return zero, crerr.Wrapf(err, "encode telegram %s payload", method)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return zero, crerr.Newf("build telegram %s request: %s", method, c.redact(err.Error()))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, crerr.Newf("send telegram %s request: %s", method, c.redact(err.Error()))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return zero, crerr.Wrapf(err, "read telegram %s response", method)
	}

	var envelope apiResponse[T]
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return zero, crerr.Wrapf(err, "decode telegram %s response status=%d", method, resp.StatusCode)
	}
	if !envelope.OK {
		apiErr := &APIError{
			Method:      method,
			StatusCode:  resp.StatusCode,
			Description: envelope.Description,
		}
		if envelope.Parameters != nil {
			apiErr.RetryAfter = time.Duration(envelope.Parameters.RetryAfter) * time.Second
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return zero, crerr.Mark(apiErr, ErrUnauthorized)
		}
		return zero, apiErr
	}
	return envelope.Result, nil
}

func (c *Client) methodURL(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

func (c *Client) redact(value string) string {
	if c.token == "" {
		return value
	}
	return strings.ReplaceAll(value, c.token, "REDACTED")
}
