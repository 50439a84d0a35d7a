package groq

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/aiqyn-learn/internal/domain/tutor"
	"github.com/riskibarqy/aiqyn-learn/internal/platform/logging"
	"github.com/riskibarqy/aiqyn-learn/internal/platform/resilience"
)

const okCompletionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1767225600,
	"model": "llama-3.3-70b-versatile",
	"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "  Think of a pizza cut into slices.  "}}],
	"usage": {"prompt_tokens": 120, "completion_tokens": 42, "total_tokens": 162}
}`

type recordingMetrics struct {
	mu          sync.Mutex
	kinds       []string
	rejections  []string
	circuitOpen []bool
}

func (m *recordingMetrics) ObserveCompletion(_ string, failureKind string, _, _ int64, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kinds = append(m.kinds, failureKind)
}

func (m *recordingMetrics) ObserveRejection(_ string, failureKind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections = append(m.rejections, failureKind)
}

func (m *recordingMetrics) SetCircuitOpen(_ string, open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.circuitOpen = append(m.circuitOpen, open)
}

func newTestClient(t *testing.T, serverURL string, metrics Metrics, breaker resilience.CircuitBreakerConfig) *Client {
	t.Helper()

	client, err := NewClient(ClientConfig{
		BaseURL:        serverURL,
		APIKey:         "test-key",
		Model:          "llama-3.3-70b-versatile",
		Timeout:        5 * time.Second,
		Logger:         logging.NewNop(),
		Metrics:        metrics,
		CircuitBreaker: breaker,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestClient_CompleteSendsSingleUserMessage(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		if err := sonic.Unmarshal(raw, &captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okCompletionBody))
	}))
	defer server.Close()

	metrics := &recordingMetrics{}
	client := newTestClient(t, server.URL, metrics, resilience.DefaultCircuitBreakerConfig())

	completion, err := client.Complete(t.Context(), "explain fractions")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if completion.Text != "  Think of a pizza cut into slices.  " {
		t.Fatalf("unexpected text %q", completion.Text)
	}
	if completion.PromptTokens != 120 || completion.CompletionTokens != 42 {
		t.Fatalf("unexpected usage %+v", completion)
	}

	if captured["model"] != "llama-3.3-70b-versatile" {
		t.Fatalf("unexpected model %v", captured["model"])
	}
	if captured["temperature"] != 0.7 {
		t.Fatalf("unexpected temperature %v", captured["temperature"])
	}
	if captured["max_tokens"] != float64(800) {
		t.Fatalf("unexpected max_tokens %v", captured["max_tokens"])
	}
	messages, _ := captured["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected exactly one message, got %v", captured["messages"])
	}
	message, _ := messages[0].(map[string]any)
	if message["role"] != "user" || message["content"] != "explain fractions" {
		t.Fatalf("unexpected message %v", message)
	}
	if len(metrics.kinds) != 1 || metrics.kinds[0] != "" {
		t.Fatalf("expected one successful observation, got %v", metrics.kinds)
	}
}

func TestClient_CompleteClassifiesFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   tutor.FailureKind
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":{"message":"boom"}}`, want: tutor.FailureUnavailable},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":{"message":"slow down"}}`, want: tutor.FailureUnavailable},
		{name: "bad request", status: http.StatusBadRequest, body: `{"error":{"message":"bad model"}}`, want: tutor.FailureRejected},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":{"message":"bad key"}}`, want: tutor.FailureRejected},
		{name: "no choices", status: http.StatusOK, body: `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`, want: tutor.FailureEmpty},
		{name: "blank content", status: http.StatusOK, body: `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"   "}}]}`, want: tutor.FailureEmpty},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, nil, resilience.CircuitBreakerConfig{Enabled: false})
			_, err := client.Complete(t.Context(), "question")
			if !errors.Is(err, tutor.ErrCompletionFailed) {
				t.Fatalf("expected completion failure, got %v", err)
			}
			if got := tutor.FailureKindOf(err); got != tc.want {
				t.Fatalf("expected kind %s, got %s", tc.want, got)
			}
			if calls.Load() != 1 {
				t.Fatalf("expected a single attempt, got %d", calls.Load())
			}
		})
	}
}

func TestClient_CircuitOpensOnUnavailability(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	metrics := &recordingMetrics{}
	client := newTestClient(t, server.URL, metrics, resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 1,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	})

	if _, err := client.Complete(t.Context(), "first"); tutor.FailureKindOf(err) != tutor.FailureUnavailable {
		t.Fatalf("expected unavailable on first call, got %v", err)
	}
	_, err := client.Complete(t.Context(), "second")
	if tutor.FailureKindOf(err) != tutor.FailureCircuitOpen {
		t.Fatalf("expected circuit_open, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected open circuit to skip the request, got %d calls", calls.Load())
	}
	if len(metrics.circuitOpen) != 1 || !metrics.circuitOpen[0] {
		t.Fatalf("expected circuit open gauge update, got %v", metrics.circuitOpen)
	}
	if len(metrics.kinds) != 1 || metrics.kinds[0] != string(tutor.FailureUnavailable) {
		t.Fatalf("expected only the sent request in completion observations, got %v", metrics.kinds)
	}
	if len(metrics.rejections) != 1 || metrics.rejections[0] != string(tutor.FailureCircuitOpen) {
		t.Fatalf("expected circuit rejection to be counted separately, got %v", metrics.rejections)
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	if _, err := NewClient(ClientConfig{APIKey: "  "}); err == nil {
		t.Fatalf("expected error for missing api key")
	}

	client, err := NewClient(ClientConfig{APIKey: "key"})
	if err != nil {
		t.Fatalf("expected defaults to be valid: %v", err)
	}
	if client.Model() != DefaultModel {
		t.Fatalf("expected default model, got %s", client.Model())
	}
}
