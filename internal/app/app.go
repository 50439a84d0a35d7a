package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/aiqyn-learn/external/groq"
	"github.com/riskibarqy/aiqyn-learn/external/telegram"
	"github.com/riskibarqy/aiqyn-learn/internal/config"
	"github.com/riskibarqy/aiqyn-learn/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/aiqyn-learn/internal/interfaces/chatbot"
	"github.com/riskibarqy/aiqyn-learn/internal/interfaces/httpapi"
	"github.com/riskibarqy/aiqyn-learn/internal/platform/logging"
	"github.com/riskibarqy/aiqyn-learn/internal/platform/metrics"
	"github.com/riskibarqy/aiqyn-learn/internal/platform/resilience"
	"github.com/riskibarqy/aiqyn-learn/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// App owns the long-running parts of the bot: the chat dispatcher and the
// health server.
type App struct {
	dispatcher *chatbot.Dispatcher
	server     *http.Server
	logger     *logging.Logger
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	var recorder *metrics.Recorder
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		recorder = metrics.NewRecorder()
		metricsHandler = recorder.Handler()
	}

	groqCfg := groq.ClientConfig{
		BaseURL: cfg.GroqBaseURL,
		APIKey:  cfg.GroqAPIKey,
		Model:   cfg.GroqModel,
		Timeout: cfg.GroqTimeout,
		Logger:  logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.GroqCircuitEnabled,
			FailureThreshold: cfg.GroqCircuitFailureCount,
			OpenTimeout:      cfg.GroqCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.GroqCircuitHalfOpenMaxReq,
		},
	}
	if recorder != nil {
		groqCfg.Metrics = recorder
	}
	completer, err := groq.NewClient(groqCfg)
	if err != nil {
		return nil, crerr.Wrap(err, "build groq client")
	}

	conversation := usecase.NewConversationService(
		memory.NewProfileRepository(),
		memory.NewSessionRepository(),
		completer,
		logger.Named("conversation"),
	)
	if recorder != nil {
		conversation.SetEventRecorder(recorder)
	}

	transport := telegram.NewClient(telegram.ClientConfig{
		BaseURL:     cfg.TelegramBaseURL,
		Token:       cfg.TelegramToken,
		PollTimeout: cfg.TelegramPollTimeout,
		Logger:      logger,
	})
	dispatcher, err := chatbot.NewDispatcher(transport, conversation, chatbot.DispatcherConfig{
		Workers: cfg.TelegramWorkers,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}
	handler := httpapi.NewHandler(cfg.ServiceVersion, metricsHandler, logger)
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(handler, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("app configured",
		"model", completer.Model(),
		"telegram_workers", cfg.TelegramWorkers,
		"metrics_enabled", cfg.MetricsEnabled,
	)

	return &App{
		dispatcher: dispatcher,
		server:     server,
		logger:     logger,
	}, nil
}

// Run blocks until ctx is cancelled or one component fails, then stops the
// other one. A cancelled ctx is a clean shutdown and returns nil.
func (a *App) Run(ctx context.Context) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(func(ctx context.Context) error {
		if err := a.dispatcher.Run(ctx); err != nil {
			return crerr.Wrap(err, "chat dispatcher")
		}
		return nil
	})

	p.Go(func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("http server starting", "addr", a.server.Addr)
			errCh <- a.server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return crerr.Wrap(err, "http server")
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return crerr.Wrap(err, "http server shutdown")
		}
		a.logger.Info("http server stopped")
		return nil
	})

	return p.Wait()
}
