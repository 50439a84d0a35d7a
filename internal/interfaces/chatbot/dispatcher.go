package chatbot

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/riskibarqy/aiqyn-learn/external/telegram"
	"github.com/riskibarqy/aiqyn-learn/internal/platform/logging"
	"github.com/riskibarqy/aiqyn-learn/internal/usecase"
)

const (
	defaultWorkers       = 16
	defaultRetryDelay    = 3 * time.Second
	defaultHandleTimeout = 90 * time.Second
	defaultMaxQueued     = 20

	msgInternalError = "Something went wrong on our side. Please try again a bit later."
)

// Transport is the subset of the Bot API the dispatcher needs.
type Transport interface {
	GetUpdates(ctx context.Context, offset int64) ([]telegram.Update, error)
	SendMessage(ctx context.Context, input telegram.SendMessageInput) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
}

type Conversation interface {
	Handle(ctx context.Context, event usecase.Event) (usecase.Reply, error)
}

type DispatcherConfig struct {
	Workers       int
	RetryDelay    time.Duration
	HandleTimeout time.Duration
	// MaxQueuedPerUser bounds the messages waiting behind the one being
	// handled. Extra messages are dropped.
	MaxQueuedPerUser int
	Logger           *logging.Logger
}

// Dispatcher long-polls the transport and feeds text messages to the
// conversation. Messages of one user are handled one at a time in arrival
// order; different users run in parallel on a bounded pool.
type Dispatcher struct {
	transport     Transport
	conversation  Conversation
	pool          *ants.Pool
	logger        *logging.Logger
	retryDelay    time.Duration
	handleTimeout time.Duration
	maxQueued     int

	mu       sync.Mutex
	mailbox  map[int64][]telegram.Message
	inFlight sync.WaitGroup
}

func NewDispatcher(transport Transport, conversation Conversation, cfg DispatcherConfig) (*Dispatcher, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("chatbot")

	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	handleTimeout := cfg.HandleTimeout
	if handleTimeout <= 0 {
		handleTimeout = defaultHandleTimeout
	}
	maxQueued := cfg.MaxQueuedPerUser
	if maxQueued <= 0 {
		maxQueued = defaultMaxQueued
	}

	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p any) {
		logger.Error("chat worker panic recovered", "panic", p)
	}))
	if err != nil {
		return nil, crerr.Wrap(err, "create chat worker pool")
	}

	return &Dispatcher{
		transport:     transport,
		conversation:  conversation,
		pool:          pool,
		logger:        logger,
		retryDelay:    retryDelay,
		handleTimeout: handleTimeout,
		maxQueued:     maxQueued,
		mailbox:       make(map[int64][]telegram.Message),
	}, nil
}

// Run polls until ctx is cancelled, then waits for in-flight messages and
// releases the pool. It returns early only when the transport rejects the
// bot token.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.pool.Release()
	defer d.inFlight.Wait()

	d.logger.Info("chat dispatcher started", "workers", d.pool.Cap())

	var offset int64
	for {
		updates, err := d.transport.GetUpdates(ctx, offset)
		if ctx.Err() != nil {
			d.logger.Info("chat dispatcher stopping")
			return nil
		}
		if err != nil {
			if crerr.Is(err, telegram.ErrUnauthorized) {
				return crerr.Wrap(err, "poll telegram updates")
			}
			delay := d.retryDelay
			var apiErr *telegram.APIError
			if crerr.As(err, &apiErr) && apiErr.RetryAfter > delay {
				delay = apiErr.RetryAfter
			}
			d.logger.WarnContext(ctx, "poll telegram updates failed", "error", err, "retry_in", delay.String())
			if !sleepContext(ctx, delay) {
				return nil
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			d.Dispatch(ctx, update)
		}
	}
}

// Dispatch queues one update. Updates without a text message from a user are
// dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, update telegram.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot || strings.TrimSpace(msg.Text) == "" {
		return
	}

	userID := msg.From.ID
	d.mu.Lock()
	queue, draining := d.mailbox[userID]
	if draining && len(queue) >= d.maxQueued {
		d.mu.Unlock()
		d.logger.WarnContext(ctx, "chat mailbox full, dropping message",
			"user_id", userID,
			"update_id", update.UpdateID,
			"queued", len(queue),
		)
		return
	}
	d.mailbox[userID] = append(queue, *msg)
	d.mu.Unlock()
	if draining {
		return
	}

	d.inFlight.Add(1)
	if err := d.pool.Submit(func() {
		defer d.inFlight.Done()
		d.drain(ctx, userID)
	}); err != nil {
		d.inFlight.Done()
		d.mu.Lock()
		delete(d.mailbox, userID)
		d.mu.Unlock()
		d.logger.ErrorContext(ctx, "submit chat message to worker pool failed", "user_id", userID, "error", err)
	}
}

func (d *Dispatcher) drain(ctx context.Context, userID int64) {
	for {
		d.mu.Lock()
		queue := d.mailbox[userID]
		if len(queue) == 0 {
			delete(d.mailbox, userID)
			d.mu.Unlock()
			return
		}
		msg := queue[0]
		d.mailbox[userID] = queue[1:]
		d.mu.Unlock()

		d.processSafely(ctx, msg)
	}
}

func (d *Dispatcher) processSafely(ctx context.Context, msg telegram.Message) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.ErrorContext(ctx, "chat message handler panic recovered", "user_id", msg.From.ID, "panic", p)
		}
	}()
	d.process(ctx, msg)
}

func (d *Dispatcher) process(parent context.Context, msg telegram.Message) {
	// In-flight answers finish even when polling stops.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.handleTimeout)
	defer cancel()

	eventID := uuid.NewString()
	userID := strconv.FormatInt(msg.From.ID, 10)
	chatID := msg.Chat.ID

	ctx, span := startSpan(ctx, "chatbot.HandleMessage",
		attribute.String("event.id", eventID),
		attribute.String("user.id", userID),
		attribute.Int64("chat.id", chatID),
	)
	defer span.End()

	logger := d.logger.With("event_id", eventID, "user_id", userID, "chat_id", chatID)
	startedAt := time.Now()

	reply, err := d.conversation.Handle(ctx, usecase.Event{
		UserID: userID,
		Text:   msg.Text,
		Typing: func(ctx context.Context) {
			if err := d.transport.SendChatAction(ctx, chatID, telegram.ChatActionTyping); err != nil {
				logger.WarnContext(ctx, "send typing indicator failed", "error", err)
			}
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handle message failed")
		logger.ErrorContext(ctx, "handle chat message failed", "error", err)
		reply = usecase.Reply{Text: msgInternalError}
	}
	if reply.Empty() {
		logger.DebugContext(ctx, "chat message produced no reply")
		return
	}

	if err := d.send(ctx, chatID, reply); err != nil {
		span.RecordError(err)
		logger.ErrorContext(ctx, "send chat reply failed", "error", err)
		return
	}
	logger.InfoContext(ctx, "chat message handled", "duration_ms", time.Since(startedAt).Milliseconds())
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, reply usecase.Reply) error {
	chunks := splitMessage(reply.Text, maxMessageRunes)
	for i, chunk := range chunks {
		input := telegram.SendMessageInput{ChatID: chatID, Text: chunk}
		if i == len(chunks)-1 {
			input.ReplyMarkup = replyMarkup(reply)
		}
		if err := d.transport.SendMessage(ctx, input); err != nil {
			return err
		}
	}
	return nil
}

func sleepContext(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
