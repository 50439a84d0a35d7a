package chatbot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/aiqyn-learn/external/telegram"
	"github.com/riskibarqy/aiqyn-learn/internal/platform/logging"
	"github.com/riskibarqy/aiqyn-learn/internal/usecase"
)

type fakeTransport struct {
	mu       sync.Mutex
	batches  [][]telegram.Update
	errs     []error
	offsets  []int64
	sent     []telegram.SendMessageInput
	actions  []int64
	pollDone chan struct{}
}

func newFakeTransport(batches ...[]telegram.Update) *fakeTransport {
	return &fakeTransport{
		batches:  batches,
		pollDone: make(chan struct{}),
	}
}

func (f *fakeTransport) GetUpdates(ctx context.Context, offset int64) ([]telegram.Update, error) {
	f.mu.Lock()
	f.offsets = append(f.offsets, offset)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		f.mu.Unlock()
		return nil, err
	}
	if len(f.batches) > 0 {
		batch := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return batch, nil
	}
	f.mu.Unlock()

	select {
	case <-f.pollDone:
	default:
		close(f.pollDone)
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeTransport) SendMessage(_ context.Context, input telegram.SendMessageInput) error {
	f.mu.Lock()
	f.sent = append(f.sent, input)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) SendChatAction(_ context.Context, chatID int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, chatID)
	return nil
}

type echoConversation struct {
	mu     sync.Mutex
	events []usecase.Event
	delay  time.Duration
	reply  func(event usecase.Event) (usecase.Reply, error)
}

func (c *echoConversation) Handle(ctx context.Context, event usecase.Event) (usecase.Reply, error) {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
	if c.reply != nil {
		return c.reply(event)
	}
	return usecase.Reply{Text: "echo:" + event.Text}, nil
}

func textUpdate(updateID, userID int64, text string) telegram.Update {
	return telegram.Update{
		UpdateID: updateID,
		Message: &telegram.Message{
			MessageID: updateID,
			From:      &telegram.User{ID: userID, FirstName: "learner"},
			Chat:      telegram.Chat{ID: userID * 10, Type: "private"},
			Text:      text,
		},
	}
}

func newTestDispatcher(t *testing.T, transport Transport, conversation Conversation) *Dispatcher {
	t.Helper()

	dispatcher, err := NewDispatcher(transport, conversation, DispatcherConfig{
		Workers:    4,
		RetryDelay: 10 * time.Millisecond,
		Logger:     logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return dispatcher
}

func runUntilPollIdle(t *testing.T, dispatcher *Dispatcher, transport *fakeTransport) {
	t.Helper()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- dispatcher.Run(ctx) }()

	select {
	case <-transport.pollDone:
	case <-time.After(5 * time.Second):
		t.Fatalf("dispatcher never drained the update batches")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("dispatcher did not stop")
	}
}

func TestDispatcher_RunKeepsPerUserOrderAndAdvancesOffset(t *testing.T) {
	transport := newFakeTransport(
		[]telegram.Update{
			textUpdate(10, 1, "a"),
			textUpdate(11, 1, "b"),
			textUpdate(12, 2, "x"),
		},
		[]telegram.Update{
			textUpdate(13, 1, "c"),
		},
	)
	conversation := &echoConversation{delay: 5 * time.Millisecond}

	runUntilPollIdle(t, newTestDispatcher(t, transport, conversation), transport)

	if len(transport.offsets) != 3 || transport.offsets[0] != 0 || transport.offsets[1] != 13 || transport.offsets[2] != 14 {
		t.Fatalf("unexpected offsets %v", transport.offsets)
	}

	var userOne []string
	for _, sent := range transport.sent {
		if sent.ChatID == 10 {
			userOne = append(userOne, sent.Text)
		}
	}
	if strings.Join(userOne, ",") != "echo:a,echo:b,echo:c" {
		t.Fatalf("expected in-order replies for user 1, got %v", userOne)
	}
	if len(transport.sent) != 4 {
		t.Fatalf("expected 4 replies, got %d", len(transport.sent))
	}
	if conversation.events[0].UserID != "1" && conversation.events[0].UserID != "2" {
		t.Fatalf("unexpected user id mapping %q", conversation.events[0].UserID)
	}
}

func TestDispatcher_SkipsNonTextUpdates(t *testing.T) {
	bot := textUpdate(3, 9, "hi")
	bot.Message.From.IsBot = true
	transport := newFakeTransport([]telegram.Update{
		{UpdateID: 1},
		{UpdateID: 2, Message: &telegram.Message{Chat: telegram.Chat{ID: 5}, Text: "no sender"}},
		bot,
		textUpdate(4, 7, "   "),
		textUpdate(5, 7, "real"),
	})
	conversation := &echoConversation{}

	runUntilPollIdle(t, newTestDispatcher(t, transport, conversation), transport)

	if len(conversation.events) != 1 || conversation.events[0].Text != "real" {
		t.Fatalf("expected only the text message to be handled, got %+v", conversation.events)
	}
	if transport.offsets[1] != 6 {
		t.Fatalf("expected offset to skip past ignored updates, got %v", transport.offsets)
	}
}

func TestDispatcher_MapsReplyMarkupAndTyping(t *testing.T) {
	transport := newFakeTransport([]telegram.Update{
		textUpdate(1, 1, "menu"),
		textUpdate(2, 2, "clear"),
		textUpdate(3, 3, "silent"),
		textUpdate(4, 4, "plain"),
	})
	conversation := &echoConversation{reply: func(event usecase.Event) (usecase.Reply, error) {
		switch event.Text {
		case "menu":
			event.Typing(context.Background())
			return usecase.Reply{Text: "m", Menu: &usecase.Menu{Rows: [][]string{{"a", "b"}}, OneTime: true}}, nil
		case "clear":
			return usecase.Reply{Text: "c", ClearMenu: true}, nil
		case "silent":
			return usecase.Reply{}, nil
		default:
			return usecase.Reply{Text: "p"}, nil
		}
	}}

	runUntilPollIdle(t, newTestDispatcher(t, transport, conversation), transport)

	byChat := map[int64]telegram.SendMessageInput{}
	for _, sent := range transport.sent {
		byChat[sent.ChatID] = sent
	}
	if len(byChat) != 3 {
		t.Fatalf("expected 3 replies, got %+v", transport.sent)
	}
	keyboard, ok := byChat[10].ReplyMarkup.(*telegram.ReplyKeyboardMarkup)
	if !ok || !keyboard.OneTimeKeyboard || keyboard.Keyboard[0][1].Text != "b" {
		t.Fatalf("unexpected keyboard %+v", byChat[10].ReplyMarkup)
	}
	if remove, ok := byChat[20].ReplyMarkup.(*telegram.ReplyKeyboardRemove); !ok || !remove.RemoveKeyboard {
		t.Fatalf("expected keyboard removal, got %+v", byChat[20].ReplyMarkup)
	}
	if byChat[40].ReplyMarkup != nil {
		t.Fatalf("expected no markup, got %+v", byChat[40].ReplyMarkup)
	}
	if len(transport.actions) != 1 || transport.actions[0] != 10 {
		t.Fatalf("expected one typing action for chat 10, got %v", transport.actions)
	}
}

func TestDispatcher_HandlerErrorSendsApology(t *testing.T) {
	transport := newFakeTransport([]telegram.Update{textUpdate(1, 1, "boom")})
	conversation := &echoConversation{reply: func(usecase.Event) (usecase.Reply, error) {
		return usecase.Reply{}, errors.New("store offline")
	}}

	runUntilPollIdle(t, newTestDispatcher(t, transport, conversation), transport)

	if len(transport.sent) != 1 || transport.sent[0].Text != msgInternalError {
		t.Fatalf("expected apology, got %+v", transport.sent)
	}
}

func TestDispatcher_HandlerPanicDoesNotBlockUser(t *testing.T) {
	transport := newFakeTransport([]telegram.Update{
		textUpdate(1, 1, "panic"),
		textUpdate(2, 1, "after"),
	})
	conversation := &echoConversation{reply: func(event usecase.Event) (usecase.Reply, error) {
		if event.Text == "panic" {
			panic("unexpected")
		}
		return usecase.Reply{Text: "ok"}, nil
	}}

	runUntilPollIdle(t, newTestDispatcher(t, transport, conversation), transport)

	if len(transport.sent) != 1 || transport.sent[0].Text != "ok" {
		t.Fatalf("expected the next message to be handled, got %+v", transport.sent)
	}
}

func TestDispatcher_RetriesPollErrorsAndStopsOnUnauthorized(t *testing.T) {
	transport := newFakeTransport()
	transport.errs = []error{
		errors.New("connection reset"),
		crerr.Mark(&telegram.APIError{Method: "getUpdates", StatusCode: 401}, telegram.ErrUnauthorized),
	}

	err := newTestDispatcher(t, transport, &echoConversation{}).Run(t.Context())
	if !crerr.Is(err, telegram.ErrUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if len(transport.offsets) != 2 {
		t.Fatalf("expected one retry before stopping, got %d polls", len(transport.offsets))
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short", 10); len(got) != 1 || got[0] != "short" {
		t.Fatalf("unexpected split %v", got)
	}

	text := strings.Repeat("я", 7) + "\n" + strings.Repeat("b", 7)
	chunks := splitMessage(text, 10)
	if len(chunks) != 2 || chunks[0] != strings.Repeat("я", 7)+"\n" || chunks[1] != strings.Repeat("b", 7) {
		t.Fatalf("expected newline-aware split, got %q", chunks)
	}

	chunks = splitMessage(strings.Repeat("x", 25), 10)
	if len(chunks) != 3 || len(chunks[2]) != 5 {
		t.Fatalf("expected hard split into 3 chunks, got %q", chunks)
	}
}

func TestDispatcher_LongReplyKeepsMarkupOnLastChunk(t *testing.T) {
	transport := newFakeTransport()
	dispatcher := newTestDispatcher(t, transport, &echoConversation{})

	err := dispatcher.send(t.Context(), 1, usecase.Reply{
		Text: strings.Repeat("a", maxMessageRunes+10),
		Menu: &usecase.Menu{Rows: [][]string{{"x"}}},
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if len(transport.sent) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(transport.sent))
	}
	if transport.sent[0].ReplyMarkup != nil || transport.sent[1].ReplyMarkup == nil {
		t.Fatalf("expected markup only on the last chunk")
	}
}

func TestDispatcher_DropsMessagesBeyondUserQueueLimit(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	conversation := &echoConversation{reply: func(event usecase.Event) (usecase.Reply, error) {
		if event.Text == "first" {
			once.Do(func() { close(started) })
			<-release
		}
		return usecase.Reply{Text: "echo:" + event.Text}, nil
	}}
	transport := newFakeTransport()

	dispatcher, err := NewDispatcher(transport, conversation, DispatcherConfig{
		Workers:          2,
		MaxQueuedPerUser: 2,
		Logger:           logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	defer dispatcher.pool.Release()

	dispatcher.Dispatch(t.Context(), textUpdate(1, 1, "first"))
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatalf("first message was never handled")
	}

	for i, text := range []string{"second", "third", "fourth", "fifth"} {
		dispatcher.Dispatch(t.Context(), textUpdate(int64(i+2), 1, text))
	}
	dispatcher.Dispatch(t.Context(), textUpdate(10, 2, "other user"))

	close(release)
	dispatcher.inFlight.Wait()

	var userOne []string
	for _, sent := range transport.sent {
		if sent.ChatID == 10 {
			userOne = append(userOne, sent.Text)
		}
	}
	if strings.Join(userOne, ",") != "echo:first,echo:second,echo:third" {
		t.Fatalf("expected overflow to be dropped, got %v", userOne)
	}
	if len(transport.sent) != 4 {
		t.Fatalf("expected the other user to be unaffected, got %+v", transport.sent)
	}
}
