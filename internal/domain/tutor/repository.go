package tutor

import "context"

type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (Profile, bool, error)
	Upsert(ctx context.Context, profile Profile) error
	Delete(ctx context.Context, userID string) error
}

type SessionRepository interface {
	GetByUserID(ctx context.Context, userID string) (Session, bool, error)
	Upsert(ctx context.Context, session Session) error
	Delete(ctx context.Context, userID string) error
}

// Completion is the generated answer plus token accounting when the
// service reports it.
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
}

// Completer sends one instruction prompt to the language-model service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
}
