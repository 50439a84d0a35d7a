package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/aiqyn-learn/internal/domain/tutor"
	"github.com/riskibarqy/aiqyn-learn/internal/platform/logging"
)

const stageIdle = "idle"

// EventRecorder receives one observation per handled event.
type EventRecorder interface {
	ObserveEvent(stage, outcome string)
}

type noopEventRecorder struct{}

func (noopEventRecorder) ObserveEvent(string, string) {}

// ConversationService drives onboarding and tutoring for every user. It is
// safe for concurrent use across users; callers serialize events of a single
// user.
type ConversationService struct {
	profileRepo tutor.ProfileRepository
	sessionRepo tutor.SessionRepository
	completer   tutor.Completer
	recorder    EventRecorder
	validator   *validator.Validate
	logger      *logging.Logger
	now         func() time.Time
}

func NewConversationService(
	profileRepo tutor.ProfileRepository,
	sessionRepo tutor.SessionRepository,
	completer tutor.Completer,
	logger *logging.Logger,
) *ConversationService {
	if logger == nil {
		logger = logging.Default()
	}

	return &ConversationService{
		profileRepo: profileRepo,
		sessionRepo: sessionRepo,
		completer:   completer,
		recorder:    noopEventRecorder{},
		validator:   validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger,
		now:         time.Now,
	}
}

func (s *ConversationService) SetEventRecorder(recorder EventRecorder) {
	if recorder == nil {
		s.recorder = noopEventRecorder{}
		return
	}
	s.recorder = recorder
}

// CurrentStage reports the user's stage. ok is false when the user has no
// active session.
func (s *ConversationService) CurrentStage(ctx context.Context, userID string) (tutor.Stage, bool, error) {
	session, ok, err := s.sessionRepo.GetByUserID(ctx, strings.TrimSpace(userID))
	if err != nil {
		return "", false, fmt.Errorf("%w: get session: %v", ErrDependencyUnavailable, err)
	}
	if !ok {
		return "", false, nil
	}
	return session.Stage, true, nil
}

// Handle advances the user's conversation by one inbound message. Expected
// user mistakes and completion failures produce a reply, not an error; only
// store failures and invalid events are returned.
func (s *ConversationService) Handle(ctx context.Context, event Event) (Reply, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ConversationService.Handle")
	defer span.End()

	userID := strings.TrimSpace(event.UserID)
	if userID == "" {
		return Reply{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	trigger := ParseTrigger(event.Text)
	switch trigger {
	case TriggerRestart:
		return s.startOnboarding(ctx, userID, "restart")
	case TriggerExit:
		return s.exit(ctx, userID)
	case TriggerHelp:
		return s.help(ctx, userID)
	case TriggerProfileCommand:
		return s.profileCommand(ctx, userID)
	}

	session, ok, err := s.sessionRepo.GetByUserID(ctx, userID)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: get session: %v", ErrDependencyUnavailable, err)
	}
	if !ok {
		s.recorder.ObserveEvent(stageIdle, "ignored")
		return Reply{}, nil
	}

	switch session.Stage {
	case tutor.StageAwaitingAge:
		return s.handleAge(ctx, session, event.Text)
	case tutor.StageAwaitingInterest:
		return s.handleInterest(ctx, session, event.Text)
	case tutor.StageAwaitingPersona:
		return s.handlePersona(ctx, session, event.Text)
	case tutor.StageTutoring:
		return s.handleTutoring(ctx, session, trigger, event)
	default:
		s.logger.WarnContext(ctx, "unknown session stage, restarting onboarding", "user_id", userID, "stage", session.Stage)
		return s.startOnboarding(ctx, userID, "unknown_stage")
	}
}

func (s *ConversationService) startOnboarding(ctx context.Context, userID, outcome string) (Reply, error) {
	if err := s.profileRepo.Delete(ctx, userID); err != nil {
		return Reply{}, fmt.Errorf("%w: delete profile: %v", ErrDependencyUnavailable, err)
	}
	if err := s.sessionRepo.Upsert(ctx, tutor.NewSession(userID, s.now().UTC())); err != nil {
		return Reply{}, fmt.Errorf("%w: create session: %v", ErrDependencyUnavailable, err)
	}

	s.recorder.ObserveEvent(string(tutor.StageAwaitingAge), outcome)
	return Reply{Text: msgWelcome, ClearMenu: true}, nil
}

func (s *ConversationService) exit(ctx context.Context, userID string) (Reply, error) {
	if err := s.sessionRepo.Delete(ctx, userID); err != nil {
		return Reply{}, fmt.Errorf("%w: delete session: %v", ErrDependencyUnavailable, err)
	}

	s.recorder.ObserveEvent(stageIdle, "exit")
	return Reply{Text: msgFarewell, ClearMenu: true}, nil
}

func (s *ConversationService) help(ctx context.Context, userID string) (Reply, error) {
	_, ok, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: get profile: %v", ErrDependencyUnavailable, err)
	}

	s.recorder.ObserveEvent(stageIdle, "help")
	if !ok {
		return Reply{Text: msgHelp, ClearMenu: true}, nil
	}
	return Reply{Text: msgHelp, Menu: tutoringMenu()}, nil
}

func (s *ConversationService) profileCommand(ctx context.Context, userID string) (Reply, error) {
	profile, ok, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: get profile: %v", ErrDependencyUnavailable, err)
	}
	if !ok {
		s.recorder.ObserveEvent(stageIdle, "profile_missing")
		return Reply{Text: msgProfileNotFoundShort, ClearMenu: true}, nil
	}

	s.recorder.ObserveEvent(stageIdle, "profile_shown")
	return Reply{
		Text: msgProfileHeader + profileSummary(profile.Age, profile.Interest, profile.Persona),
		Menu: tutoringMenu(),
	}, nil
}

func (s *ConversationService) handleAge(ctx context.Context, session tutor.Session, text string) (Reply, error) {
	stage := string(session.Stage)

	age, err := tutor.ParseAge(text)
	switch {
	case errors.Is(err, tutor.ErrAgeOutOfRange):
		s.recorder.ObserveEvent(stage, "age_out_of_range")
		return Reply{Text: msgAgeOutOfRange}, nil
	case err != nil:
		s.recorder.ObserveEvent(stage, "age_not_numeric")
		return Reply{Text: msgAgeNotNumeric}, nil
	}

	session.Draft.Age = age
	session.Stage = tutor.StageAwaitingInterest
	if err := s.saveSession(ctx, session); err != nil {
		return Reply{}, err
	}

	s.recorder.ObserveEvent(stage, "accepted")
	return Reply{Text: fmt.Sprintf(msgAgeAccepted, age), Menu: interestMenu()}, nil
}

func (s *ConversationService) handleInterest(ctx context.Context, session tutor.Session, text string) (Reply, error) {
	stage := string(session.Stage)

	session.Draft.Interest = text
	session.Stage = tutor.StageAwaitingPersona
	if err := s.saveSession(ctx, session); err != nil {
		return Reply{}, err
	}

	s.recorder.ObserveEvent(stage, "accepted")
	return Reply{Text: personaPrompt(), Menu: personaMenu()}, nil
}

func (s *ConversationService) handlePersona(ctx context.Context, session tutor.Session, text string) (Reply, error) {
	stage := string(session.Stage)

	session.Draft.Persona = text
	profile := session.Draft.Complete(session.UserID, s.now().UTC())
	if err := s.validator.StructCtx(ctx, profile); err != nil {
		s.logger.WarnContext(ctx, "incomplete onboarding draft, restarting onboarding",
			"user_id", session.UserID,
			"error", err,
		)
		return s.startOnboarding(ctx, session.UserID, "invalid_draft")
	}

	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return Reply{}, fmt.Errorf("%w: save profile: %v", ErrDependencyUnavailable, err)
	}
	session.Draft = tutor.Draft{}
	session.Stage = tutor.StageTutoring
	if err := s.saveSession(ctx, session); err != nil {
		return Reply{}, err
	}

	s.recorder.ObserveEvent(stage, "accepted")
	return Reply{
		Text: fmt.Sprintf(msgProfileReady, profileSummary(profile.Age, profile.Interest, profile.Persona)),
		Menu: tutoringMenu(),
	}, nil
}

func (s *ConversationService) handleTutoring(ctx context.Context, session tutor.Session, trigger Trigger, event Event) (Reply, error) {
	stage := string(session.Stage)

	switch trigger {
	case TriggerNewQuestion:
		s.recorder.ObserveEvent(stage, "new_question")
		return Reply{Text: msgNewQuestion, Menu: tutoringMenu()}, nil
	case TriggerChangeSettings:
		return s.startOnboarding(ctx, session.UserID, "change_settings")
	}

	profile, ok, err := s.profileRepo.GetByUserID(ctx, session.UserID)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: get profile: %v", ErrDependencyUnavailable, err)
	}

	if trigger == TriggerShowProfile {
		if !ok {
			s.recorder.ObserveEvent(stage, "profile_missing")
			return Reply{Text: msgProfileNotFound, Menu: tutoringMenu()}, nil
		}
		s.recorder.ObserveEvent(stage, "profile_shown")
		return Reply{
			Text: msgProfileHeader + profileSummary(profile.Age, profile.Interest, profile.Persona) + msgProfileSettingsHint,
			Menu: tutoringMenu(),
		}, nil
	}

	if !ok {
		s.logger.WarnContext(ctx, "tutoring session without profile", "user_id", session.UserID, "error", tutor.ErrProfileMissing)
		s.recorder.ObserveEvent(stage, "profile_missing")
		return Reply{Text: msgMeetFirst, Menu: tutoringMenu()}, nil
	}

	if event.Typing != nil {
		event.Typing(ctx)
	}

	completion, err := s.completer.Complete(ctx, tutor.Synthesize(profile, event.Text))
	if err != nil {
		s.logger.ErrorContext(ctx, "completion failed",
			"user_id", session.UserID,
			"failure_kind", tutor.FailureKindOf(err),
			"error", err,
		)
		s.recorder.ObserveEvent(stage, "completion_failed")
		return Reply{Text: msgTryAgain, Menu: tutoringMenu()}, nil
	}

	s.recorder.ObserveEvent(stage, "answered")
	return Reply{Text: completion.Text, Menu: tutoringMenu()}, nil
}

func (s *ConversationService) saveSession(ctx context.Context, session tutor.Session) error {
	session.UpdatedAt = s.now().UTC()
	if err := s.sessionRepo.Upsert(ctx, session); err != nil {
		return fmt.Errorf("%w: save session: %v", ErrDependencyUnavailable, err)
	}
	return nil
}
