package tutor

import (
	"time"
)

const (
	MinAge = 6
	MaxAge = 100
)

// Stage is the onboarding/tutoring step a session is currently in.
type Stage string

const (
	StageAwaitingAge      Stage = "awaiting_age"
	StageAwaitingInterest Stage = "awaiting_interest"
	StageAwaitingPersona  Stage = "awaiting_persona"
	StageTutoring         Stage = "tutoring"
)

func (s Stage) Onboarding() bool {
	switch s {
	case StageAwaitingAge, StageAwaitingInterest, StageAwaitingPersona:
		return true
	default:
		return false
	}
}

// Profile is a completed learner profile. Interest and Persona keep the raw
// text the user sent, which may be empty or match no catalog label; prompt
// synthesis falls back for both.
type Profile struct {
	UserID      string    `validate:"required"`
	Age         int       `validate:"gte=6,lte=100"`
	Interest    string    `validate:"-"`
	Persona     string    `validate:"-"`
	CompletedAt time.Time `validate:"-"`
}

// Draft collects profile fields while onboarding is in progress.
type Draft struct {
	Age      int
	Interest string
	Persona  string
}

func (d Draft) Complete(userID string, now time.Time) Profile {
	return Profile{
		UserID:      userID,
		Age:         d.Age,
		Interest:    d.Interest,
		Persona:     d.Persona,
		CompletedAt: now,
	}
}

// Session tracks the active conversation stage for one user.
type Session struct {
	UserID    string
	Stage     Stage
	Draft     Draft
	UpdatedAt time.Time
}

func NewSession(userID string, now time.Time) Session {
	return Session{
		UserID:    userID,
		Stage:     StageAwaitingAge,
		UpdatedAt: now,
	}
}
