package usecase

import (
	"context"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/riskibarqy/aiqyn-learn/internal/domain/tutor"
)

// Event is one inbound text message from the chat transport.
type Event struct {
	UserID string
	Text   string
	// Typing, when set, is called right before a completion request so the
	// transport can show a typing indicator.
	Typing func(ctx context.Context)
}

// Menu is an ordered grid of button labels.
type Menu struct {
	Rows    [][]string
	OneTime bool
}

// Reply is the outbound response for one event. A nil Menu leaves the
// current menu untouched unless ClearMenu is set.
type Reply struct {
	Text      string
	Menu      *Menu
	ClearMenu bool
}

func (r Reply) Empty() bool {
	return strings.TrimSpace(r.Text) == ""
}

const (
	LabelStartCommand   = "/start"
	LabelCancelCommand  = "/cancel"
	LabelHelpCommand    = "/help"
	LabelProfileCommand = "/profile"
	LabelStartOver      = "🔄 Start over"
	LabelExit           = "🚪 Exit"
	LabelNewQuestion    = "🔄 New question"
	LabelChangeSettings = "⚙️ Change settings"
	LabelMyProfile      = "📊 My profile"
)

// Trigger is the semantic meaning of a reserved control phrase.
type Trigger string

const (
	TriggerNone           Trigger = ""
	TriggerRestart        Trigger = "restart"
	TriggerExit           Trigger = "exit"
	TriggerNewQuestion    Trigger = "new_question"
	TriggerChangeSettings Trigger = "change_settings"
	TriggerShowProfile    Trigger = "show_profile"
	TriggerProfileCommand Trigger = "profile_command"
	TriggerHelp           Trigger = "help"
)

var triggerByLabel = map[string]Trigger{
	LabelStartCommand:   TriggerRestart,
	LabelStartOver:      TriggerRestart,
	LabelCancelCommand:  TriggerExit,
	LabelExit:           TriggerExit,
	LabelNewQuestion:    TriggerNewQuestion,
	LabelChangeSettings: TriggerChangeSettings,
	LabelMyProfile:      TriggerShowProfile,
	LabelProfileCommand: TriggerProfileCommand,
	LabelHelpCommand:    TriggerHelp,
}

// ParseTrigger maps text to a control trigger. Anything else is TriggerNone.
// Bot commands match on their first word, so "/start ref123" and
// "/start@SomeBot" both restart.
func ParseTrigger(text string) Trigger {
	label := strings.TrimSpace(text)
	if strings.HasPrefix(label, "/") {
		if end := strings.IndexFunc(label, unicode.IsSpace); end > 0 {
			label = label[:end]
		}
		if at := strings.IndexByte(label, '@'); at > 0 {
			label = label[:at]
		}
	}
	return triggerByLabel[label]
}

func interestMenu() *Menu {
	rows := lo.Chunk(tutor.InterestLabels(), 2)
	rows = append(rows, []string{LabelStartOver})
	return &Menu{Rows: rows, OneTime: true}
}

func personaMenu() *Menu {
	rows := lo.Chunk(tutor.PersonaLabels(), 2)
	rows = append(rows, []string{LabelStartOver})
	return &Menu{Rows: rows, OneTime: true}
}

func tutoringMenu() *Menu {
	return &Menu{
		Rows: [][]string{
			{LabelNewQuestion, LabelChangeSettings},
			{LabelMyProfile, LabelExit},
		},
	}
}
