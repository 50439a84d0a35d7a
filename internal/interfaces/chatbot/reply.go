package chatbot

import (
	"github.com/riskibarqy/aiqyn-learn/external/telegram"
	"github.com/riskibarqy/aiqyn-learn/internal/usecase"
)

// Telegram rejects messages longer than this many characters.
const maxMessageRunes = 4096

func replyMarkup(reply usecase.Reply) any {
	switch {
	case reply.Menu != nil:
		return telegram.NewKeyboard(reply.Menu.Rows, reply.Menu.OneTime)
	case reply.ClearMenu:
		return &telegram.ReplyKeyboardRemove{RemoveKeyboard: true}
	default:
		return nil
	}
}

// splitMessage cuts text into chunks of at most limit runes, preferring to
// break after a newline.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	chunks := make([]string, 0, len(runes)/limit+1)
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
