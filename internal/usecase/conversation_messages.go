package usecase

import (
	"fmt"
	"strings"

	"github.com/riskibarqy/aiqyn-learn/internal/domain/tutor"
)

const (
	msgWelcome = "🌟 Welcome to AIQYN LEARN!\n\n" +
		"I am a new-generation AI tutor. I will teach you to understand, not just hand you answers!\n\n" +
		"First, tell me about yourself:\nHow old are you? (send a number)"
	msgAgeNotNumeric = "Please send your age as a number (for example: 15)"
	msgAgeOutOfRange = "Please enter a real age (6-100)"
	msgAgeAccepted   = "Great! You are %d years old.\n\n" +
		"What are you interested in?\n" +
		"I will explain things through your hobbies!"
	msgProfileReady = "🎉 Done! Tuning the lessons for you:\n\n" +
		"%s\n\n" +
		"Now ask any question! I can help you with:\n" +
		"• Maths • Physics • Chemistry • Biology\n" +
		"• History • Programming • And much more!\n\n" +
		"💡 Example questions:\n" +
		"• Explain the Pythagorean theorem\n" +
		"• What is photosynthesis?\n" +
		"• How does electricity work?\n\n" +
		"Use the buttons below to navigate 👇"
	msgProfileHeader        = "📊 Your profile:\n\n"
	msgProfileSettingsHint  = "\n\nWant to change settings? Press '" + LabelChangeSettings + "'"
	msgProfileNotFound      = "Profile not found. Let's create a new one! " + LabelStartCommand
	msgProfileNotFoundShort = "Profile not found. Send " + LabelStartCommand + " to create a profile!"
	msgNewQuestion          = "Great! Ask a new question! 🚀\n\n" +
		"I can explain:\n• Maths • Physics • Chemistry\n• Biology • History • Programming\n• And much more!"
	msgMeetFirst = "Let's get to know each other first! Send " + LabelStartCommand
	msgTryAgain  = "Oops! Something went wrong. Please try again!"
	msgFarewell  = "See you! If you want to learn again, just send " + LabelStartCommand
	msgHelp      = "🤖 AIQYN LEARN - Help\n\n" +
		"Available commands:\n" +
		LabelStartCommand + " - Start or restart the bot\n" +
		LabelHelpCommand + " - Show this help\n" +
		LabelProfileCommand + " - Show my profile\n\n" +
		"While learning use the buttons:\n" +
		LabelNewQuestion + " - ask another question\n" +
		LabelChangeSettings + " - change your profile\n" +
		LabelMyProfile + " - view your settings\n" +
		LabelExit + " - end the session"
)

func profileSummary(age int, interest, persona string) string {
	return fmt.Sprintf("👤 Age: %d years\n❤️ Interests: %s\n🎭 Style: %s", age, interest, persona)
}

func personaPrompt() string {
	var b strings.Builder
	b.WriteString("Cool! Now choose a teacher style:\n")
	for _, persona := range tutor.Personas {
		b.WriteString("\n")
		b.WriteString(persona.Label)
		b.WriteString(" - ")
		b.WriteString(persona.Summary)
	}
	return b.String()
}
