package services

import (
	"math/rand"
	"strings"
)

// Canned replies served when the completion API is unconfigured or failing.
// Categories are routed by simple keyword match on the user's message.
var (
	demoGreetings = []string{
		"Hey! I'm Thomas, your personal assistant. How can I help you today?",
		"Hi there! Thomas here. What can I do for you?",
		"Hello! I'm Thomas. Ask me anything!",
		"Hey! Thomas at your service. What's on your mind?",
	}
	demoCoding = []string{
		"I can help with coding! Try asking about Python, JavaScript, HTML, CSS, or any programming language.",
		"Coding questions? I'm here to help! What language are you working with?",
		"I love helping with code! What are you building?",
	}
	demoGeneral = []string{
		"I'm Thomas, your AI assistant! I can help with coding, lifestyle advice, and general questions.",
		"That's an interesting question! I'd love to help you with that.",
		"I'm here to assist! What would you like to know?",
		"Great question! I'm Thomas, and I'm here to help.",
	}
	demoNews = []string{
		"📰 Latest Tech Trends (Demo Mode):\n• AI assistants are becoming more popular\n• Web development continues to evolve\n• Python remains a top programming language\n\n*Connect your API for real-time news!* - Thomas",
		"📱 Tech Update (Demo):\n• Mobile-first design is essential\n• Cloud computing growing rapidly\n• Open source projects thriving\n\n*Real news available with API key!* - Thomas",
	}

	greetingWords = []string{"hello", "hi", "hey", "howdy", "greetings"}
	codingWords   = []string{"code", "coding", "python", "javascript", "html", "css", "programming", "bug", "function"}
)

// Fallback notices appended to a canned reply, one per failure mode.
const (
	NoticeNoKey      = "\n\n *Demo Mode: Add your Perplexity API key for AI-powered responses!*"
	NoticeInvalidKey = "\n\n🔑 *Demo mode: API key was rejected, please check it*"
	NoticeTimeout    = "\n\n⏱️ *Demo mode: AI service timed out*"
	NoticeNetwork    = "\n\n🔌 *Demo mode: Network connectivity issue*"
	NoticeGeneric    = "\n\n⚠️ *Using demo mode due to API issues*"
)

// DemoReply picks a canned reply matching the user's message.
func DemoReply(userMessage string) string {
	lower := strings.ToLower(userMessage)

	if containsAny(lower, greetingWords) {
		return pick(demoGreetings)
	}
	if containsAny(lower, codingWords) {
		return pick(demoCoding)
	}
	return pick(demoGeneral)
}

// DemoNews picks a canned news blurb.
func DemoNews() string {
	return pick(demoNews)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func pick(options []string) string {
	return options[rand.Intn(len(options))]
}
