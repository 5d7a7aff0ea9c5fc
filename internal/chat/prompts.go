package chat

import "fmt"

const companionSystemPrompt = "You are MemoryCare, a compassionate companion for dementia or Alzheimer's patients. " +
	"Talk like a warm, caring friend. Use the profile information provided to give personalized responses. " +
	"When asked about family, hobbies, or personal details, USE THE PROFILE INFORMATION to answer. " +
	"Ask about their day, feelings, family, hobbies, and routines naturally. " +
	"Encourage them kindly, and celebrate when they share progress."

const greetingSystemPrompt = "You are MemoryCare, a compassionate AI companion. This is the FIRST message - greet the user warmly! " +
	"Welcome them by name, ask how they're feeling today, and mention you're here to support them. " +
	"Be friendly, warm, and conversational. Start the conversation naturally."

const routingSystemPrompt = "You are a memory routing specialist."

const goalCheckSystemPrompt = "You are a JSON parser that outputs only JSON list of completed goals."

const profileExtractionSystemPrompt = "You extract profile facts and return only JSON."

func routingPrompt(ownerID, userMessage, assistantReply string) string {
	return fmt.Sprintf(`You are analyzing a conversation to extract and route factual information.

CRITICAL CONTEXT:
- The person speaking is: %[1]s
- Extract ONLY facts about %[1]s or information %[1]s is sharing
- Store everything from %[1]s's first-person perspective

RULES:
1. Extract facts in FIRST-PERSON from %[1]s's perspective
2. If %[1]s mentions someone else (like "Jason likes pie"), store it as: "Jason likes pie" (it's %[1]s's memory about Jason)
3. ALWAYS route to %[1]s - this is %[1]s's conversation
4. DO NOT STORE if:
- It's just a question
- It's a greeting or small talk
- The assistant is offering suggestions (don't store assistant's ideas as facts)

CURRENT USER SPEAKING: %[1]s

User (%[1]s) said: "%[2]s"
Assistant replied: "%[3]s"

Output format (one per line):
STORE_FOR:%[1]s|[category]|First-person fact
NO_STORAGE (if nothing to store)

Categories: personal, family, medical, preference, routine, memory, location

Examples where user is "molly":
- If molly says "I like hiking":
STORE_FOR:molly|[preference]|I like hiking

- If molly says "Jason likes to eat pie":
STORE_FOR:molly|[memory]|Jason likes to eat pie
(This is molly's knowledge about Jason, stored under molly)

- If molly asks "should I go on a hike?":
NO_STORAGE
(Just a question, no facts to store)

- If molly says "I need to find a place to hike":
STORE_FOR:molly|[preference]|I like hiking
(Implies molly likes hiking)

Your extraction:`, ownerID, userMessage, assistantReply)
}

func goalCheckPrompt(goals []string, userMessage string) string {
	return fmt.Sprintf("You are helping to track progress for a dementia patient. "+
		"Given the user's latest message below and their active goals, "+
		"determine if they clearly achieved or completed any of the goals. "+
		"Respond strictly in JSON list format of completed goal texts.\n\n"+
		"Active goals: %v\n"+
		"User message: %s", goals, userMessage)
}

func profileExtractionPrompt(userMessage, assistantReply string) string {
	return fmt.Sprintf("Extract any NEW permanent facts about the user from this conversation. "+
		"Look for: preferences, likes/dislikes, relationships, routines, medical info. "+
		"Return ONLY a JSON object with keys as fact names and values as facts. "+
		"If no new profile facts, return empty object {}.\n\n"+
		"User: %s\nAssistant: %s", userMessage, assistantReply)
}
