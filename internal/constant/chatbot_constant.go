package constant

const (
	// Persona for plain chat. Fixed; never taken from user input.
	ChatSystemPrompt = "You are a helpful AI assistant. Provide clear, concise, and engaging responses. Be conversational but informative. If you're unsure about something, acknowledge it."

	ChatTemperature = 0.7
	ChatMaxTokens   = 1000

	// Stuff-style prompt for document questions. %s: context, then question.
	DocumentQAPromptTemplate = `Use the following context from the PDF to answer the question. If you don't know the answer based on the context, say so clearly.

Context: %s

Question: %s

Answer:`

	// Separator between chunks placed in DocumentQAPromptTemplate
	DocumentContextSeparator = "\n\n"

	// Length of the source snippets returned with document replies
	DocumentSnippetLength = 200
)
