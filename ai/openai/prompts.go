package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/quaerit/ai"
)

const answerSystemPrompt = "You are a helpful assistant that answers questions about a document corpus. " +
	"Use only the information in the provided documents. " +
	"If the documents don't contain enough information to answer, say so plainly."

// buildAnswerPrompt renders the question and its context passages into the
// user message for the chat model. Passages arrive most relevant first.
func buildAnswerPrompt(question string, passages []ai.Passage) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Based on the following documents, answer this question: %s\n\n", question)

	for i, passage := range passages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Document: %s\n", valueOrUnknown(passage.Source))
		fmt.Fprintf(&sb, "Author: %s\n", valueOrUnknown(passage.Author))
		fmt.Fprintf(&sb, "Date: %s\n", valueOrUnknown(passage.Date))
		fmt.Fprintf(&sb, "Content: %s", passage.Text)
	}

	sb.WriteString("\n\nAnswer the question using only information from the documents above. ")
	sb.WriteString("If the documents don't contain enough information, say so.")
	return sb.String()
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
