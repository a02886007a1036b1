package triage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const systemPrompt = `You are a support-ticket triage assistant. Reply with a single JSON object
containing the fields: category, priority, risk, confidence, draftResponse.
Category is one of Access, ServiceIncident, BillingDispute, SecurityIncident,
LegalRequest, GeneralRequest. Priority is Low, Medium, High or Critical. Risk
is Low, Medium or High. Confidence is a number between 0 and 1.`

// buildPrompt constructs the user prompt from ticket context.
func buildPrompt(input Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", input.Subject)
	fmt.Fprintf(&b, "Summary: %s\n", input.Summary)

	if len(input.Messages) > 0 {
		b.WriteString("\nConversation (oldest first):\n")
		for _, msg := range input.Messages {
			fmt.Fprintf(&b, "[%s] %s\n", msg.AuthorType, msg.Body)
		}
	}

	if len(input.Articles) > 0 {
		b.WriteString("\nRelevant knowledge articles:\n")
		for _, article := range input.Articles {
			fmt.Fprintf(&b, "## %s\n%s\n", article.Title, article.Body)
		}
	}

	b.WriteString("\nProduce the triage JSON object now.")
	return b.String()
}

// promptHash returns the hex digest of the prompt text, kept for audit
// traceability only.
func promptHash(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// estimateTokens is a cheap length-based proxy, not a real tokenizer.
func estimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}
