package usecases

import (
	"fmt"
	"strings"
)

// answerCue is the marker the prompt template ends an exchange with. The
// extractor depends on the template keeping the context block before the
// question and on this cue.
const answerCue = "Answer:"

const promptTemplate = `Answer the question based on the context below.

Context: %s

Question: %s

Provide a clear and concise answer:`

// BuildPrompt assembles the bounded instructional prompt from a question and
// already fragment-capped context parts. Pure and deterministic: the joined
// context is capped at MaxContextChars and the final prompt at
// MaxPromptChars, prefix kept in both cases.
func BuildPrompt(question string, contextParts []string) string {
	context := strings.Join(contextParts, "\n\n")
	context = truncateRunes(context, MaxContextChars)

	prompt := fmt.Sprintf(promptTemplate, context, question)
	return truncateRunes(prompt, MaxPromptChars)
}

// ExtractAnswer isolates the answer from raw generation output. Echo-back
// providers return prompt+answer concatenated, so the exact prompt prefix is
// stripped first; providers that restate the answer cue are handled by
// keeping only the suffix after its last occurrence. Never fails: if neither
// applies, the trimmed raw output is returned unchanged.
func ExtractAnswer(raw, prompt string) string {
	answer := raw
	if strings.HasPrefix(answer, prompt) {
		answer = strings.TrimSpace(answer[len(prompt):])
	}

	if idx := strings.LastIndex(answer, answerCue); idx >= 0 {
		answer = answer[idx+len(answerCue):]
	}

	return strings.TrimSpace(answer)
}
