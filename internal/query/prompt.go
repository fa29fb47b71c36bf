package query

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hoaworks/guardian/internal/vecstore"
)

// maxContextChars bounds the passage text included in one prompt.
const maxContextChars = 6000

const systemPrompt = `You answer questions about an organization's bylaws using only the numbered passages supplied by the user.

Rules:
- Base the answer strictly on the supplied passages. Do not use outside knowledge.
- If the passages do not contain enough information to answer, say so plainly instead of guessing.
- Reference passages by their number, e.g. "According to passage [2]".
- The answer is informational only and is not legal advice; note this when the question asks for a judgment call.`

// buildPrompt assembles the grounding prompt from the retrieved passages,
// in the order they were retrieved (similarity descending, ordinal
// ascending on ties). The context is truncated at a character budget so
// one oversized passage cannot crowd out the question.
func buildPrompt(question string, scored []*vecstore.ScoredChunk) (system, user string) {
	var b strings.Builder
	b.WriteString("Passages from the bylaws:\n\n")

	used := 0
	for i, sc := range scored {
		text := sc.Chunk.Text
		if used+len(text) > maxContextChars {
			remaining := maxContextChars - used
			// Never truncate inside a multi-byte character.
			for remaining > 0 && !utf8.RuneStart(text[remaining]) {
				remaining--
			}
			if remaining <= 0 {
				break
			}
			text = text[:remaining]
		}
		used += len(text)

		fmt.Fprintf(&b, "[%d]", i+1)
		if sc.Chunk.Section != "" {
			fmt.Fprintf(&b, " (%s)", sc.Chunk.Section)
		}
		b.WriteString("\n")
		b.WriteString(text)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Question: %s", question)
	return systemPrompt, b.String()
}
