package prompt

import (
	"fmt"
	"strings"

	"github.com/okoval/parlo/internal/domain"
)

// Feedback builds the end-of-session feedback request from a session's
// recorded mistakes. Pure function; same inputs, same text.
func Feedback(session *domain.Session, mistakes []*domain.Mistake) string {
	byCategory := make(map[domain.Category]int)
	for _, m := range mistakes {
		byCategory[m.Category]++
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Generate comprehensive feedback for a %s level %s learner whose native language is %s.\n\n",
		session.Level, session.TargetLang, session.NativeLang)
	fmt.Fprintf(&b, "The learner had a conversation in a %q scenario.\n\n", session.Scene)

	b.WriteString("Mistake counts by category:\n")
	for _, category := range []domain.Category{
		domain.CategoryGrammar, domain.CategoryVocabulary, domain.CategorySyntax, domain.CategoryOther,
	} {
		if n := byCategory[category]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", category, n)
		}
	}

	b.WriteString("\nImportant mistakes:\n")
	important := 0
	for _, m := range mistakes {
		if m.Severity < 2 {
			continue
		}
		fmt.Fprintf(&b, "- %s -> %s (%s, severity %d)\n", m.Fragment, m.Correction, m.Category, m.Severity)
		important++
	}
	if important == 0 {
		b.WriteString("None\n")
	}

	b.WriteString(`
Provide:
1. A short overall assessment
2. 2-3 specific areas to focus on improving
3. 2-3 strengths the learner demonstrated
4. Specific practice exercises to address the errors above

Make the feedback encouraging but constructive.`)

	return b.String()
}
