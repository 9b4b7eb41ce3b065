// Package prompt builds the scene-specific system instruction that governs
// the generation service's behavior for one session.
package prompt

import (
	"fmt"
	"strings"

	"github.com/okoval/parlo/internal/domain"
)

// Build produces the system prompt for a scene, target/native language pair
// and proficiency level. It is a pure function of its inputs: same inputs
// always yield the same text. Fails with domain.ErrUnknownScene when the
// scene is outside the supported catalog.
func Build(scene domain.Scene, targetLang, nativeLang string, level domain.Level) (string, error) {
	description, ok := domain.SceneDescriptions[scene]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownScene, scene)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "You are an AI language tutor helping someone learn %s.\n", targetLang)
	fmt.Fprintf(&b, "Their native language is %s and their level is %s.\n\n", nativeLang, level)
	fmt.Fprintf(&b, "Scene: %s\n\n", description)
	fmt.Fprintf(&b, "You play the role of a native %s speaker in this scene.\n\n", targetLang)

	b.WriteString("Guidelines:\n")
	fmt.Fprintf(&b, "1. Speak only in %s, switching to %s only to clarify something the learner did not understand.\n", targetLang, nativeLang)
	b.WriteString(levelDirective(level, targetLang, nativeLang))
	b.WriteString("3. Be patient, encouraging, and keep the conversation natural and engaging within the scene.\n")
	b.WriteString("4. Every turn, silently check the learner's last message for grammar, vocabulary and sentence-structure mistakes.\n\n")

	b.WriteString("Reporting corrections:\n")
	fmt.Fprintf(&b, "After your conversational reply, if the learner's last message contained mistakes, append a line containing exactly %q followed by one line per mistake in the form:\n", domain.CorrectionsMarker)
	fmt.Fprintf(&b, "fragment%scorrection%scategory%sseverity\n",
		domain.CorrectionSeparator, domain.CorrectionSeparator, domain.CorrectionSeparator)
	b.WriteString("where category is one of grammar, vocabulary, syntax, other and severity is 1 (minor) to 3 (critical). ")
	b.WriteString("If the learner made no mistakes, omit the marker and the block entirely.\n\n")

	fmt.Fprintf(&b, "Begin the conversation in %s, introducing yourself according to the scene and asking a question to engage the learner.\n", targetLang)

	return b.String(), nil
}

func levelDirective(level domain.Level, targetLang, nativeLang string) string {
	switch level {
	case domain.LevelBeginner:
		return fmt.Sprintf("2. Use simple phrases and short sentences, and provide %s translations when needed.\n", nativeLang)
	case domain.LevelIntermediate:
		return "2. Use everyday language, occasionally glossing difficult words.\n"
	default:
		return fmt.Sprintf("2. Use natural, native-like %s with occasional challenging vocabulary.\n", targetLang)
	}
}
