package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrEmptyTranslation is returned when the backend answers with nothing usable.
var ErrEmptyTranslation = errors.New("backend returned an empty translation")

// Request asks for the translation of a single word.
type Request struct {
	Word     string
	Sentence string // line the word was taken from, may be empty
	Source   language.Tag
	Target   language.Tag
}

// Backend translates single words. Implementations must be safe for
// concurrent use.
type Backend interface {
	Name() string
	Translate(ctx context.Context, req Request) (string, error)
}

const systemPrompt = "You are a concise bilingual dictionary. Answer with the translation only."

// LanguageName renders tag as an English language name, e.g. "Spanish".
func LanguageName(tag language.Tag) string {
	if tag == language.Und {
		return "the original language"
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return tag.String()
}

// BuildPrompt renders the user prompt for req.
func BuildPrompt(req Request) string {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Translate the %s word '%s' to %s.", LanguageName(req.Source), req.Word, LanguageName(req.Target))
	if s := strings.TrimSpace(req.Sentence); s != "" {
		fmt.Fprintf(&prompt, " It appears in the line: \"%s\".", s)
	}
	prompt.WriteString(" Provide only the translated word or a short phrase.")
	return prompt.String()
}

// CleanResponse keeps the first non-empty line of a reply and strips
// wrapping quotes.
func CleanResponse(reply string) (string, error) {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		line = strings.Trim(line, "\"'`“”")
		line = strings.TrimSpace(line)
		if line != "" {
			return line, nil
		}
	}
	return "", ErrEmptyTranslation
}
