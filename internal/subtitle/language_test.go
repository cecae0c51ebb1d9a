package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestDetectLanguage(t *testing.T) {
	entries := []Entry{
		{Text: "Hello, world!"},
		{Text: "こんにちは、世界!"},
		{Text: "こんにちは、世界!"},
		{Text: "Привет, мир!"},
		{Text: ""},
	}
	assert.Equal(t, language.Japanese, DetectLanguage(entries))
}

func TestDetectLanguage_NothingToDetect(t *testing.T) {
	assert.Equal(t, language.Und, DetectLanguage(nil))
	assert.Equal(t, language.Und, DetectLanguage([]Entry{{Text: ""}}))
}
