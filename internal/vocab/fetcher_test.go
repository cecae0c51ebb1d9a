package vocab

import (
	"context"
	"testing"

	"github.com/MimeLyc/wordsub/internal/translator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

type recordingBackend struct {
	name string
	reqs []translator.Request
}

func (b *recordingBackend) Name() string { return b.name }

func (b *recordingBackend) Translate(_ context.Context, req translator.Request) (string, error) {
	b.reqs = append(b.reqs, req)
	return b.name + ":" + req.Word, nil
}

func TestBackendFetcher(t *testing.T) {
	first := &recordingBackend{name: "first"}
	f := NewBackendFetcher(first, language.Spanish, language.English)

	got, err := f.Fetch(context.Background(), "hola", "Hola, mundo")
	require.NoError(t, err)
	assert.Equal(t, "first:hola", got)
	require.Len(t, first.reqs, 1)
	assert.Equal(t, translator.Request{
		Word:     "hola",
		Sentence: "Hola, mundo",
		Source:   language.Spanish,
		Target:   language.English,
	}, first.reqs[0])

	f.SetTarget(language.French)
	f.SetSource(language.Italian)
	source, target := f.Languages()
	assert.Equal(t, language.Italian, source)
	assert.Equal(t, language.French, target)

	second := &recordingBackend{name: "second"}
	f.SetBackend(second)
	assert.Same(t, second, f.Backend())

	got, err = f.Fetch(context.Background(), "ciao", "")
	require.NoError(t, err)
	assert.Equal(t, "second:ciao", got)
	assert.Len(t, first.reqs, 1)
	assert.Equal(t, language.French, second.reqs[0].Target)
}
