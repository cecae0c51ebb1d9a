package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MimeLyc/wordsub/internal/media"
	"github.com/MimeLyc/wordsub/internal/playback"
	"github.com/MimeLyc/wordsub/internal/tracks"
	"github.com/MimeLyc/wordsub/pkg/log"
)

type ErrorType int

const (
	ErrParse ErrorType = iota
	ErrExtraction
	ErrTranslation
	ErrPersistence
	ErrDependency
	ErrConfig
	ErrPlayback
	ErrUnknown
)

type WordsubError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *WordsubError {
	return &WordsubError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *WordsubError {
	return &WordsubError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *WordsubError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		var ctxParts []string
		for k, v := range e.Context {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *WordsubError) Unwrap() error {
	return e.Cause
}

func (e *WordsubError) WithContext(key string, value any) *WordsubError {
	e.Context[key] = value
	return e
}

func (t ErrorType) String() string {
	switch t {
	case ErrParse:
		return "Parse"
	case ErrExtraction:
		return "Extraction"
	case ErrTranslation:
		return "Translation"
	case ErrPersistence:
		return "Persistence"
	case ErrDependency:
		return "Dependency"
	case ErrConfig:
		return "Config"
	case ErrPlayback:
		return "Playback"
	default:
		return "Unknown"
	}
}

// Advice is a short hint for the viewer about how to recover from err.
func Advice(err error) string {
	var wsErr *WordsubError
	if !errors.As(err, &wsErr) {
		return "Check the log for details"
	}
	switch wsErr.Type {
	case ErrParse:
		return "The subtitle file has malformed blocks; the rest were loaded"
	case ErrExtraction:
		return "Pick another track or load an external .srt file"
	case ErrTranslation:
		return "Check that the translation service is reachable and the model is available"
	case ErrPersistence:
		return "Check that the vocabulary file is writable"
	case ErrDependency:
		return "Install ffmpeg and ffprobe and make sure they are on PATH"
	case ErrConfig:
		return "Check the environment variables and the settings file"
	case ErrPlayback:
		return "Check that the player is running and a media file is loaded"
	default:
		return "Check the log for details"
	}
}

// Classify maps errors from the engine packages onto the taxonomy.
func Classify(err error) ErrorType {
	var wsErr *WordsubError
	switch {
	case err == nil:
		return ErrUnknown
	case errors.As(err, &wsErr):
		return wsErr.Type
	case errors.Is(err, media.ErrToolMissing):
		return ErrDependency
	case errors.Is(err, media.ErrEmptyOutput), errors.Is(err, media.ErrUnsupportedCodec),
		errors.Is(err, tracks.ErrBusy), errors.Is(err, tracks.ErrNoSelection):
		return ErrExtraction
	case errors.Is(err, playback.ErrNoMedia):
		return ErrPlayback
	default:
		return ErrUnknown
	}
}

// Report logs err with its advice and returns it unchanged.
func Report(err error) error {
	if err == nil {
		return nil
	}
	log.Error("%v (%s)", err, Advice(err))
	return err
}

func IsErrorType(err error, errorType ErrorType) bool {
	var wsErr *WordsubError
	if errors.As(err, &wsErr) {
		return wsErr.Type == errorType
	}
	return false
}

func WrapError(err error, errorType ErrorType, message string) *WordsubError {
	return NewErrorWithCause(errorType, message, err)
}

func SafeExecute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(ErrUnknown, fmt.Sprintf("runtime error: %v", r))
		}
	}()

	return fn()
}
