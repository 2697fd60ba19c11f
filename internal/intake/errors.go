package intake

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrEmptyText        = errors.New("text is empty")
	ErrTooManyWords     = errors.New("text has too many words")
	ErrRateLimited      = errors.New("submitted too soon")
	ErrNotTextFile      = errors.New("only .txt files are accepted")
	ErrDocumentTooLarge = errors.New("document is too large")
)

// TooManyWordsError reports the configured limit alongside the submitted count
type TooManyWordsError struct {
	Max   int
	Words int
}

func (e *TooManyWordsError) Error() string {
	return fmt.Sprintf("%s: %d > %d", ErrTooManyWords, e.Words, e.Max)
}

func (e *TooManyWordsError) Is(target error) bool {
	return target == ErrTooManyWords
}

// RateLimitError reports how long the user must wait before the next submission
type RateLimitError struct {
	Interval time.Duration
	Wait     time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry in %ds", ErrRateLimited, e.WaitSeconds())
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// WaitSeconds rounds the remaining wait up to whole seconds
func (e *RateLimitError) WaitSeconds() int {
	return int(math.Ceil(e.Wait.Seconds()))
}
