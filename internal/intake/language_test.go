package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "سلام دنیا", want: "fa"},
		{text: "Hello world", want: "en"},
		{text: "Hello سلام", want: "fa"},
		{text: "12345 !?", want: "fa"},
		{text: "", want: "fa"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.text))
		})
	}
}
