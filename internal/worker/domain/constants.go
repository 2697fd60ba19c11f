package domain

// Job status constants
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusError      = "error"
)

const (
	// MaxMessageLength leaves headroom under the chat transport's 4096 character limit
	MaxMessageLength = 4000

	// ErrorExcerptLength bounds the error text shown to users
	ErrorExcerptLength = 300
)

// IsTerminal reports whether status is final
func IsTerminal(status string) bool {
	return status == JobStatusDone || status == JobStatusError
}
