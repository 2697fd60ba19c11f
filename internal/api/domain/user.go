package domain

// DefaultLanguage is assigned to users on first contact
const DefaultLanguage = "fa"

// User is a chat user known to the bot. Optional preferences are nil when unset.
type User struct {
	ID                int64
	FullName          string
	Username          string
	Language          string
	Instructions      *string
	PreferredProvider *string
}
