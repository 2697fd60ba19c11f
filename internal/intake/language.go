package intake

// DetectLanguage returns "fa" for text containing Arabic-script letters, "en"
// for Latin letters, and "fa" otherwise
func DetectLanguage(text string) string {
	hasLatin := false
	for _, r := range text {
		switch {
		case r >= 0x0600 && r <= 0x06FF:
			return "fa"
		case (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z'):
			hasLatin = true
		}
	}
	if hasLatin {
		return "en"
	}
	return "fa"
}
