package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Runtime setting keys
const (
	SettingRateLimitSeconds = "rate_limit_seconds"
	SettingMaxWords         = "max_words"
	SettingAllowedLanguages = "allowed_languages"
	SettingDefaultProvider  = "default_provider"
)

// Setting defaults
const (
	DefaultRateLimitSeconds = 30
	DefaultMaxWords         = 5000
	DefaultAllowedLanguages = "fa,en,ar"
	DefaultProvider         = "openai"
)

var (
	ErrUnknownSetting      = errors.New("unknown setting")
	ErrInvalidSettingValue = errors.New("invalid setting value")
)

// SettingSpec describes one editable setting
type SettingSpec struct {
	Key     string
	Default string
	EnvVar  string
}

// Settings lists every editable setting in display order
var Settings = []SettingSpec{
	{Key: SettingRateLimitSeconds, Default: strconv.Itoa(DefaultRateLimitSeconds), EnvVar: "RATE_LIMIT_SECONDS"},
	{Key: SettingMaxWords, Default: strconv.Itoa(DefaultMaxWords), EnvVar: "MAX_WORDS"},
	{Key: SettingAllowedLanguages, Default: DefaultAllowedLanguages, EnvVar: "ALLOWED_LANGUAGES"},
	{Key: SettingDefaultProvider, Default: DefaultProvider, EnvVar: "DEFAULT_PROVIDER"},
}

// LookupSetting returns the spec for key
func LookupSetting(key string) (SettingSpec, bool) {
	for _, s := range Settings {
		if s.Key == key {
			return s, true
		}
	}
	return SettingSpec{}, false
}

// NormalizeSetting validates value for key and returns its canonical form
func NormalizeSetting(key, value string) (string, error) {
	if _, ok := LookupSetting(key); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSetting, key)
	}

	value = strings.TrimSpace(value)

	switch key {
	case SettingRateLimitSeconds:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return "", fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidSettingValue, key)
		}
		return strconv.Itoa(n), nil

	case SettingMaxWords:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("%w: %s must be a positive integer", ErrInvalidSettingValue, key)
		}
		return strconv.Itoa(n), nil

	case SettingAllowedLanguages:
		langs := SplitLanguages(value)
		if len(langs) == 0 {
			return "", fmt.Errorf("%w: %s must list at least one language", ErrInvalidSettingValue, key)
		}
		return strings.Join(langs, ","), nil

	case SettingDefaultProvider:
		v := strings.ToLower(value)
		if v != "openai" && v != "gemini" {
			return "", fmt.Errorf("%w: %s must be openai or gemini", ErrInvalidSettingValue, key)
		}
		return v, nil
	}

	return value, nil
}

// SplitLanguages parses a comma separated language list, dropping blanks and duplicates
func SplitLanguages(raw string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		lang := strings.ToLower(strings.TrimSpace(part))
		if lang == "" || seen[lang] {
			continue
		}
		seen[lang] = true
		out = append(out, lang)
	}
	return out
}
