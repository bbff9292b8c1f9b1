// Package normalize provides utilities for normalizing joke filter values.
package normalize

import (
	"strings"

	"golang.org/x/text/language"
)

// languageNames maps common English language names to ISO 639-1 codes.
// BCP 47 parsing handles everything else.
//
//nolint:gochecknoglobals // Static lookup table for language normalization
var languageNames = map[string]string{
	"english": "en", "spanish": "es", "french": "fr", "german": "de",
	"italian": "it", "portuguese": "pt", "dutch": "nl", "russian": "ru",
	"japanese": "ja", "chinese": "zh", "korean": "ko", "arabic": "ar",
	"hindi": "hi", "polish": "pl", "swedish": "sv", "norwegian": "no",
	"danish": "da", "finnish": "fi", "turkish": "tr", "greek": "el",
	"hebrew": "he", "czech": "cs", "hungarian": "hu", "romanian": "ro",
	"ukrainian": "uk", "vietnamese": "vi", "indonesian": "id", "thai": "th",
}

// Language normalizes a language identifier to its ISO 639-1 base code.
// Accepts ISO 639-1 codes ("en"), BCP 47 tags ("en-US", "pt_BR"),
// ISO 639-2 codes ("deu"), and common English names ("german").
// Returns "" for unrecognized input so callers can treat it as "no filter".
func Language(input string) string {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return ""
	}

	if code, ok := languageNames[input]; ok {
		return code
	}

	// BCP 47 uses hyphens; tolerate underscore variants like "pt_BR".
	tag, err := language.Parse(strings.ReplaceAll(input, "_", "-"))
	if err != nil {
		return ""
	}

	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}

// Tag lowercases and trims a free-form tag value (style, topic, tone, format).
func Tag(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}
