package domain

import "strings"

// Language is a translation target the bot offers.
type Language struct {
	Code string
	Name string
}

// Languages lists supported targets in keyboard order. "auto" is a source-only code.
var Languages = []Language{
	{"en", "English"},
	{"es", "Spanish"},
	{"fr", "French"},
	{"de", "German"},
	{"it", "Italian"},
	{"pt", "Portuguese"},
	{"ru", "Russian"},
	{"ja", "Japanese"},
	{"ko", "Korean"},
	{"zh", "Chinese"},
	{"ar", "Arabic"},
	{"hi", "Hindi"},
}

// PopularLanguages is the short list offered when a target could not be resolved.
var PopularLanguages = []string{"en", "es", "zh", "ja", "ru", "de", "it", "hi"}

// LanguageName returns the display name for a code, or the code itself.
func LanguageName(code string) string {
	if code == "auto" {
		return "Auto Detect"
	}
	for _, l := range Languages {
		if l.Code == code {
			return l.Name
		}
	}
	return code
}

// ResolveLanguage matches a code ("de"), a name ("german") or a name prefix ("ger").
func ResolveLanguage(input string) (string, bool) {
	in := strings.ToLower(strings.TrimSpace(input))
	if in == "" {
		return "", false
	}
	for _, l := range Languages {
		if l.Code == in || strings.ToLower(l.Name) == in {
			return l.Code, true
		}
	}
	if len(in) >= 3 {
		for _, l := range Languages {
			if strings.HasPrefix(strings.ToLower(l.Name), in) {
				return l.Code, true
			}
		}
	}
	if len(in) >= 2 {
		for _, l := range Languages {
			if l.Code == in[:2] {
				return l.Code, true
			}
		}
	}
	return "", false
}
