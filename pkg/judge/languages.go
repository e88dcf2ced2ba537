package judge

import "strings"

// Language identifiers used by the judge service.
const (
	LangPython     = 71
	LangJavaScript = 63
	LangJava       = 62
	LangCPP        = 54
	LangC          = 50
	LangGo         = 60
	LangTypeScript = 74
)

// SupportedLanguages lists the language names accepted for submissions and
// code templates.
var SupportedLanguages = []string{"python", "javascript", "java", "c++", "c", "go", "typescript"}

// LanguageID maps a language name to the judge's numeric id. Matching is
// case-insensitive and accepts common short forms. Unrecognised names fall
// back to Python.
//
// TODO: surface an error for unrecognised languages instead of silently
// judging them as Python; callers currently depend on the fallback.
func LanguageID(language string) int {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "python", "py":
		return LangPython
	case "java":
		return LangJava
	case "cpp", "c++":
		return LangCPP
	case "c":
		return LangC
	case "javascript", "js":
		return LangJavaScript
	case "go":
		return LangGo
	case "typescript", "ts":
		return LangTypeScript
	default:
		return LangPython
	}
}

// LanguageName maps a judge language id back to a display name.
func LanguageName(id int) string {
	switch id {
	case LangPython:
		return "Python"
	case LangJavaScript:
		return "JavaScript"
	case LangJava:
		return "Java"
	case LangCPP:
		return "C++"
	case LangC:
		return "C"
	case LangGo:
		return "Go"
	case LangTypeScript:
		return "TypeScript"
	default:
		return "Unknown"
	}
}

// SupportedLanguage reports whether the name resolves to a language without
// relying on the Python fallback.
func SupportedLanguage(language string) bool {
	name := strings.ToLower(strings.TrimSpace(language))
	switch name {
	case "python", "py", "java", "cpp", "c++", "c", "javascript", "js", "go", "typescript", "ts":
		return true
	default:
		return false
	}
}
