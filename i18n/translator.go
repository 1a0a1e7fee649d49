package i18n

import (
	"strings"
	"sync"
)

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "expected", "got" or "key").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator. Templates use
// {name} placeholders filled from data; placeholders without data are removed
// together with the clause that introduced them.
type dictTranslator struct{ lang string }

var dictionaries = map[string]map[string]string{
	"en": {
		"schema_definition": "invalid record declaration: {reason}",
		"required":          "required field missing",
		"invalid_type":      "expected {expected}, got {got}",
		"overflow":          "value out of range for {expected}",
		"unknown_key":       "unknown field",
		"forbidden_key":     "field is forbidden",
		"non_init_field":    "field cannot be set on construction",
		"custom":            "{reason}",
		"parse_error":       "parse error",
	},
	"ja": {
		"schema_definition": "レコード定義が不正です: {reason}",
		"required":          "必須フィールドが不足しています",
		"invalid_type":      "型が不正です ({expected} が必要ですが {got} でした)",
		"overflow":          "{expected} の範囲外です",
		"unknown_key":       "未知のフィールドです",
		"forbidden_key":     "禁止されたフィールドです",
		"non_init_field":    "構築時に設定できないフィールドです",
		"custom":            "{reason}",
		"parse_error":       "解析エラー",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	tmpl, ok := dictionaries[t.lang][code]
	if !ok {
		return code
	}
	out := fill(tmpl, data)
	if strings.TrimSpace(out) == "" {
		return code
	}
	return out
}

func fill(tmpl string, data map[string]string) string {
	if !strings.Contains(tmpl, "{") {
		return tmpl
	}
	b := &strings.Builder{}
	for {
		i := strings.IndexByte(tmpl, '{')
		if i < 0 {
			b.WriteString(tmpl)
			break
		}
		j := strings.IndexByte(tmpl[i:], '}')
		if j < 0 {
			b.WriteString(tmpl)
			break
		}
		b.WriteString(tmpl[:i])
		b.WriteString(data[tmpl[i+1:i+j]])
		tmpl = tmpl[i+j+1:]
	}
	return strings.TrimRight(strings.TrimSpace(b.String()), ":")
}

var (
	mu                sync.RWMutex
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	mu.Lock()
	currentTranslator = dictTranslator{lang: lang}
	mu.Unlock()
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	mu.Lock()
	currentTranslator = tr
	mu.Unlock()
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
