// Package i18n provides the bilingual string lookup used by the widget
// chrome, alerts, and toasts. Lookup is total: a key absent from the active
// language table falls back to the default-language table, and a key absent
// from both falls back to the raw key string. It never fails and never
// returns an empty string for a non-empty key.
package i18n

import "sync"

// DefaultLanguage is the fallback language tag.
const DefaultLanguage = "en"

// Translator resolves display strings by key for a configured language.
// It is safe for concurrent use; the language can be switched at runtime
// when the user changes their preference.
type Translator struct {
	mu   sync.RWMutex
	lang string
}

// New creates a Translator for the given language tag. Unknown tags are kept
// as-is; lookups simply fall through to the default language.
func New(lang string) *Translator {
	if lang == "" {
		lang = DefaultLanguage
	}
	return &Translator{lang: lang}
}

// Language returns the currently configured language tag.
func (t *Translator) Language() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lang
}

// SetLanguage switches the active language.
func (t *Translator) SetLanguage(lang string) {
	if lang == "" {
		lang = DefaultLanguage
	}
	t.mu.Lock()
	t.lang = lang
	t.mu.Unlock()
}

// T resolves a key: active language, then default language, then the key
// itself.
func (t *Translator) T(key string) string {
	return Lookup(t.Language(), key)
}

// Lookup resolves a key for an explicit language tag using the same fallback
// chain as T.
func Lookup(lang, key string) string {
	if table, ok := tables[lang]; ok {
		if s, ok := table[key]; ok {
			return s
		}
	}
	if s, ok := tables[DefaultLanguage][key]; ok {
		return s
	}
	return key
}
