package device

import (
	"os"
	"strings"
	"time"
)

// Locale supplies time zone and language lookups.
type Locale struct {
	Getenv func(string) string
	Now    func() time.Time
}

// SystemLocale reads the process environment and clock.
func SystemLocale() Locale {
	return Locale{Getenv: os.Getenv, Now: time.Now}
}

// TimeZone returns $TZ when set, else the local zone abbreviation.
func (l Locale) TimeZone() string {
	if tz := strings.TrimPrefix(l.Getenv("TZ"), ":"); tz != "" {
		return tz
	}
	name, _ := l.Now().Zone()
	return name
}

// TimeZoneOffset returns the UTC offset in hours.
func (l Locale) TimeZoneOffset() float64 {
	_, offset := l.Now().Zone()
	return float64(offset) / 3600
}

// LanguageCode returns the lowercase two-letter language from LC_ALL,
// LC_MESSAGES or LANG, in that order. The C and POSIX locales map to "en".
func (l Locale) LanguageCode() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := l.Getenv(key)
		if v == "" {
			continue
		}
		if v == "C" || v == "POSIX" || strings.HasPrefix(v, "C.") {
			return "en"
		}
		lang, _, _ := strings.Cut(v, "_")
		lang, _, _ = strings.Cut(lang, ".")
		lang = strings.ToLower(lang)
		if len(lang) >= 2 {
			return lang[:2]
		}
	}
	return "en"
}
