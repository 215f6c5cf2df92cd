// Package i18n provides internationalization support for error messages.
package i18n

import (
	"bytes"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/language"
)

// BaseLocale is the locale used when no registered catalog matches.
const BaseLocale = "en-US"

// Code is a machine-readable error code (duplicated from errors package to avoid cycle).
type Code = string

// Catalog maps error codes to message templates for a specific locale.
type Catalog struct {
	locale   string
	messages map[Code]string
}

var (
	catalogsMu sync.RWMutex
	catalogs   = map[string]*Catalog{}
	// tags lists registered locales in registration order; the matcher is
	// rebuilt whenever it changes.
	tags    []language.Tag
	locales []string
	matcher language.Matcher
)

func init() {
	RegisterCatalog(BaseLocale, NewCatalog(BaseLocale, enUSMessages))
	RegisterCatalog("pt-BR", NewCatalog("pt-BR", ptBRMessages))
}

// GetCatalog returns the catalog that best serves locale, which may be a
// single tag or an Accept-Language header value.
// Falls back to en-US if nothing matches.
func GetCatalog(locale string) *Catalog {
	requested := strings.TrimSpace(locale)
	if requested == "" {
		requested = BaseLocale
	}

	catalogsMu.RLock()
	defer catalogsMu.RUnlock()

	if c, ok := catalogs[requested]; ok {
		return c
	}
	if matched, ok := matchLocale(requested); ok {
		return catalogs[matched]
	}
	return catalogs[BaseLocale]
}

// ResolveLocale returns the registered locale that best serves the request.
func ResolveLocale(locale string) string {
	return GetCatalog(locale).Locale()
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message template with the given metadata.
// Falls back to the error code itself if no template is found.
// Templates are always executed even with nil/empty metadata to ensure
// consistent output (template variables without metadata render as empty).
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	tmpl, ok := c.messages[code]
	if !ok {
		return code
	}

	if metadata == nil {
		metadata = map[string]string{}
	}

	t, err := template.New("msg").Parse(tmpl)
	if err != nil {
		return tmpl
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, metadata); err != nil {
		return tmpl
	}
	return buf.String()
}

// RegisterCatalog registers a catalog for the given locale and makes it
// available to Accept-Language matching when the locale is a valid BCP 47 tag.
func RegisterCatalog(locale string, cat *Catalog) {
	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	if _, exists := catalogs[locale]; !exists {
		if tag, err := language.Parse(locale); err == nil {
			tags = append(tags, tag)
			locales = append(locales, locale)
			matcher = language.NewMatcher(tags)
		}
	}
	catalogs[locale] = cat
}

// NewCatalog creates a new catalog with the given locale and messages.
func NewCatalog(locale string, messages map[Code]string) *Catalog {
	cloned := make(map[Code]string, len(messages))
	for key, value := range messages {
		cloned[key] = value
	}
	return &Catalog{
		locale:   locale,
		messages: cloned,
	}
}

// matchLocale must be called with catalogsMu held.
func matchLocale(requested string) (string, bool) {
	if matcher == nil {
		return "", false
	}
	desired, _, err := language.ParseAcceptLanguage(requested)
	if err != nil || len(desired) == 0 {
		return "", false
	}
	_, index, confidence := matcher.Match(desired...)
	if confidence == language.No || index < 0 || index >= len(locales) {
		return "", false
	}
	return locales[index], true
}
