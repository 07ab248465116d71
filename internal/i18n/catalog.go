package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Translations is one language's message tree
type Translations struct {
	lang     string
	messages map[string]any
}

// Lang returns the language tag the translations were loaded for
func (t *Translations) Lang() string {
	return t.lang
}

// Get resolves a dotted key such as "login.invalid_credentials". A missing
// key or a key naming a subtree returns the key itself.
func (t *Translations) Get(key string) string {
	var node any = t.messages
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return key
		}
		if node, ok = m[part]; !ok {
			return key
		}
	}

	if s, ok := node.(string); ok {
		return s
	}
	return key
}

// Catalog holds every loaded language and negotiates between them
type Catalog struct {
	defaultLang string
	byLang      map[string]*Translations
	supported   []language.Tag
	matcher     language.Matcher
}

// NewCatalog loads the embedded locale files
func NewCatalog(defaultLang string) (*Catalog, error) {
	sub, err := fs.Sub(localeFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded locales: %w", err)
	}
	return LoadCatalog(sub, defaultLang)
}

// LoadCatalog reads every <lang>.yaml at the root of fsys. Empty files are
// skipped so requests for that language fall back to defaultLang.
func LoadCatalog(fsys fs.FS, defaultLang string) (*Catalog, error) {
	files, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to list locale files: %w", err)
	}
	sort.Strings(files)

	c := &Catalog{
		defaultLang: defaultLang,
		byLang:      make(map[string]*Translations),
	}

	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		messages := map[string]any{}
		if err := yaml.Unmarshal(data, &messages); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		if len(messages) == 0 {
			continue
		}

		lang := strings.TrimSuffix(path.Base(name), ".yaml")
		c.byLang[lang] = &Translations{lang: lang, messages: messages}
	}

	if _, ok := c.byLang[defaultLang]; !ok {
		return nil, fmt.Errorf("default locale %q not found or empty", defaultLang)
	}

	// The default goes first so the matcher falls back to it
	c.supported = append(c.supported, language.Make(defaultLang))
	for lang := range c.byLang {
		if lang != defaultLang {
			c.supported = append(c.supported, language.Make(lang))
		}
	}
	c.matcher = language.NewMatcher(c.supported)

	return c, nil
}

// Default returns the default language's translations
func (c *Catalog) Default() *Translations {
	return c.byLang[c.defaultLang]
}

// Resolve picks translations for an Accept-Language value or a bare tag.
// Unknown, unparsable or empty input yields the default language.
func (c *Catalog) Resolve(locale string) *Translations {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return c.Default()
	}

	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return c.Default()
	}

	_, idx, confidence := c.matcher.Match(tags...)
	if confidence == language.No {
		return c.Default()
	}

	base, _ := c.supported[idx].Base()
	if t, ok := c.byLang[base.String()]; ok {
		return t
	}
	return c.Default()
}

// Languages lists the loaded languages
func (c *Catalog) Languages() []string {
	langs := make([]string, 0, len(c.byLang))
	for lang := range c.byLang {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
