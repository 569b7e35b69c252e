// Package texts holds the bot's user-facing strings, one YAML file per language.
package texts

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var locales embed.FS

// Args fills {name} placeholders.
type Args = map[string]any

// Catalog resolves keys per language with fallback to the default language.
type Catalog struct {
	defaultLang string
	messages    map[string]map[string]string
}

// Load reads the embedded locales.
func Load(defaultLang string) (*Catalog, error) {
	return LoadFS(locales, "locales", defaultLang)
}

// LoadFS reads every <lang>.yaml under dir.
func LoadFS(fsys fs.FS, dir, defaultLang string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("texts: read %s: %w", dir, err)
	}
	c := &Catalog{defaultLang: defaultLang, messages: make(map[string]map[string]string)}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("texts: read %s: %w", e.Name(), err)
		}
		msgs := make(map[string]string)
		if err := yaml.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("texts: parse %s: %w", e.Name(), err)
		}
		c.messages[strings.TrimSuffix(e.Name(), ".yaml")] = msgs
	}
	if _, ok := c.messages[defaultLang]; !ok {
		return nil, fmt.Errorf("texts: default language %q has no locale file", defaultLang)
	}
	return c, nil
}

// DefaultLanguage returns the fallback language.
func (c *Catalog) DefaultLanguage() string { return c.defaultLang }

// Languages lists the loaded languages.
func (c *Catalog) Languages() []string {
	out := make([]string, 0, len(c.messages))
	for lang := range c.messages {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Supports reports whether lang has a locale file.
func (c *Catalog) Supports(lang string) bool {
	_, ok := c.messages[lang]
	return ok
}

// Lookup returns the text for key in lang, then in the default language,
// then "Missing: <key>".
func (c *Catalog) Lookup(lang, key string, args Args) string {
	text, ok := c.messages[lang][key]
	if !ok {
		text, ok = c.messages[c.defaultLang][key]
	}
	if !ok {
		return "Missing: " + key
	}
	if len(args) == 0 {
		return text
	}
	pairs := make([]string, 0, len(args)*2)
	for k, v := range args {
		pairs = append(pairs, "{"+k+"}", fmt.Sprint(v))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
