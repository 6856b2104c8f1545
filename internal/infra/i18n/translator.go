package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

// FallbackLang is consulted for keys the selected language lacks.
const FallbackLang = "en"

//go:embed locales
var LocalesFS embed.FS

// Translator renders outbound message texts for one language.
type Translator struct {
	lang     string
	texts    map[string]string
	fallback map[string]string
}

// NewTranslator loads locales/<lang>.yaml from fsys, plus the fallback
// language when it differs and exists.
func NewTranslator(fsys fs.FS, lang string) (*Translator, error) {
	texts, err := load(fsys, lang)
	if err != nil {
		return nil, err
	}
	t := &Translator{lang: lang, texts: texts}
	if lang != FallbackLang {
		fb, err := load(fsys, FallbackLang)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		t.fallback = fb
	}
	return t, nil
}

func load(fsys fs.FS, lang string) (map[string]string, error) {
	p := path.Join("locales", lang+".yaml")
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	texts, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return texts, nil
}

// parse accepts flat "a.b: text" keys as well as nested maps, which are
// flattened with dots.
func parse(data []byte) (map[string]string, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse translations: %w", err)
	}
	out := make(map[string]string)
	var walk func(prefix string, m map[string]any) error
	walk = func(prefix string, m map[string]any) error {
		for k, v := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			switch val := v.(type) {
			case string:
				out[key] = val
			case map[string]any:
				if err := walk(key, val); err != nil {
					return err
				}
			default:
				return fmt.Errorf("translation %q is not text", key)
			}
		}
		return nil
	}
	if err := walk("", raw); err != nil {
		return nil, err
	}
	return out, nil
}

// T returns the formatted text for key. Unknown keys come back verbatim.
func (t *Translator) T(key string, args ...any) string {
	format, ok := t.texts[key]
	if !ok {
		if format, ok = t.fallback[key]; !ok {
			return key
		}
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

func (t *Translator) Lang() string { return t.lang }
