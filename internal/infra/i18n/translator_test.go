//go:build !integration

package i18n

import (
	"testing"
	"testing/fstest"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"locales/en.yaml": {Data: []byte("greeting: Hello\nonly_en: English only\nwelcome_user: Hello %s\n")},
		"locales/sv.yaml": {Data: []byte("greeting: Hej\nwelcome_user: Hej %s\nmail:\n  footer: Vänliga hälsningar\n")},
	}
}

func TestTranslator(t *testing.T) {
	translator, err := NewTranslator(testFS(), "sv")
	if err != nil {
		t.Fatalf("NewTranslator failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		if got := translator.T("greeting"); got != "Hej" {
			t.Errorf("wanted 'Hej', got '%s'", got)
		}
	})

	t.Run("should flatten nested keys", func(t *testing.T) {
		if got := translator.T("mail.footer"); got != "Vänliga hälsningar" {
			t.Errorf("wanted nested text, got '%s'", got)
		}
	})

	t.Run("should fall back to english", func(t *testing.T) {
		if got := translator.T("only_en"); got != "English only" {
			t.Errorf("wanted fallback text, got '%s'", got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		if got := translator.T("nonexistent_key"); got != "nonexistent_key" {
			t.Errorf("wanted 'nonexistent_key', got '%s'", got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		if got := translator.T("welcome_user", "Ida"); got != "Hej Ida" {
			t.Errorf("wanted 'Hej Ida', got '%s'", got)
		}
	})
}

func TestNewTranslator_EmbeddedLocales(t *testing.T) {
	for _, lang := range []string{"en", "sv"} {
		tr, err := NewTranslator(LocalesFS, lang)
		if err != nil {
			t.Fatalf("%s: %v", lang, err)
		}
		if tr.Lang() != lang {
			t.Errorf("wanted lang %s, got %s", lang, tr.Lang())
		}
		for _, key := range []string{"welcome.subject", "welcome.body"} {
			if tr.T(key) == key {
				t.Errorf("%s: missing key %s", lang, key)
			}
		}
	}
}

func TestNewTranslator_Errors(t *testing.T) {
	if _, err := NewTranslator(testFS(), "de"); err == nil {
		t.Fatal("expected error for missing locale file")
	}

	bad := fstest.MapFS{"locales/en.yaml": {Data: []byte("list:\n  - a\n")}}
	if _, err := NewTranslator(bad, "en"); err == nil {
		t.Fatal("expected error for non-text translation")
	}

	// A missing fallback file is tolerated.
	svOnly := fstest.MapFS{"locales/sv.yaml": {Data: []byte("greeting: Hej\n")}}
	if _, err := NewTranslator(svOnly, "sv"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
