package translate

import (
	"context"
	"testing"
	"time"

	"artisan-market/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	svc := &Service{}
	ctx := context.Background()

	tests := []struct {
		name string
		text string
		lang models.Language
		want string
	}{
		{name: "english is identity", text: "Blue woven basket", lang: models.LanguageEnglish, want: "Blue woven basket"},
		{name: "demo phrase hindi", text: DemoPhrase, lang: models.LanguageHindi, want: demoTranslations[models.LanguageHindi]},
		{name: "demo phrase tamil", text: "  " + DemoPhrase + " ", lang: models.LanguageTamil, want: demoTranslations[models.LanguageTamil]},
		{name: "other text", text: "Brass lamp", lang: models.LanguageMarathi, want: "Brass lamp (translated)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Translate(ctx, tt.text, tt.lang)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslate_UnsupportedLanguage(t *testing.T) {
	_, err := (&Service{}).Translate(context.Background(), "hello", models.Language("klingon"))
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestTranslate_Canceled(t *testing.T) {
	svc := &Service{Latency: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Translate(ctx, DemoPhrase, models.LanguageHindi)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDemoTranslationsCoverAllLanguages(t *testing.T) {
	for _, lang := range models.Languages {
		if lang == models.LanguageEnglish {
			continue
		}
		assert.NotEmpty(t, demoTranslations[lang], lang)
	}
}
