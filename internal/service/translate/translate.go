package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"artisan-market/internal/models"
)

// DefaultLatency - имитация задержки сервиса перевода
const DefaultLatency = 600 * time.Millisecond

// DemoPhrase - фраза, для которой есть готовые переводы
const DemoPhrase = "Handmade clay pot with traditional design, perfect for home decor"

var ErrUnsupportedLanguage = errors.New("язык не поддерживается")

var demoTranslations = map[models.Language]string{
	models.LanguageHindi:   "हाथ से बनी मिट्टी का बर्तन पारंपरिक डिज़ाइन, घर की सजावट के लिए उत्तम",
	models.LanguageBengali: "হ্যান্ডমেড মাটি পাত্র, ঐতিহ্যবাহী ডিজাইন, বাড়ির সাজসই",
	models.LanguageTamil:   "கையேந்திய மண் பானை பழமையான வடிவம், வீட்டு அலங்காரத்திற்கு சிறந்தது",
	models.LanguageTelugu:  "చేతిద్దిన మట్టి బాణ్సి సంప్రదాయ డిజైన్, ఇంటి అలంకరణకు తగ్గది",
	models.LanguageMarathi: "हाताने बनवलेले मातीचे भांडे पारंपारिक डिझाइन, घराच्या सजावटीसाठी उत्तम",
}

// Service - заглушка машинного перевода
type Service struct {
	Latency time.Duration
}

// NewService создаёт сервис с задержкой по умолчанию
func NewService() *Service {
	return &Service{Latency: DefaultLatency}
}

// Translate переводит текст на язык пользователя
func (s *Service) Translate(ctx context.Context, text string, lang models.Language) (string, error) {
	if !lang.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	if s.Latency > 0 {
		timer := time.NewTimer(s.Latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if lang == models.LanguageEnglish {
		return text, nil
	}
	if strings.EqualFold(strings.TrimSpace(text), DemoPhrase) {
		return demoTranslations[lang], nil
	}
	return text + " (translated)", nil
}
