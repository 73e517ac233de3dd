package verify

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"log"
	"math"
	"time"

	"artisan-market/internal/camera"
	"artisan-market/internal/models"

	"github.com/disintegration/imaging"
)

// Параметры эвристики
const (
	DefaultLatency = 800 * time.Millisecond

	maxSampleSide = 400  // изображение вписывается не больше чем в 400x400
	minBrightness = 40.0 // средняя яркость "хорошего" фото
	minSide       = 200  // минимальная сторона исходника в пикселях
)

// Verifier проверяет фото товара
type Verifier interface {
	Verify(ctx context.Context, data []byte) models.VerificationResult
}

// ResultCache - кэш результатов по хэшу изображения
type ResultCache interface {
	GetVerification(ctx context.Context, key string) (*models.VerificationResult, error)
	SetVerification(ctx context.Context, key string, result *models.VerificationResult) error
}

// Heuristic - заглушка "AI" проверки: яркость и размер.
// Одни и те же байты всегда дают один и тот же результат.
type Heuristic struct {
	Latency time.Duration // имитация задержки модели
	Cache   ResultCache   // может быть nil
}

// New создаёт эвристику с задержкой по умолчанию
func New(cache ResultCache) *Heuristic {
	return &Heuristic{Latency: DefaultLatency, Cache: cache}
}

// Verify декодирует изображение и оценивает его.
// Отмена ctx во время задержки даёт результат с reason=canceled.
func (h *Heuristic) Verify(ctx context.Context, data []byte) models.VerificationResult {
	key := Key(data)

	if h.Cache != nil {
		if cached, err := h.Cache.GetVerification(ctx, key); err == nil && cached != nil {
			return *cached
		}
	}

	result := Evaluate(data)

	if h.Latency > 0 {
		timer := time.NewTimer(h.Latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return models.VerificationResult{Labels: []string{"error"}, Reason: models.ReasonCanceled}
		}
	}

	if h.Cache != nil {
		if err := h.Cache.SetVerification(ctx, key, &result); err != nil {
			log.Printf("⚠️  Не удалось сохранить проверку в кэш: %v", err)
		}
	}
	return result
}

// Evaluate - сама эвристика без задержки и кэша
func Evaluate(data []byte) models.VerificationResult {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return failed(models.ReasonLoadFailed)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	sample := sampleOf(img, w, h)
	if sample == nil || len(sample.Pix) == 0 {
		return failed(models.ReasonProcessingFailed)
	}

	avg := camera.AverageLuminance(sample)
	verified := avg > minBrightness && w > minSide && h > minSide

	labels := []string{"unclear", "low-confidence"}
	if verified {
		labels = []string{"product", "clear-photo"}
	}

	return models.VerificationResult{
		Verified:   verified,
		Labels:     labels,
		Confidence: confidence(avg),
		Width:      w,
		Height:     h,
		Luminance:  avg,
	}
}

// Key - ключ кэша: sha256 от содержимого
func Key(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sampleOf(img image.Image, w, h int) *image.NRGBA {
	if w <= 0 || h <= 0 {
		return nil
	}
	sw, sh := min(maxSampleSide, w), min(maxSampleSide, h)
	if sw == w && sh == h {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, sw, sh, imaging.Linear)
}

func confidence(avg float64) float64 {
	return math.Min(0.99, math.Max(0.2, (avg-20)/200))
}

func failed(reason string) models.VerificationResult {
	return models.VerificationResult{
		Verified:   false,
		Labels:     []string{"error"},
		Confidence: 0,
		Reason:     reason,
	}
}
