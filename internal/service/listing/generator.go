package listing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"artisan-market/internal/models"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// Значения по умолчанию
const (
	DefaultPrice = 450
	MinPrice     = 50
	PriceStep    = 50

	// MockTranscription - что "услышал" микрофон, если продавец ничего не передал
	MockTranscription = "Handmade clay pot with traditional design, perfect for home decor"
)

// Step - шаг генерации карточки
type Step struct {
	Name     string
	Duration time.Duration
}

// Steps - шаги "AI обработки" в порядке выполнения
var Steps = []Step{
	{Name: "Enhancing image", Duration: 1000 * time.Millisecond},
	{Name: "Writing description", Duration: 1500 * time.Millisecond},
	{Name: "Calculating fair price", Duration: 1000 * time.Millisecond},
	{Name: "Publishing to buyers", Duration: 500 * time.Millisecond},
}

var ErrMissingImage = errors.New("нет фото товара")

// Progress вызывается после каждого шага (step считается с 1)
type Progress func(step, total int, name string)

// Images - доступ к сохранённым фото
type Images interface {
	ReadImage(ref string) ([]byte, error)
	SaveImage(data []byte, ext string) (string, error)
}

// Translator переводит описание на язык продавца
type Translator interface {
	Translate(ctx context.Context, text string, lang models.Language) (string, error)
}

// Request - входные данные генерации
type Request struct {
	SellerID      string
	ImageRef      string
	Transcription string
	Language      models.Language
	Translate     bool
}

// Generator - заглушка генерации карточки товара
type Generator struct {
	images       Images
	translator   Translator
	defaultPrice int
	scale        float64 // множитель длительности шагов
	now          func() time.Time
}

// NewGenerator создаёт генератор. scale=0 - шаги без задержек.
func NewGenerator(images Images, translator Translator, defaultPrice int, scale float64) *Generator {
	if defaultPrice <= 0 {
		defaultPrice = DefaultPrice
	}
	if scale < 0 {
		scale = 0
	}
	return &Generator{
		images:       images,
		translator:   translator,
		defaultPrice: defaultPrice,
		scale:        scale,
		now:          time.Now,
	}
}

// Generate проходит все шаги и возвращает черновик карточки
func (g *Generator) Generate(ctx context.Context, req Request, progress Progress) (*models.Listing, error) {
	if req.ImageRef == "" {
		return nil, ErrMissingImage
	}

	text := strings.TrimSpace(req.Transcription)
	if text == "" {
		text = MockTranscription
	}
	lang := req.Language
	if lang == "" {
		lang = models.LanguageEnglish
	}

	listing := &models.Listing{
		ID:          uuid.New().String(),
		SellerID:    req.SellerID,
		ImageRef:    req.ImageRef,
		Title:       ExtractTitle(text),
		Description: text,
		Language:    lang,
		Price:       g.defaultPrice,
		CreatedAt:   g.now(),
	}

	for i, step := range Steps {
		if err := g.wait(ctx, step.Duration); err != nil {
			return nil, err
		}

		switch i {
		case 0:
			listing.EnhancedRef = g.enhance(req.ImageRef)
		case 1:
			if req.Translate && g.translator != nil {
				translated, err := g.translator.Translate(ctx, text, lang)
				if err != nil {
					return nil, fmt.Errorf("перевод описания: %w", err)
				}
				listing.Translated = translated
			}
		}

		if progress != nil {
			progress(i+1, len(Steps), step.Name)
		}
	}

	return listing, nil
}

// enhance делает "улучшенную" копию фото. При ошибке карточка остаётся с оригиналом.
func (g *Generator) enhance(ref string) string {
	if g.images == nil {
		return ""
	}

	data, err := g.images.ReadImage(ref)
	if err != nil {
		log.Printf("⚠️  Не удалось прочитать фото %s: %v", ref, err)
		return ""
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		log.Printf("⚠️  Не удалось декодировать фото %s: %v", ref, err)
		return ""
	}

	enhanced := imaging.Sharpen(imaging.AdjustContrast(img, 8), 0.6)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, enhanced, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		log.Printf("⚠️  Не удалось закодировать фото %s: %v", ref, err)
		return ""
	}

	enhancedRef, err := g.images.SaveImage(buf.Bytes(), ".jpg")
	if err != nil {
		log.Printf("⚠️  Не удалось сохранить улучшенное фото: %v", err)
		return ""
	}
	return enhancedRef
}

func (g *Generator) wait(ctx context.Context, d time.Duration) error {
	d = time.Duration(float64(d) * g.scale)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AdjustPrice меняет цену на delta, не опускаясь ниже MinPrice
func AdjustPrice(price, delta int) int {
	return max(MinPrice, price+delta)
}
