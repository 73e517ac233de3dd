package listing

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"artisan-market/internal/models"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Handmade clay pot with traditional design, perfect for home decor", want: "Handmade Clay Pot With Traditional Design"},
		{in: "blue basket. woven by hand", want: "Blue Basket"},
		{in: "brass lamp; polished", want: "Brass Lamp"},
		{in: "beautiful hand painted wooden elephant toy", want: "Beautiful Hand Painted Wooden"},
		{in: "terracotta horse", want: "Terracotta Horse"},
		{in: "  single.  ", want: "Single."},
		{in: "", want: UntitledProduct},
		{in: "   ", want: UntitledProduct},
		{in: "madhubani-style painting", want: "Madhubani-Style Painting"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTitle(tt.in))
		})
	}
}

func TestAdjustPrice(t *testing.T) {
	assert.Equal(t, 500, AdjustPrice(450, PriceStep))
	assert.Equal(t, 400, AdjustPrice(450, -PriceStep))
	assert.Equal(t, MinPrice, AdjustPrice(80, -PriceStep))
	assert.Equal(t, MinPrice, AdjustPrice(MinPrice, -PriceStep))
}

type memImages struct {
	data  map[string][]byte
	saved int
}

func (m *memImages) ReadImage(ref string) ([]byte, error) {
	d, ok := m.data[ref]
	if !ok {
		return nil, errors.New("not found")
	}
	return d, nil
}

func (m *memImages) SaveImage(data []byte, ext string) (string, error) {
	m.saved++
	ref := "enhanced" + ext
	m.data[ref] = data
	return ref, nil
}

type stubTranslator struct {
	calls int
	err   error
}

func (s *stubTranslator) Translate(ctx context.Context, text string, lang models.Language) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return text + " [" + string(lang) + "]", nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for i := range img.Pix {
		img.Pix[i] = 120
	}
	img.Set(5, 5, color.White)
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestGenerate(t *testing.T) {
	images := &memImages{data: map[string][]byte{"photo.png": pngBytes(t)}}
	tr := &stubTranslator{}
	g := NewGenerator(images, tr, 0, 0)

	var steps []string
	listing, err := g.Generate(context.Background(), Request{
		SellerID:  "seller-1",
		ImageRef:  "photo.png",
		Language:  models.LanguageHindi,
		Translate: true,
	}, func(step, total int, name string) {
		assert.Equal(t, len(Steps), total)
		assert.Equal(t, len(steps)+1, step)
		steps = append(steps, name)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Enhancing image", "Writing description", "Calculating fair price", "Publishing to buyers"}, steps)
	assert.NotEmpty(t, listing.ID)
	assert.Equal(t, "seller-1", listing.SellerID)
	assert.Equal(t, "photo.png", listing.ImageRef)
	assert.Equal(t, "enhanced.jpg", listing.EnhancedRef)
	assert.Equal(t, MockTranscription, listing.Description)
	assert.Equal(t, "Handmade Clay Pot With Traditional Design", listing.Title)
	assert.Equal(t, MockTranscription+" [hindi]", listing.Translated)
	assert.Equal(t, DefaultPrice, listing.Price)
	assert.False(t, listing.Published)
	assert.Equal(t, 1, tr.calls)
}

func TestGenerate_UsesTranscriptionAndKeepsOriginalOnBadImage(t *testing.T) {
	images := &memImages{data: map[string][]byte{"broken.jpg": []byte("nope")}}
	tr := &stubTranslator{}
	g := NewGenerator(images, tr, 600, 0)

	listing, err := g.Generate(context.Background(), Request{
		ImageRef:      "broken.jpg",
		Transcription: "woven basket, made from bamboo",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Woven Basket", listing.Title)
	assert.Empty(t, listing.EnhancedRef)
	assert.Empty(t, listing.Translated)
	assert.Equal(t, models.LanguageEnglish, listing.Language)
	assert.Equal(t, 600, listing.Price)
	assert.Equal(t, 0, tr.calls)
}

func TestGenerate_Errors(t *testing.T) {
	g := NewGenerator(nil, &stubTranslator{err: errors.New("boom")}, 0, 0)

	_, err := g.Generate(context.Background(), Request{}, nil)
	assert.ErrorIs(t, err, ErrMissingImage)

	_, err = g.Generate(context.Background(), Request{ImageRef: "x.jpg", Translate: true}, nil)
	assert.Error(t, err)
}

func TestGenerate_Canceled(t *testing.T) {
	g := NewGenerator(nil, nil, 0, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := g.Generate(ctx, Request{ImageRef: "x.jpg"}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
