package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/disintegration/imaging"
)

// CapturedFrame - снимок с живого потока
type CapturedFrame struct {
	Image     *image.NRGBA
	JPEG      []byte
	Width     int
	Height    int
	Luminance float64
	Mirrored  bool
	Facing    FacingMode
	Retries   int  // сколько тёмных кадров отброшено
	Dim       bool // принят после исчерпания повторов, хотя всё ещё тёмный
	TakenAt   time.Time
}

// Capture делает снимок текущей сессии.
// Ждёт готовности не дольше ReadyTimeout, почти чёрный кадр переснимает
// до MaxDarkRetries раз, после чего принимает кадр как есть.
func (m *Manager) Capture(ctx context.Context) (*CapturedFrame, error) {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()

	if s == nil {
		return nil, ErrNotReady
	}

	if err := m.waitReady(ctx, s); err != nil {
		return nil, err
	}

	h := s.handle
	if w, ht := h.Size(); w <= 0 || ht <= 0 {
		return nil, fmt.Errorf("%w: размер кадра %dx%d", ErrNotReady, w, ht)
	}

	retries := 0
	for {
		if !m.isCurrent(s) {
			return nil, ErrSessionClosed
		}

		frame, err := m.grab(h, s.facing)
		if err != nil {
			return nil, err
		}

		if frame.Luminance < m.settings.DarkThreshold && retries < m.settings.MaxDarkRetries {
			retries++
			log.Printf("⚠️  Камера %s: тёмный кадр (яркость %.1f), повтор %d/%d",
				s.facing, frame.Luminance, retries, m.settings.MaxDarkRetries)
			if err := m.sleepSession(ctx, s, m.settings.DarkRetryDelay); err != nil {
				return nil, err
			}
			continue
		}

		frame.Retries = retries
		frame.Dim = frame.Luminance < m.settings.DarkThreshold
		if frame.Dim {
			log.Printf("⚠️  Камера %s: принят тёмный кадр после %d повторов (яркость %.1f)",
				s.facing, retries, frame.Luminance)
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, frame.Image, imaging.JPEG, imaging.JPEGQuality(m.settings.JPEGQuality)); err != nil {
			return nil, fmt.Errorf("%w: кодирование JPEG: %v", ErrCaptureFailed, err)
		}
		frame.JPEG = buf.Bytes()
		return frame, nil
	}
}

// waitReady ждёт сигнала готовности сессии
func (m *Manager) waitReady(ctx context.Context, s *session) error {
	timer := time.NewTimer(m.settings.ReadyTimeout)
	defer timer.Stop()

	select {
	case <-s.ready:
		return nil
	case <-timer.C:
		return ErrNotReady
	case <-s.ctx.Done():
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) sleepSession(ctx context.Context, s *session, d time.Duration) error {
	// Пауза прерывается и отменой запроса, и закрытием сессии
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	if err := m.sleep(wctx, d); err != nil {
		if s.ctx.Err() != nil {
			return ErrSessionClosed
		}
		return err
	}
	return nil
}

// grab рисует текущий кадр во внеэкранный буфер живого размера.
// Для фронтальной камеры кадр отражается, чтобы снимок совпал с превью.
func (m *Manager) grab(h *Handle, facing FacingMode) (*CapturedFrame, error) {
	src, err := h.Frame()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: пустой кадр", ErrCaptureFailed)
	}

	w, ht := h.Size()
	if w <= 0 || ht <= 0 {
		b := src.Bounds()
		w, ht = b.Dx(), b.Dy()
	}
	if w <= 0 || ht <= 0 {
		w, ht = DefaultFrameWidth, DefaultFrameHeight
	}

	surface := Render(src, w, ht, facing.Mirrored())
	return &CapturedFrame{
		Image:     surface,
		Width:     w,
		Height:    ht,
		Luminance: AverageLuminance(surface),
		Mirrored:  facing.Mirrored(),
		Facing:    facing,
		TakenAt:   time.Now(),
	}, nil
}

// Render вписывает кадр в поверхность width x height, при mirror отражая по горизонтали
func Render(src image.Image, width, height int, mirror bool) *image.NRGBA {
	var surface *image.NRGBA
	b := src.Bounds()
	if b.Dx() == width && b.Dy() == height {
		surface = imaging.Clone(src)
	} else {
		surface = imaging.Resize(src, width, height, imaging.Linear)
	}
	if mirror {
		surface = imaging.FlipH(surface)
	}
	return surface
}
