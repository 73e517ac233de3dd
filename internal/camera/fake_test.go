package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"time"
)

// fakeDevice - управляемая камера для тестов
type fakeDevice struct {
	mu sync.Mutex

	errs      []error // ошибка для n-го вызова Open, nil - успех
	failAfter error   // ошибка для всех вызовов после errs
	frames    []image.Image
	width     int
	height    int
	blockPlay bool // Play всегда возвращает ErrPlaybackBlocked

	opens             int
	open              int
	openedWhileActive bool
	facings           []FacingMode
	streams           []*fakeStream
}

func newFakeDevice(frames ...image.Image) *fakeDevice {
	if len(frames) == 0 {
		frames = []image.Image{makeTestImage(64, 48, color.Gray{Y: 128})}
	}
	b := frames[0].Bounds()
	return &fakeDevice{frames: frames, width: b.Dx(), height: b.Dy()}
}

func (d *fakeDevice) Open(ctx context.Context, facing FacingMode) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.opens
	d.opens++
	d.facings = append(d.facings, facing)
	if d.open > 0 {
		d.openedWhileActive = true
	}

	if idx < len(d.errs) && d.errs[idx] != nil {
		return nil, d.errs[idx]
	}
	if idx >= len(d.errs) && d.failAfter != nil {
		return nil, d.failAfter
	}

	d.open++
	s := &fakeStream{dev: d, frames: d.frames, width: d.width, height: d.height, ready: make(chan struct{})}
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDevice) stats() (opens, open int, overlapped bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens, d.open, d.openedWhileActive
}

type fakeStream struct {
	dev       *fakeDevice
	mu        sync.Mutex
	frames    []image.Image
	grabs     int
	width     int
	height    int
	frameErr  error
	closed    bool
	ready     chan struct{}
	readyOnce sync.Once
}

func (s *fakeStream) Play() error {
	s.dev.mu.Lock()
	blocked := s.dev.blockPlay
	s.dev.mu.Unlock()

	if blocked {
		return ErrPlaybackBlocked
	}
	s.fire()
	return nil
}

// fire - поток начал отдавать кадры
func (s *fakeStream) fire() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *fakeStream) Ready() <-chan struct{} { return s.ready }

func (s *fakeStream) Size() (int, int) { return s.width, s.height }

func (s *fakeStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frameErr != nil {
		return nil, s.frameErr
	}
	if s.closed {
		return nil, errors.New("stream closed")
	}
	idx := s.grabs
	if idx >= len(s.frames) {
		idx = len(s.frames) - 1
	}
	s.grabs++
	return s.frames[idx], nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.dev.mu.Lock()
	s.dev.open--
	s.dev.mu.Unlock()
	return nil
}

// sleepRecorder запоминает запрошенные паузы и не ждёт
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func makeTestImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// newTestManager - менеджер с короткими таймаутами и записью пауз
func newTestManager(dev Device) (*Manager, *sleepRecorder) {
	m := NewManager(NewGate(dev), Settings{
		PlaybackTimeout: 50 * time.Millisecond,
		ReadyTimeout:    200 * time.Millisecond,
	})
	rec := &sleepRecorder{}
	m.sleep = rec.sleep
	return m, rec
}
