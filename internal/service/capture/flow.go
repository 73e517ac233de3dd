package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"artisan-market/internal/camera"
	"artisan-market/internal/models"
	"artisan-market/internal/verify"
)

// State - этап сценария съёмки
type State string

const (
	StateIdle      State = "idle"
	StateCapturing State = "capturing"
	StateVerifying State = "verifying"
	StateAccepted  State = "accepted"
	StateRejected  State = "rejected"
)

// FallbackFilePicker - что предложить пользователю, если камера недоступна
const FallbackFilePicker = "file-picker"

// Source - откуда пришло фото
type Source string

const (
	SourceCamera  Source = "camera"
	SourceGallery Source = "gallery"
)

var (
	ErrBusy         = errors.New("фото уже проверяется")
	ErrAccepted     = errors.New("фото уже принято, начните заново")
	ErrInvalidState = errors.New("действие недоступно на этом этапе")
	ErrEmptyImage   = errors.New("пустое изображение")
)

// Camera - то, что сценарию нужно от менеджера камеры
type Camera interface {
	Start(ctx context.Context, facing camera.FacingMode) (*camera.Ready, error)
	Switch(ctx context.Context) (*camera.Ready, error)
	Capture(ctx context.Context) (*camera.CapturedFrame, error)
	Stop()
}

// ImageStore сохраняет принятые фото
type ImageStore interface {
	SaveImage(data []byte, ext string) (string, error)
	Delete(ref string) error
}

// Snapshot - текущее состояние сценария
type Snapshot struct {
	State    State                      `json:"state"`
	Result   *models.VerificationResult `json:"result,omitempty"`
	ImageRef string                     `json:"image_ref,omitempty"`
	Source   Source                     `json:"source,omitempty"`
}

// Outcome - итог одной проверки
type Outcome struct {
	State    State
	Result   models.VerificationResult
	ImageRef string
	Retries  int
	Dim      bool
}

// Flow - сценарий "сфотографировать товар": камера или галерея,
// проверка, передача принятого фото дальше ровно один раз.
type Flow struct {
	cam       Camera
	verifier  verify.Verifier
	store     ImageStore
	onCapture func(ref string)

	mu        sync.Mutex
	state     State
	gen       uint64
	result    *models.VerificationResult
	ref       string
	source    Source
	delivered bool
}

// NewFlow создаёт сценарий. onCapture может быть nil.
func NewFlow(cam Camera, verifier verify.Verifier, store ImageStore, onCapture func(ref string)) *Flow {
	return &Flow{
		cam:       cam,
		verifier:  verifier,
		store:     store,
		onCapture: onCapture,
		state:     StateIdle,
	}
}

// State возвращает текущее состояние
func (f *Flow) State() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Flow) snapshotLocked() Snapshot {
	snap := Snapshot{State: f.state, ImageRef: f.ref, Source: f.source}
	if f.result != nil {
		r := *f.result
		snap.Result = &r
	}
	return snap
}

// OpenCamera переводит сценарий в capturing и запускает камеру.
// Если камера не получена, сценарий остаётся в capturing: можно выбрать файл.
func (f *Flow) OpenCamera(ctx context.Context, facing camera.FacingMode) (*camera.Ready, error) {
	f.mu.Lock()
	if err := f.enterCapturingLocked(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()

	ready, err := f.cam.Start(ctx, facing)
	if err != nil {
		log.Printf("⚠️  Сценарий съёмки: камера недоступна: %v", err)
		return nil, err
	}
	return ready, nil
}

// FlipCamera переключает камеру. Доступно только во время съёмки.
func (f *Flow) FlipCamera(ctx context.Context) (*camera.Ready, error) {
	f.mu.Lock()
	if f.state != StateCapturing {
		err := f.stateErrLocked()
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()

	return f.cam.Switch(ctx)
}

// TakePhoto снимает кадр с камеры, освобождает камеру и проверяет снимок
func (f *Flow) TakePhoto(ctx context.Context) (*Outcome, error) {
	f.mu.Lock()
	if f.state != StateCapturing {
		err := f.stateErrLocked()
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()

	frame, err := f.cam.Capture(ctx)
	if err != nil {
		return nil, err
	}
	// Снимок есть - камера больше не нужна
	f.cam.Stop()

	out, err := f.check(ctx, frame.JPEG, ".jpg", SourceCamera)
	if err != nil {
		return nil, err
	}
	out.Retries = frame.Retries
	out.Dim = frame.Dim
	return out, nil
}

// Submit проверяет фото, выбранное из галереи или снятое системной камерой
func (f *Flow) Submit(ctx context.Context, data []byte, ext string) (*Outcome, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	f.mu.Lock()
	switch f.state {
	case StateIdle, StateRejected:
		f.state = StateCapturing
	case StateCapturing:
	default:
		err := f.stateErrLocked()
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()

	f.cam.Stop()
	return f.check(ctx, data, ext, SourceGallery)
}

// Retake возвращает отклонённый сценарий к съёмке
func (f *Flow) Retake() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateRejected, StateCapturing, StateIdle:
		f.state = StateCapturing
		f.result = nil
		f.source = ""
		return nil
	default:
		return f.stateErrLocked()
	}
}

// Reset закрывает камеру и начинает сценарий с нуля.
// Незавершённая проверка после Reset игнорируется.
func (f *Flow) Reset() {
	f.cam.Stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.state = StateIdle
	f.result = nil
	f.ref = ""
	f.source = ""
	f.delivered = false
}

func (f *Flow) enterCapturingLocked() error {
	switch f.state {
	case StateIdle, StateRejected, StateCapturing:
		f.state = StateCapturing
		f.result = nil
		return nil
	default:
		return f.stateErrLocked()
	}
}

func (f *Flow) stateErrLocked() error {
	switch f.state {
	case StateVerifying:
		return ErrBusy
	case StateAccepted:
		return ErrAccepted
	default:
		return fmt.Errorf("%w: %s", ErrInvalidState, f.state)
	}
}

// check проверяет изображение; при успехе сохраняет его и вызывает onCapture
func (f *Flow) check(ctx context.Context, data []byte, ext string, source Source) (*Outcome, error) {
	f.mu.Lock()
	if f.state != StateCapturing {
		err := f.stateErrLocked()
		f.mu.Unlock()
		return nil, err
	}
	f.state = StateVerifying
	f.source = source
	gen := f.gen
	f.mu.Unlock()

	result := f.verifier.Verify(ctx, data)

	var ref string
	var saveErr error
	if result.Verified {
		ref, saveErr = f.store.SaveImage(data, ext)
	}

	f.mu.Lock()
	if f.gen != gen {
		// Сценарий сбросили, пока шла проверка: сохранённое фото никому не нужно
		f.mu.Unlock()
		if ref != "" {
			if err := f.store.Delete(ref); err != nil {
				log.Printf("⚠️  Не удалось удалить брошенное фото %s: %v", ref, err)
			}
		}
		return nil, context.Canceled
	}

	switch {
	case result.Reason == models.ReasonCanceled:
		f.state = StateCapturing
		f.mu.Unlock()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, context.Canceled
	case saveErr != nil:
		f.state = StateCapturing
		f.mu.Unlock()
		return nil, fmt.Errorf("не удалось сохранить фото: %w", saveErr)
	case result.Verified:
		f.state = StateAccepted
		f.ref = ref
	default:
		f.state = StateRejected
	}
	f.result = &result

	deliver := result.Verified && !f.delivered
	if deliver {
		f.delivered = true
	}
	out := &Outcome{State: f.state, Result: result, ImageRef: f.ref}
	f.mu.Unlock()

	if result.Verified {
		log.Printf("✅ Фото принято (%s): %s, уверенность %.0f%%", source, ref, result.Confidence*100)
	} else {
		log.Printf("⚠️  Фото отклонено (%s): %v %s", source, result.Labels, result.Reason)
	}

	if deliver && f.onCapture != nil {
		f.onCapture(ref)
	}
	return out, nil
}

// Fallback - что показать пользователю после ошибки камеры
func Fallback(err error) string {
	var acqErr *camera.AcquisitionError
	if errors.As(err, &acqErr) {
		return FallbackFilePicker
	}
	return ""
}
