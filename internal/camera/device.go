package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// FacingMode - какая камера нужна: фронтальная или основная
type FacingMode string

const (
	FacingFront FacingMode = "front"
	FacingBack  FacingMode = "back"
)

// ParseFacing разбирает режим камеры из запроса.
// Пустая строка - фронтальная камера (так открывается сценарий съёмки).
func ParseFacing(s string) (FacingMode, error) {
	switch FacingMode(s) {
	case FacingFront, "":
		return FacingFront, nil
	case FacingBack:
		return FacingBack, nil
	case "user":
		return FacingFront, nil
	case "environment":
		return FacingBack, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFacing, s)
}

// Opposite возвращает другую камеру
func (f FacingMode) Opposite() FacingMode {
	if f == FacingBack {
		return FacingFront
	}
	return FacingBack
}

// Mirrored - фронтальная камера показывает зеркальное превью
func (f FacingMode) Mirrored() bool {
	return f == FacingFront
}

// Device - доступ платформы к камерам (разрешение, перечисление, живой поток)
type Device interface {
	Open(ctx context.Context, facing FacingMode) (Stream, error)
}

// Stream - живой поток кадров открытой камеры.
// Закрытие потока освобождает устройство.
type Stream interface {
	// Play запускает воспроизведение. ErrPlaybackBlocked - нужен жест пользователя.
	Play() error
	// Ready закрывается, когда пошли кадры
	Ready() <-chan struct{}
	// Size - размеры живого кадра, 0x0 пока неизвестны
	Size() (width, height int)
	// Frame - текущий кадр в ориентации сенсора
	Frame() (image.Image, error)
	Close() error
}

// Ошибки доступа к камере
var (
	ErrPermissionDenied = errors.New("доступ к камере запрещён")
	ErrNoDevice         = errors.New("камера не найдена")
	ErrTransient        = errors.New("камера временно недоступна")
	ErrPlaybackBlocked  = errors.New("автозапуск видео заблокирован")
	ErrInvalidFacing    = errors.New("неизвестный режим камеры")
)

// Ошибки съёмки
var (
	ErrNotReady      = errors.New("камера не готова")
	ErrCaptureFailed = errors.New("не удалось сделать снимок")
	ErrSessionClosed = errors.New("сессия камеры закрыта")
)

// ErrorKind - класс ошибки получения камеры
type ErrorKind string

const (
	KindPermissionDenied ErrorKind = "permission_denied"
	KindNoDevice         ErrorKind = "no_device"
	KindTransient        ErrorKind = "transient"
)

// Terminal - после таких ошибок повторять бессмысленно
func (k ErrorKind) Terminal() bool {
	return k == KindPermissionDenied || k == KindNoDevice
}

// AcquisitionError - классифицированная ошибка получения камеры
type AcquisitionError struct {
	Kind     ErrorKind
	Attempts int
	Err      error
}

func (e *AcquisitionError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("камера (%s) после %d попыток: %v", e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("камера (%s): %v", e.Kind, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// Classify раскладывает ошибку устройства по классам.
// Всё неизвестное считается временным сбоем.
func Classify(err error) ErrorKind {
	var acqErr *AcquisitionError
	switch {
	case errors.As(err, &acqErr):
		return acqErr.Kind
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrNoDevice):
		return KindNoDevice
	default:
		return KindTransient
	}
}
