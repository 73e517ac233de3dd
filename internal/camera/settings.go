package camera

import "time"

// Значения по умолчанию для цикла получения камеры и съёмки
const (
	DefaultAttempts        = 3
	DefaultRetryDelay      = 250 * time.Millisecond
	DefaultPlaybackTimeout = 600 * time.Millisecond
	DefaultReadyTimeout    = 1500 * time.Millisecond
	DefaultDarkRetryDelay  = 300 * time.Millisecond
	DefaultDarkThreshold   = 6.0
	DefaultMaxDarkRetries  = 2
	DefaultFrameWidth      = 1280
	DefaultFrameHeight     = 720
	DefaultJPEGQuality     = 90
)

// Settings - тайминги и пороги менеджера камеры.
// Фиксируются при создании менеджера и дальше не меняются.
type Settings struct {
	Attempts        int           // попыток получить камеру
	RetryDelay      time.Duration // пауза между попытками
	PlaybackTimeout time.Duration // ожидание автозапуска, потом статус blocked
	ReadyTimeout    time.Duration // ожидание готовности перед снимком
	DarkRetryDelay  time.Duration // пауза перед повтором тёмного кадра
	DarkThreshold   float64       // средняя яркость "почти чёрного" кадра
	MaxDarkRetries  int
	JPEGQuality     int
}

// DefaultSettings возвращает значения прототипа
func DefaultSettings() Settings {
	return Settings{
		Attempts:        DefaultAttempts,
		RetryDelay:      DefaultRetryDelay,
		PlaybackTimeout: DefaultPlaybackTimeout,
		ReadyTimeout:    DefaultReadyTimeout,
		DarkRetryDelay:  DefaultDarkRetryDelay,
		DarkThreshold:   DefaultDarkThreshold,
		MaxDarkRetries:  DefaultMaxDarkRetries,
		JPEGQuality:     DefaultJPEGQuality,
	}
}

// withDefaults подставляет значения по умолчанию вместо нулевых
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.Attempts <= 0 {
		s.Attempts = d.Attempts
	}
	if s.RetryDelay == 0 {
		s.RetryDelay = d.RetryDelay
	}
	if s.PlaybackTimeout == 0 {
		s.PlaybackTimeout = d.PlaybackTimeout
	}
	if s.ReadyTimeout == 0 {
		s.ReadyTimeout = d.ReadyTimeout
	}
	if s.DarkRetryDelay == 0 {
		s.DarkRetryDelay = d.DarkRetryDelay
	}
	if s.DarkThreshold == 0 {
		s.DarkThreshold = d.DarkThreshold
	}
	// отрицательное значение отключает повторы
	if s.MaxDarkRetries == 0 {
		s.MaxDarkRetries = d.MaxDarkRetries
	} else if s.MaxDarkRetries < 0 {
		s.MaxDarkRetries = 0
	}
	if s.JPEGQuality <= 0 || s.JPEGQuality > 100 {
		s.JPEGQuality = d.JPEGQuality
	}
	return s
}
