package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"artisan-market/internal/camera"

	"github.com/joho/godotenv"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Redis   RedisConfig
	Camera  CameraConfig
	Verify  VerifyConfig
	OTP     OTPConfig
	Listing ListingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port string
	Host string
}

// StorageConfig - настройки хранилища принятых фото
type StorageConfig struct {
	UploadsDir string
	Retention  time.Duration // 0 - фото не удаляются
}

// RedisConfig - настройки Redis
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// CameraConfig - настройки камеры и цикла захвата.
// Тайминги по умолчанию совпадают с константами пакета camera.
type CameraConfig struct {
	FramesDir       string
	DefaultFacing   string
	DenyPermission  bool
	BlockAutoplay   bool
	Attempts        int
	RetryDelay      time.Duration
	PlaybackTimeout time.Duration
	ReadyTimeout    time.Duration
	DarkRetryDelay  time.Duration
}

// VerifyConfig - настройки эвристики качества фото
type VerifyConfig struct {
	Latency  time.Duration
	CacheTTL time.Duration
}

// OTPConfig - настройки OTP-заглушки
type OTPConfig struct {
	TTL     time.Duration
	DevEcho bool // возвращать код в ответе (только для разработки!)
}

// ListingConfig - настройки генерации карточки товара
type ListingConfig struct {
	DefaultPrice int
	StepScale    float64 // множитель длительности шагов (0 - без задержек)
}

// Load загружает конфигурацию из переменных окружения
// с fallback на значения по умолчанию. Файл .env подхватывается, если он есть.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("⚠️  Не удалось прочитать .env: %v\n", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Storage: StorageConfig{
			UploadsDir: getEnv("UPLOADS_DIR", "uploads"),
			Retention:  getEnvDuration("UPLOADS_RETENTION", 0),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Camera: CameraConfig{
			FramesDir:       getEnv("CAMERA_FRAMES_DIR", "camera"),
			DefaultFacing:   getEnv("CAMERA_DEFAULT_FACING", "front"),
			DenyPermission:  getEnvBool("CAMERA_DENY_PERMISSION", false),
			BlockAutoplay:   getEnvBool("CAMERA_BLOCK_AUTOPLAY", false),
			Attempts:        getEnvInt("CAMERA_ATTEMPTS", 3),
			RetryDelay:      getEnvDuration("CAMERA_RETRY_DELAY", 250*time.Millisecond),
			PlaybackTimeout: getEnvDuration("CAMERA_PLAYBACK_TIMEOUT", 600*time.Millisecond),
			ReadyTimeout:    getEnvDuration("CAMERA_READY_TIMEOUT", 1500*time.Millisecond),
			DarkRetryDelay:  getEnvDuration("CAMERA_DARK_RETRY_DELAY", 300*time.Millisecond),
		},
		Verify: VerifyConfig{
			Latency:  getEnvDuration("VERIFY_LATENCY", 800*time.Millisecond),
			CacheTTL: getEnvDuration("VERIFY_CACHE_TTL", time.Hour),
		},
		OTP: OTPConfig{
			TTL:     getEnvDuration("OTP_TTL", 2*time.Minute),
			DevEcho: getEnvBool("OTP_DEV_ECHO", true),
		},
		Listing: ListingConfig{
			DefaultPrice: getEnvInt("LISTING_DEFAULT_PRICE", 450),
			StepScale:    getEnvFloat("LISTING_STEP_SCALE", 1.0),
		},
	}
}

// Addr возвращает адрес для запуска HTTP сервера
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Device возвращает камеру из каталога кадров
func (c *CameraConfig) Device() *camera.StillDevice {
	return &camera.StillDevice{
		Dir:            c.FramesDir,
		DenyPermission: c.DenyPermission,
		BlockAutoplay:  c.BlockAutoplay,
	}
}

// Settings переносит тайминги в настройки менеджера камеры
func (c *CameraConfig) Settings() camera.Settings {
	s := camera.DefaultSettings()
	s.Attempts = c.Attempts
	s.RetryDelay = c.RetryDelay
	s.PlaybackTimeout = c.PlaybackTimeout
	s.ReadyTimeout = c.ReadyTimeout
	s.DarkRetryDelay = c.DarkRetryDelay
	return s
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленную переменную окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool понимает 1/0, true/false, yes/no
func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// getEnvDuration принимает формат time.ParseDuration ("250ms", "2m")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
