package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"artisan-market/internal/models"

	"github.com/redis/go-redis/v9"
)

// Service управляет кэшированием через Redis
type Service struct {
	client          *redis.Client
	ctx             context.Context
	verificationTTL time.Duration
}

// NewService создает новый cache service
func NewService(addr, password string, db int) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	return &Service{
		client:          client,
		ctx:             ctx,
		verificationTTL: time.Hour,
	}, nil
}

// SetVerificationTTL задаёт время жизни результатов проверки фото
func (s *Service) SetVerificationTTL(ttl time.Duration) {
	if ttl > 0 {
		s.verificationTTL = ttl
	}
}

// Close закрывает соединение с Redis
func (s *Service) Close() error {
	return s.client.Close()
}

// getJSON читает ключ; (false, nil) - ключа нет
func (s *Service) getJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// ============ OTP ============

// SaveChallenge сохраняет хэш кода для номера
func (s *Service) SaveChallenge(ctx context.Context, c *models.OTPChallenge, ttl time.Duration) error {
	return s.setJSON(ctx, "otp:"+c.Mobile, c, ttl)
}

// GetChallenge получает код для номера
func (s *Service) GetChallenge(ctx context.Context, mobile string) (*models.OTPChallenge, error) {
	var c models.OTPChallenge
	ok, err := s.getJSON(ctx, "otp:"+mobile, &c)
	if err != nil || !ok {
		return nil, err
	}
	return &c, nil
}

// DeleteChallenge погашает код
func (s *Service) DeleteChallenge(ctx context.Context, mobile string) error {
	return s.client.Del(ctx, "otp:"+mobile).Err()
}

// ============ VERIFICATION CACHE ============

// GetVerification получает результат проверки по хэшу изображения
func (s *Service) GetVerification(ctx context.Context, key string) (*models.VerificationResult, error) {
	var r models.VerificationResult
	ok, err := s.getJSON(ctx, "verify:"+key, &r)
	if err != nil || !ok {
		return nil, err
	}
	return &r, nil
}

// SetVerification сохраняет результат проверки
func (s *Service) SetVerification(ctx context.Context, key string, result *models.VerificationResult) error {
	return s.setJSON(ctx, "verify:"+key, result, s.verificationTTL)
}

// ============ LISTING CACHE ============

// GetListing получает карточку из кэша
func (s *Service) GetListing(id string) (*models.Listing, error) {
	var listing models.Listing
	ok, err := s.getJSON(s.ctx, "listing:"+id, &listing)
	if err != nil || !ok {
		return nil, err
	}
	return &listing, nil
}

// SetListing сохраняет карточку в кэш на 1 час
func (s *Service) SetListing(listing *models.Listing) error {
	return s.setJSON(s.ctx, "listing:"+listing.ID, listing, 1*time.Hour)
}

// InvalidateListing удаляет карточку из кэша
func (s *Service) InvalidateListing(id string) error {
	return s.client.Del(s.ctx, "listing:"+id).Err()
}

// ============ TASK CACHE ============

// GetTask получает задачу из кэша
func (s *Service) GetTask(taskID string) (*models.Task, error) {
	var task models.Task
	ok, err := s.getJSON(s.ctx, "task:"+taskID, &task)
	if err != nil || !ok {
		return nil, err
	}
	return &task, nil
}

// SetTask сохраняет задачу в кэш.
// Незавершённые задачи не кэшируются: их статус ещё меняется.
func (s *Service) SetTask(task *models.Task) error {
	if task.Status == models.TaskStatusProcessing {
		return nil
	}
	// Задачи храним 24 часа
	return s.setJSON(s.ctx, "task:"+task.ID, task, 24*time.Hour)
}

// ============ STATS CACHE ============

// GetStats получает статистику из кэша
func (s *Service) GetStats() (*models.Stats, error) {
	var stats models.Stats
	ok, err := s.getJSON(s.ctx, "stats", &stats)
	if err != nil || !ok {
		return nil, err
	}
	return &stats, nil
}

// SetStats сохраняет статистику в кэш на 5 минут
func (s *Service) SetStats(stats *models.Stats) error {
	return s.setJSON(s.ctx, "stats", stats, 5*time.Minute)
}

// InvalidateStats очищает кэш статистики
func (s *Service) InvalidateStats() error {
	return s.client.Del(s.ctx, "stats").Err()
}
