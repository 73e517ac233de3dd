package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"regexp"
	"strings"
	"sync"
	"time"

	"artisan-market/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// DefaultTTL - сколько живёт код
const DefaultTTL = 2 * time.Minute

// Причины отказа при проверке кода
const (
	ReasonExpired = "expired"
	ReasonInvalid = "invalid"
)

var ErrInvalidMobile = errors.New("номер должен состоять из 10 цифр")

var (
	mobilePattern = regexp.MustCompile(`^\d{10}$`)
	codePattern   = regexp.MustCompile(`^\d{6}$`)
)

// Store хранит выданные коды по номеру телефона.
// GetChallenge возвращает nil, nil если кода нет.
type Store interface {
	SaveChallenge(ctx context.Context, c *models.OTPChallenge, ttl time.Duration) error
	GetChallenge(ctx context.Context, mobile string) (*models.OTPChallenge, error)
	DeleteChallenge(ctx context.Context, mobile string) error
}

// Sender доставляет код пользователю
type Sender interface {
	Send(ctx context.Context, mobile, code string) error
}

// LogSender - доставка в лог вместо SMS
type LogSender struct{}

func (LogSender) Send(ctx context.Context, mobile, code string) error {
	log.Printf("📨 (DEV) OTP for +91%s: %s", mobile, code)
	return nil
}

// Sent - результат отправки кода
type Sent struct {
	Mobile    string
	Code      string // только для режима разработки
	ExpiresAt time.Time
}

// Result - результат проверки кода
type Result struct {
	Success bool
	Reason  string
}

// Service - заглушка входа по одноразовому коду
type Service struct {
	store  Store
	sender Sender
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

// NewService создаёт OTP-сервис. sender может быть nil - тогда коды пишутся в лог.
func NewService(store Store, sender Sender, ttl time.Duration) *Service {
	if sender == nil {
		sender = LogSender{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		store:  store,
		sender: sender,
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

// NormalizeMobile убирает пробелы и префикс +91, проверяет 10 цифр
func NormalizeMobile(mobile string) (string, error) {
	m := strings.ReplaceAll(strings.TrimSpace(mobile), " ", "")
	m = strings.TrimPrefix(m, "+91")
	if !mobilePattern.MatchString(m) {
		return "", ErrInvalidMobile
	}
	return m, nil
}

// Send выдаёт новый код, заменяя предыдущий
func (s *Service) Send(ctx context.Context, mobile string) (*Sent, error) {
	mobile, err := NormalizeMobile(mobile)
	if err != nil {
		return nil, err
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("не удалось сгенерировать код: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return nil, fmt.Errorf("не удалось захэшировать код: %w", err)
	}

	challenge := &models.OTPChallenge{
		Mobile:    mobile,
		Hash:      hash,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.store.SaveChallenge(ctx, challenge, s.ttl); err != nil {
		return nil, fmt.Errorf("не удалось сохранить код: %w", err)
	}

	if err := s.sender.Send(ctx, mobile, code); err != nil {
		return nil, fmt.Errorf("не удалось отправить код: %w", err)
	}

	return &Sent{Mobile: mobile, Code: code, ExpiresAt: challenge.ExpiresAt}, nil
}

// Verify проверяет код. Успешная проверка погашает код.
func (s *Service) Verify(ctx context.Context, mobile, code string) (Result, error) {
	mobile, err := NormalizeMobile(mobile)
	if err != nil {
		return Result{}, err
	}
	if !codePattern.MatchString(code) {
		return Result{Reason: ReasonInvalid}, nil
	}

	challenge, err := s.store.GetChallenge(ctx, mobile)
	if err != nil {
		return Result{}, err
	}
	// Кода нет: не запрашивали, уже погашен или истёк - нужно запросить заново
	if challenge == nil {
		return Result{Reason: ReasonExpired}, nil
	}

	if !s.now().Before(challenge.ExpiresAt) {
		if err := s.store.DeleteChallenge(ctx, mobile); err != nil {
			log.Printf("⚠️  Не удалось удалить просроченный код: %v", err)
		}
		return Result{Reason: ReasonExpired}, nil
	}

	if err := bcrypt.CompareHashAndPassword(challenge.Hash, []byte(code)); err != nil {
		return Result{Reason: ReasonInvalid}, nil
	}

	if err := s.store.DeleteChallenge(ctx, mobile); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

// generateCode - шестизначный код 100000..999999
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// MemoryStore - хранилище кодов в памяти процесса
type MemoryStore struct {
	mu         sync.Mutex
	challenges map[string]*models.OTPChallenge
}

// NewMemoryStore создаёт пустое хранилище
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{challenges: make(map[string]*models.OTPChallenge)}
}

func (m *MemoryStore) SaveChallenge(ctx context.Context, c *models.OTPChallenge, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.challenges[c.Mobile] = &cp
	return nil
}

func (m *MemoryStore) GetChallenge(ctx context.Context, mobile string) (*models.OTPChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[mobile]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) DeleteChallenge(ctx context.Context, mobile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.challenges, mobile)
	return nil
}
