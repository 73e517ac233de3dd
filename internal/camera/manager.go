package camera

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status - состояние камеры для слоя представления
type Status string

const (
	StatusIdle             Status = "idle"
	StatusStarting         Status = "starting"
	StatusReady            Status = "ready"
	StatusBlocked          Status = "blocked"
	StatusPermissionDenied Status = "permission"
	StatusNoDevice         Status = "no-device"
	StatusError            Status = "error"
)

// statusForKind - какой статус показать после неудачного получения камеры
func statusForKind(kind ErrorKind) Status {
	switch kind {
	case KindPermissionDenied:
		return StatusPermissionDenied
	case KindNoDevice:
		return StatusNoDevice
	default:
		return StatusError
	}
}

// StatusEvent - изменение статуса камеры
type StatusEvent struct {
	SessionID string     `json:"session_id,omitempty"`
	Facing    FacingMode `json:"facing,omitempty"`
	Status    Status     `json:"status"`
	Error     string     `json:"error,omitempty"`
	At        time.Time  `json:"at"`
}

// Ready - результат успешного запуска камеры.
// Blocked=true: поток открыт, но воспроизведение ждёт жеста пользователя (Resume).
type Ready struct {
	SessionID string     `json:"session_id"`
	Facing    FacingMode `json:"facing"`
	Blocked   bool       `json:"blocked"`
}

// session - одна привязка к камере от Start до Stop
type session struct {
	id     string
	gen    uint64
	facing FacingMode
	ctx    context.Context
	cancel context.CancelFunc

	handle    *Handle
	ready     chan struct{}
	readyOnce sync.Once
}

func (s *session) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *session) isReady() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// Manager управляет единственной сессией камеры: получение с повторами,
// статус, переключение камер и съёмка кадров.
type Manager struct {
	gate     *Gate
	settings Settings
	sleep    func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	gen       uint64
	current   *session
	status    StatusEvent
	pending   []StatusEvent
	listeners []func(StatusEvent)

	notifyMu sync.Mutex
}

// NewManager создаёт менеджер камеры
func NewManager(gate *Gate, settings Settings) *Manager {
	return &Manager{
		gate:     gate,
		settings: settings.withDefaults(),
		sleep:    sleepCtx,
		status:   StatusEvent{Status: StatusIdle, At: time.Now()},
	}
}

// Settings возвращает действующие настройки
func (m *Manager) Settings() Settings {
	return m.settings
}

// OnStatus подписывает слушателя на изменения статуса.
// Слушатель вызывается синхронно и не должен вызывать методы Manager.
func (m *Manager) OnStatus(fn func(StatusEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Status возвращает последний статус
func (m *Manager) Status() StatusEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Start открывает камеру: до Attempts попыток с паузой RetryDelay.
// Запрет доступа и отсутствие камеры не повторяются. Предыдущая сессия
// полностью закрывается до первой попытки.
func (m *Manager) Start(ctx context.Context, facing FacingMode) (*Ready, error) {
	if facing != FacingFront && facing != FacingBack {
		return nil, ErrInvalidFacing
	}

	m.mu.Lock()
	m.stopLocked()
	m.gen++
	sctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:     uuid.New().String(),
		gen:    m.gen,
		facing: facing,
		ctx:    sctx,
		cancel: cancel,
		ready:  make(chan struct{}),
	}
	m.current = s
	m.setStatusLocked(s, StatusStarting, nil)
	m.unlock()

	// Отмена запроса прерывает запуск, но не живую сессию после него
	stopWatch := context.AfterFunc(ctx, cancel)
	defer stopWatch()

	var lastErr error
	attempts := 0
	for attempts < m.settings.Attempts {
		attempts++
		log.Printf("📷 Камера %s: попытка %d/%d (сессия %s)", facing, attempts, m.settings.Attempts, shortID(s.id))

		h, err := m.gate.Acquire(s.ctx, facing)
		if err == nil {
			return m.onAcquired(s, h)
		}
		if s.ctx.Err() != nil {
			m.abandon(s)
			return nil, ErrSessionClosed
		}

		lastErr = err
		kind := Classify(err)
		log.Printf("⚠️  Камера %s: попытка %d не удалась (%s): %v", facing, attempts, kind, err)
		if kind.Terminal() {
			break
		}
		if attempts < m.settings.Attempts {
			if err := m.sleep(s.ctx, m.settings.RetryDelay); err != nil {
				m.abandon(s)
				return nil, ErrSessionClosed
			}
		}
	}

	acqErr := &AcquisitionError{Kind: Classify(lastErr), Attempts: attempts, Err: underlying(lastErr)}

	m.mu.Lock()
	if m.current == s {
		s.cancel()
		m.setStatusLocked(s, statusForKind(acqErr.Kind), acqErr)
	}
	m.unlock()

	log.Printf("❌ Камера %s не запустилась: %v", facing, acqErr)
	return nil, acqErr
}

// onAcquired привязывает поток к сессии и ждёт начала воспроизведения
func (m *Manager) onAcquired(s *session, h *Handle) (*Ready, error) {
	m.mu.Lock()
	if m.current != s {
		m.mu.Unlock()
		m.gate.Release(h)
		return nil, ErrSessionClosed
	}
	s.handle = h
	m.mu.Unlock()

	go m.watchPlayback(s, h)

	if err := h.Play(); err != nil && !errors.Is(err, ErrPlaybackBlocked) {
		log.Printf("⚠️  Камера %s: воспроизведение не запустилось: %v", s.facing, err)
	}
	return m.awaitPlayback(s)
}

// watchPlayback переводит сессию в ready, когда пошли кадры.
// Сигнал от устаревшей сессии отбрасывается.
func (m *Manager) watchPlayback(s *session, h *Handle) {
	select {
	case <-h.Ready():
	case <-s.ctx.Done():
		return
	}

	m.mu.Lock()
	if m.current == s && s.ctx.Err() == nil {
		s.markReady()
		m.setStatusLocked(s, StatusReady, nil)
		log.Printf("✅ Камера %s готова (сессия %s)", s.facing, shortID(s.id))
	}
	m.unlock()
}

// awaitPlayback ждёт PlaybackTimeout; если кадров нет - статус blocked
func (m *Manager) awaitPlayback(s *session) (*Ready, error) {
	timer := time.NewTimer(m.settings.PlaybackTimeout)
	defer timer.Stop()

	select {
	case <-s.ready:
		return &Ready{SessionID: s.id, Facing: s.facing}, nil
	case <-s.ctx.Done():
		m.abandon(s)
		return nil, ErrSessionClosed
	case <-timer.C:
	}

	m.mu.Lock()
	defer m.unlock()

	if m.current != s || s.ctx.Err() != nil {
		return nil, ErrSessionClosed
	}
	if s.isReady() {
		return &Ready{SessionID: s.id, Facing: s.facing}, nil
	}
	m.setStatusLocked(s, StatusBlocked, nil)
	log.Printf("⚠️  Камера %s: автозапуск заблокирован, нужен жест пользователя", s.facing)
	return &Ready{SessionID: s.id, Facing: s.facing, Blocked: true}, nil
}

// Resume - запуск воспроизведения по жесту пользователя
func (m *Manager) Resume(ctx context.Context) (*Ready, error) {
	m.mu.Lock()
	s := m.current
	if s == nil || s.handle == nil || s.ctx.Err() != nil {
		m.mu.Unlock()
		return nil, ErrNotReady
	}
	if s.isReady() {
		m.mu.Unlock()
		return &Ready{SessionID: s.id, Facing: s.facing}, nil
	}
	h := s.handle
	m.setStatusLocked(s, StatusStarting, nil)
	m.unlock()

	if err := h.Play(); err != nil && !errors.Is(err, ErrPlaybackBlocked) {
		log.Printf("⚠️  Камера %s: повторный запуск не удался: %v", s.facing, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.awaitPlayback(s)
}

// Switch переключает фронтальную/основную камеру.
// Старый поток освобождается до запроса нового.
func (m *Manager) Switch(ctx context.Context) (*Ready, error) {
	m.mu.Lock()
	facing := FacingFront
	if m.current != nil {
		facing = m.current.facing.Opposite()
	} else if m.status.Facing != "" {
		facing = m.status.Facing.Opposite()
	}
	m.mu.Unlock()

	return m.Start(ctx, facing)
}

// Stop закрывает сессию в любой момент, в том числе посреди повторов
func (m *Manager) Stop() {
	m.mu.Lock()
	s := m.current
	m.stopLocked()
	if s != nil {
		m.setStatusLocked(s, StatusIdle, nil)
		log.Printf("📷 Камера %s остановлена (сессия %s)", s.facing, shortID(s.id))
	}
	m.unlock()
}

// Facing - режим текущей или последней сессии
func (m *Manager) Facing() FacingMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return m.current.facing
	}
	return m.status.Facing
}

// stopLocked отменяет текущую сессию и освобождает устройство
func (m *Manager) stopLocked() {
	s := m.current
	if s == nil {
		return
	}
	s.cancel()
	m.current = nil
	m.gate.ReleaseAll()
}

// abandon закрывает сессию, отменённую вместе с запросом.
// Если сессию уже сменили или остановили, ничего не делает.
func (m *Manager) abandon(s *session) {
	m.mu.Lock()
	if m.current == s {
		m.stopLocked()
		m.setStatusLocked(s, StatusIdle, nil)
	}
	m.unlock()
}

// isCurrent - сессия всё ещё активна
func (m *Manager) isCurrent(s *session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current == s && s.ctx.Err() == nil
}

func (m *Manager) setStatusLocked(s *session, status Status, err error) {
	ev := StatusEvent{Status: status, At: time.Now()}
	if s != nil {
		ev.SessionID = s.id
		ev.Facing = s.facing
	}
	if err != nil {
		ev.Error = err.Error()
	}
	m.status = ev
	m.pending = append(m.pending, ev)
}

// unlock отпускает mu и рассылает накопленные события в порядке их появления
func (m *Manager) unlock() {
	events := m.pending
	m.pending = nil
	listeners := m.listeners

	m.notifyMu.Lock()
	m.mu.Unlock()
	defer m.notifyMu.Unlock()

	for _, ev := range events {
		for _, fn := range listeners {
			fn(ev)
		}
	}
}

// underlying снимает обёртку AcquisitionError, оставляя исходную ошибку устройства
func underlying(err error) error {
	var acqErr *AcquisitionError
	if errors.As(err, &acqErr) && acqErr.Err != nil {
		return acqErr.Err
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
