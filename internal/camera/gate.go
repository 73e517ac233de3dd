package camera

import (
	"context"
	"image"
	"log"
	"sync"
)

// Handle - единственный владелец открытого потока камеры.
// Освободить поток может только Gate, остальным доступно чтение кадров.
type Handle struct {
	id     uint64
	facing FacingMode
	stream Stream
}

// ID - порядковый номер получения устройства
func (h *Handle) ID() uint64 { return h.id }

// Facing - какая камера открыта
func (h *Handle) Facing() FacingMode { return h.facing }

// Play запускает воспроизведение потока
func (h *Handle) Play() error { return h.stream.Play() }

// Ready закрывается, когда поток начал отдавать кадры
func (h *Handle) Ready() <-chan struct{} { return h.stream.Ready() }

// Size - размеры живого кадра
func (h *Handle) Size() (int, int) { return h.stream.Size() }

// Frame - текущий кадр
func (h *Handle) Frame() (image.Image, error) { return h.stream.Frame() }

// Gate выдаёт доступ к камере: одновременно открыт не больше одного потока,
// старый поток закрывается до открытия нового.
type Gate struct {
	device  Device
	mu      sync.Mutex
	current *Handle
	nextID  uint64
}

// NewGate создаёт gate поверх устройства
func NewGate(device Device) *Gate {
	return &Gate{device: device}
}

// Acquire открывает камеру с нужным режимом.
// Вызовы сериализуются; Device.Open обязан уважать отмену ctx.
func (g *Gate) Acquire(ctx context.Context, facing FacingMode) (*Handle, error) {
	if facing != FacingFront && facing != FacingBack {
		return nil, &AcquisitionError{Kind: KindNoDevice, Err: ErrInvalidFacing}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Сначала освобождаем предыдущий поток
	g.releaseLocked()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stream, err := g.device.Open(ctx, facing)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &AcquisitionError{Kind: Classify(err), Err: err}
	}

	// Запрос отменили, пока устройство открывалось
	if err := ctx.Err(); err != nil {
		stream.Close()
		return nil, err
	}

	g.nextID++
	g.current = &Handle{id: g.nextID, facing: facing, stream: stream}
	return g.current, nil
}

// Release закрывает поток, если h всё ещё текущий.
// Для устаревшего handle ничего не делает и возвращает false.
func (g *Gate) Release(h *Handle) bool {
	if h == nil {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current != h {
		return false
	}
	g.releaseLocked()
	return true
}

// ReleaseAll закрывает текущий поток, если он есть
func (g *Gate) ReleaseAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releaseLocked()
}

// Active - сколько потоков сейчас открыто (0 или 1)
func (g *Gate) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current != nil {
		return 1
	}
	return 0
}

func (g *Gate) releaseLocked() {
	if g.current == nil {
		return
	}
	if err := g.current.stream.Close(); err != nil {
		log.Printf("⚠️  Камера %s: ошибка закрытия потока #%d: %v", g.current.facing, g.current.id, err)
	}
	g.current = nil
}
