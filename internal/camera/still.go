package camera

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// StillDevice - камера из каталога снимков, вместо настоящего железа.
// Кадры берутся из <dir>/front и <dir>/back, либо прямо из <dir> для обеих камер.
type StillDevice struct {
	Dir            string
	DenyPermission bool // эмулировать отказ в доступе
	BlockAutoplay  bool // первый Play() возвращает ErrPlaybackBlocked
}

var stillExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// Open открывает "камеру": загружает все кадры нужного режима
func (d *StillDevice) Open(ctx context.Context, facing FacingMode) (Stream, error) {
	if d.DenyPermission {
		return nil, ErrPermissionDenied
	}

	paths, err := d.framePaths(facing)
	if err != nil {
		return nil, err
	}

	frames := make([]image.Image, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := imaging.Open(path)
		if err != nil {
			// Битый файл - временная проблема, следующая попытка может пройти
			return nil, fmt.Errorf("%w: не удалось открыть кадр %s: %v", ErrTransient, path, err)
		}
		frames = append(frames, img)
	}

	b := frames[0].Bounds()
	return &stillStream{
		frames:  frames,
		width:   b.Dx(),
		height:  b.Dy(),
		blocked: d.BlockAutoplay,
		ready:   make(chan struct{}),
	}, nil
}

func (d *StillDevice) framePaths(facing FacingMode) ([]string, error) {
	info, err := os.Stat(d.Dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: нет каталога %s", ErrNoDevice, d.Dir)
	}

	for _, dir := range []string{filepath.Join(d.Dir, string(facing)), d.Dir} {
		paths := listImages(dir)
		if len(paths) > 0 {
			return paths, nil
		}
	}
	return nil, fmt.Errorf("%w: нет кадров для камеры %s в %s", ErrNoDevice, facing, d.Dir)
}

func listImages(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if stillExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths
}

// stillStream отдаёт кадры по кругу
type stillStream struct {
	mu      sync.Mutex
	frames  []image.Image
	next    int
	width   int
	height  int
	blocked bool
	playing bool
	closed  bool
	ready   chan struct{}
}

func (s *stillStream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.blocked {
		// Автозапуск запрещён до первого жеста пользователя
		s.blocked = false
		return ErrPlaybackBlocked
	}
	if !s.playing {
		s.playing = true
		close(s.ready)
	}
	return nil
}

func (s *stillStream) Ready() <-chan struct{} {
	return s.ready
}

func (s *stillStream) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return 0, 0
	}
	return s.width, s.height
}

func (s *stillStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if !s.playing {
		return nil, ErrNotReady
	}
	img := s.frames[s.next%len(s.frames)]
	s.next++
	return img, nil
}

func (s *stillStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
