package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxUploadSize - предел размера загружаемого фото
const MaxUploadSize = 20 << 20

var (
	ErrInvalidRef   = errors.New("некорректная ссылка на изображение")
	ErrNotFound     = errors.New("изображение не найдено")
	ErrFileTooLarge = errors.New("файл слишком большой")
)

// Service управляет файловым хранилищем принятых фото
type Service struct {
	uploadsDir string
}

// NewService создает новый файловый сервис
func NewService(uploadsDir string) (*Service, error) {
	// Создаем директорию если её нет
	if err := os.MkdirAll(uploadsDir, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать uploads: %w", err)
	}

	return &Service{uploadsDir: uploadsDir}, nil
}

// SaveImage сохраняет изображение и возвращает непрозрачную ссылку на него
func (s *Service) SaveImage(data []byte, ext string) (string, error) {
	if ext == "" {
		ext = ".jpg"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	ref := uuid.New().String() + strings.ToLower(ext)
	destPath := filepath.Join(s.uploadsDir, ref)

	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return "", fmt.Errorf("ошибка записи файла %s: %w", destPath, err)
	}
	return ref, nil
}

// imageExts - расширения для форматов, которые регистрирует пакет image
var imageExts = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"bmp":  ".bmp",
	"tiff": ".tiff",
}

// ImageExt определяет расширение по содержимому файла.
// Нераспознанный формат сохраняется как .jpg.
func ImageExt(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ".jpg"
	}
	if ext, ok := imageExts[format]; ok {
		return ext
	}
	return ".jpg"
}

// ReadUpload читает загруженный файл целиком
func (s *Service) ReadUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	if fileHeader.Size > MaxUploadSize {
		return nil, fmt.Errorf("%w: %s (%d байт)", ErrFileTooLarge, fileHeader.Filename, fileHeader.Size)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл %s: %w", fileHeader.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", fileHeader.Filename, err)
	}
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, fileHeader.Filename)
	}
	return data, nil
}

// Path возвращает путь к файлу по ссылке
func (s *Service) Path(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || strings.HasPrefix(ref, ".") {
		return "", ErrInvalidRef
	}
	return filepath.Join(s.uploadsDir, ref), nil
}

// ReadImage возвращает содержимое сохранённого изображения
func (s *Service) ReadImage(ref string) ([]byte, error) {
	path, err := s.Path(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

// Exists проверяет что изображение сохранено
func (s *Service) Exists(ref string) bool {
	path, err := s.Path(ref)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Delete удаляет изображение по ссылке
func (s *Service) Delete(ref string) error {
	path, err := s.Path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("не удалось удалить %s: %w", path, err)
	}
	return nil
}

// CleanupOlderThan удаляет файлы старше age, возвращает сколько удалено
func (s *Service) CleanupOlderThan(age time.Duration) (int, error) {
	entries, err := os.ReadDir(s.uploadsDir)
	if err != nil {
		return 0, err
	}

	removed := 0
	cutoff := time.Now().Add(-age)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.uploadsDir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
