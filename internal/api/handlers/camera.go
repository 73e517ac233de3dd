package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"artisan-market/internal/camera"
	"artisan-market/internal/models"
	"artisan-market/internal/service/capture"
	"artisan-market/internal/service/storage"

	"github.com/gin-gonic/gin"
)

// ============ CAMERA ============

// HandleCameraStart запускает камеру и переводит сценарий съёмки в capturing
func (h *Handler) HandleCameraStart(c *gin.Context) {
	var req models.CameraStartRequest
	// Пустое тело допустимо: камера по умолчанию
	_ = c.ShouldBindJSON(&req)

	facing := h.defaultFacing
	if req.Facing != "" {
		parsed, err := camera.ParseFacing(req.Facing)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: err.Error(),
			})
			return
		}
		facing = parsed
	}

	ready, err := h.flow.OpenCamera(c.Request.Context(), facing)
	if err != nil {
		respondCameraError(c, err)
		return
	}
	c.JSON(http.StatusOK, ready)
}

// HandleCameraFlip переключает фронтальную/основную камеру во время съёмки
func (h *Handler) HandleCameraFlip(c *gin.Context) {
	ready, err := h.flow.FlipCamera(c.Request.Context())
	if err != nil {
		respondCameraError(c, err)
		return
	}
	c.JSON(http.StatusOK, ready)
}

// HandleCameraResume повторяет воспроизведение после блокировки автозапуска
func (h *Handler) HandleCameraResume(c *gin.Context) {
	ready, err := h.camera.Resume(c.Request.Context())
	if err != nil {
		respondCameraError(c, err)
		return
	}
	c.JSON(http.StatusOK, ready)
}

// HandleCameraStop освобождает камеру
func (h *Handler) HandleCameraStop(c *gin.Context) {
	h.camera.Stop()
	c.JSON(http.StatusOK, h.camera.Status())
}

// HandleCameraStatus возвращает текущий статус камеры
func (h *Handler) HandleCameraStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.camera.Status())
}

// ============ CAPTURE ============

// HandleCapture снимает кадр с камеры и проверяет его
func (h *Handler) HandleCapture(c *gin.Context) {
	out, err := h.flow.TakePhoto(c.Request.Context())
	if err != nil {
		respondCaptureError(c, err)
		return
	}
	c.JSON(http.StatusOK, captureResponse(out))
}

// HandleCaptureUpload принимает фото из галереи (multipart, поле "image")
func (h *Handler) HandleCaptureUpload(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Файл не передан",
		})
		return
	}

	data, err := h.storage.ReadUpload(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: err.Error(),
		})
		return
	}

	// Расширение берём из содержимого, имя файла от клиента не используем
	out, err := h.flow.Submit(c.Request.Context(), data, storage.ImageExt(data))
	if err != nil {
		respondCaptureError(c, err)
		return
	}
	c.JSON(http.StatusOK, captureResponse(out))
}

// HandleCaptureRetake возвращает отклонённое фото к съёмке
func (h *Handler) HandleCaptureRetake(c *gin.Context) {
	if err := h.flow.Retake(); err != nil {
		respondCaptureError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.flow.State())
}

// HandleCaptureReset начинает сценарий заново
func (h *Handler) HandleCaptureReset(c *gin.Context) {
	h.flow.Reset()
	c.JSON(http.StatusOK, h.flow.State())
}

// HandleCaptureState возвращает состояние сценария
func (h *Handler) HandleCaptureState(c *gin.Context) {
	c.JSON(http.StatusOK, h.flow.State())
}

func captureResponse(out *capture.Outcome) models.CaptureResponse {
	return models.CaptureResponse{
		State:    string(out.State),
		Result:   out.Result,
		ImageRef: out.ImageRef,
		Retries:  out.Retries,
		Dim:      out.Dim,
	}
}

// respondCameraError раскладывает ошибки камеры по HTTP статусам.
// Если камеру получить не удалось, клиенту предлагается выбор файла.
func respondCameraError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var acqErr *camera.AcquisitionError
	switch {
	case errors.As(err, &acqErr):
		switch acqErr.Kind {
		case camera.KindPermissionDenied:
			status = http.StatusForbidden
		case camera.KindNoDevice:
			status = http.StatusNotFound
		default:
			status = http.StatusServiceUnavailable
		}
	case errors.Is(err, camera.ErrNotReady), errors.Is(err, camera.ErrSessionClosed):
		status = http.StatusConflict
	case errors.Is(err, capture.ErrBusy),
		errors.Is(err, capture.ErrAccepted),
		errors.Is(err, capture.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled):
		// клиент ушёл, отвечать некому
		log.Printf("⚠️  Запуск камеры отменён: %v", err)
		status = http.StatusRequestTimeout
	}

	c.JSON(status, models.ErrorResponse{
		Error:    err.Error(),
		Fallback: capture.Fallback(err),
	})
}

// respondCaptureError - ошибки съёмки и проверки фото
func respondCaptureError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, capture.ErrEmptyImage):
		status = http.StatusBadRequest
	case errors.Is(err, capture.ErrBusy),
		errors.Is(err, capture.ErrAccepted),
		errors.Is(err, capture.ErrInvalidState),
		errors.Is(err, camera.ErrNotReady),
		errors.Is(err, camera.ErrSessionClosed):
		status = http.StatusConflict
	case errors.Is(err, camera.ErrCaptureFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusRequestTimeout
	}

	c.JSON(status, models.ErrorResponse{
		Error: err.Error(),
	})
}
