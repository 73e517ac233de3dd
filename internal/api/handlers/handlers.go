package handlers

import (
	"errors"
	"net/http"

	"artisan-market/internal/api/websocket"
	"artisan-market/internal/camera"
	"artisan-market/internal/models"
	"artisan-market/internal/repository"
	"artisan-market/internal/service/cache"
	"artisan-market/internal/service/capture"
	"artisan-market/internal/service/listing"
	"artisan-market/internal/service/otp"
	"artisan-market/internal/service/storage"
	"artisan-market/internal/service/translate"

	"github.com/gin-gonic/gin"
)

// Handler содержит все зависимости для обработки HTTP запросов
type Handler struct {
	repo       repository.RepositoryInterface
	storage    *storage.Service
	otp        *otp.Service
	camera     *camera.Manager
	flow       *capture.Flow
	generator  *listing.Generator
	translator *translate.Service
	cache      *cache.Service
	wsManager  *websocket.Manager
	devOTP     bool // отдавать код в ответе на отправку

	defaultFacing camera.FacingMode
}

// NewHandler создает новый handler с зависимостями
func NewHandler(
	repo repository.RepositoryInterface,
	storage *storage.Service,
	otpService *otp.Service,
	cameraManager *camera.Manager,
	flow *capture.Flow,
	generator *listing.Generator,
	translator *translate.Service,
	cache *cache.Service,
	wsManager *websocket.Manager,
	devOTP bool,
) *Handler {
	return &Handler{
		repo:       repo,
		storage:    storage,
		otp:        otpService,
		camera:     cameraManager,
		flow:       flow,
		generator:  generator,
		translator: translator,
		cache:      cache,
		wsManager:  wsManager,
		devOTP:     devOTP,

		defaultFacing: camera.FacingFront,
	}
}

// SetDefaultFacing задаёт камеру, которая открывается без явного выбора
func (h *Handler) SetDefaultFacing(facing camera.FacingMode) {
	h.defaultFacing = facing
}

// ============ STATS ============

// HandleGetStats возвращает общую статистику (с кэшем)
func (h *Handler) HandleGetStats(c *gin.Context) {
	// Пробуем из кэша
	if h.cache != nil {
		if stats, err := h.cache.GetStats(); err == nil && stats != nil {
			c.JSON(http.StatusOK, stats)
			return
		}
	}

	stats, err := h.repo.GetStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: err.Error(),
		})
		return
	}

	// Сохраняем в кэш
	if h.cache != nil {
		h.cache.SetStats(stats)
	}

	c.JSON(http.StatusOK, stats)
}

// invalidateStats сбрасывает кэш и рассылает свежую статистику
func (h *Handler) invalidateStats() {
	if h.cache != nil {
		h.cache.InvalidateStats()
	}
	if h.wsManager == nil {
		return
	}
	if stats, err := h.repo.GetStats(); err == nil {
		h.wsManager.BroadcastStatsUpdate(stats)
	}
}

// ============ HELPERS ============

// respondRepoError отвечает 404 для ErrNotFound и 500 для остального
func respondRepoError(c *gin.Context, err error, notFound string) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: notFound,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error: err.Error(),
	})
}
