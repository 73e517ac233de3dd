package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"artisan-market/internal/models"
	"artisan-market/internal/service/listing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// generationTimeout - предел для фоновой генерации одной карточки
const generationTimeout = time.Minute

// ============ LISTINGS ============

// HandleGenerateListing запускает генерацию карточки по принятому фото
func (h *Handler) HandleGenerateListing(c *gin.Context) {
	var req models.GenerateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "seller_id и image_ref обязательны",
		})
		return
	}

	seller, err := h.repo.GetUser(req.SellerID)
	if err != nil {
		respondRepoError(c, err, "Продавец не найден")
		return
	}
	if !h.storage.Exists(req.ImageRef) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Фото не найдено",
		})
		return
	}
	if req.Language == "" {
		req.Language = seller.Language
	}

	taskID := uuid.New().String()
	if err := h.repo.CreateTask(taskID, len(listing.Steps)); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Не удалось создать задачу",
		})
		return
	}

	// Генерация идёт в фоне, прогресс - через WebSocket
	go h.processListing(taskID, req)

	c.JSON(http.StatusAccepted, models.TaskResponse{
		TaskID:  taskID,
		Message: "Генерация карточки запущена",
	})
}

// processListing проходит шаги генерации и сохраняет черновик
func (h *Handler) processListing(taskID string, req models.GenerateListingRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), generationTimeout)
	defer cancel()

	h.broadcastTaskUpdate(taskID, models.TaskStatusProcessing, map[string]interface{}{
		"message": "Генерация карточки началась",
	})

	progress := func(step, total int, name string) {
		if err := h.repo.UpdateTaskProgress(taskID, step); err != nil {
			log.Printf("⚠️  Не удалось обновить прогресс задачи %s: %v", taskID, err)
		}
		if h.wsManager != nil {
			h.wsManager.BroadcastTaskProgress(taskID, step, total, name)
		}
	}

	draft, err := h.generator.Generate(ctx, listing.Request{
		SellerID:      req.SellerID,
		ImageRef:      req.ImageRef,
		Transcription: req.Transcription,
		Language:      req.Language,
		Translate:     req.Translate,
	}, progress)
	if err == nil {
		err = h.repo.CreateListing(draft)
	}
	if err != nil {
		log.Printf("❌ Ошибка генерации карточки (задача %s): %v", taskID, err)
		errorMsg := err.Error()
		h.repo.UpdateTaskStatus(taskID, models.TaskStatusFailed, &errorMsg)
		h.broadcastTaskUpdate(taskID, models.TaskStatusFailed, map[string]interface{}{
			"error": errorMsg,
		})
		h.cacheTask(taskID)
		return
	}

	h.repo.SetTaskListing(taskID, draft.ID)
	h.repo.UpdateTaskStatus(taskID, models.TaskStatusCompleted, nil)
	h.cacheTask(taskID)

	log.Printf("✅ Карточка готова: %q, %d ₹ (задача %s)", draft.Title, draft.Price, taskID)

	h.broadcastTaskUpdate(taskID, models.TaskStatusCompleted, map[string]interface{}{
		"listing": draft,
	})
	h.invalidateStats()
}

func (h *Handler) broadcastTaskUpdate(taskID, status string, payload interface{}) {
	if h.wsManager != nil {
		h.wsManager.BroadcastTaskUpdate(taskID, status, payload)
	}
}

// cacheTask кладёт завершённую задачу в кэш
func (h *Handler) cacheTask(taskID string) {
	if h.cache == nil {
		return
	}
	if task, err := h.repo.GetTask(taskID); err == nil {
		h.cache.SetTask(task)
	}
}

// HandleTaskStatus возвращает статус задачи (с кэшем)
func (h *Handler) HandleTaskStatus(c *gin.Context) {
	taskID := c.Param("id")

	if h.cache != nil {
		if task, err := h.cache.GetTask(taskID); err == nil && task != nil {
			c.JSON(http.StatusOK, task)
			return
		}
	}

	task, err := h.repo.GetTask(taskID)
	if err != nil {
		respondRepoError(c, err, "Задача не найдена")
		return
	}

	if h.cache != nil {
		h.cache.SetTask(task)
	}
	c.JSON(http.StatusOK, task)
}

// HandleGetListing возвращает карточку (с кэшем)
func (h *Handler) HandleGetListing(c *gin.Context) {
	id := c.Param("id")

	if h.cache != nil {
		if l, err := h.cache.GetListing(id); err == nil && l != nil {
			c.JSON(http.StatusOK, l)
			return
		}
	}

	l, err := h.repo.GetListing(id)
	if err != nil {
		respondRepoError(c, err, "Карточка не найдена")
		return
	}

	if h.cache != nil {
		h.cache.SetListing(l)
	}
	c.JSON(http.StatusOK, l)
}

// HandleGetListings - карточки продавца (?seller_id=) или все, ?published=true - только опубликованные
func (h *Handler) HandleGetListings(c *gin.Context) {
	publishedOnly, _ := strconv.ParseBool(c.Query("published"))

	listings, err := h.repo.GetListings(c.Query("seller_id"), publishedOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, listings)
}

// HandleAdjustPrice меняет цену черновика на шаг (+/-)
func (h *Handler) HandleAdjustPrice(c *gin.Context) {
	var req models.PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Delta == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "delta должна быть ненулевой",
		})
		return
	}

	h.updateListing(c, func(l *models.Listing) error {
		l.Price = listing.AdjustPrice(l.Price, req.Delta)
		return nil
	})
}

var errAlreadyPublished = errors.New("карточка уже опубликована")

// HandlePublishListing публикует черновик: он появляется в каталоге покупателя
func (h *Handler) HandlePublishListing(c *gin.Context) {
	h.updateListing(c, func(l *models.Listing) error {
		if l.Published {
			return errAlreadyPublished
		}
		now := time.Now()
		l.Published = true
		l.PublishedAt = &now
		return nil
	})
}

// updateListing атомарно применяет изменение к карточке и сбрасывает кэши
func (h *Handler) updateListing(c *gin.Context, apply func(l *models.Listing) error) {
	l, err := h.repo.ModifyListing(c.Param("id"), apply)
	if errors.Is(err, errAlreadyPublished) {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error: err.Error(),
		})
		return
	}
	if err != nil {
		respondRepoError(c, err, "Карточка не найдена")
		return
	}

	if h.cache != nil {
		h.cache.InvalidateListing(l.ID)
	}
	if l.Published {
		h.invalidateStats()
	}
	c.JSON(http.StatusOK, l)
}
