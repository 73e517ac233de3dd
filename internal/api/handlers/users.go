package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"artisan-market/internal/models"
	"artisan-market/internal/service/otp"

	"github.com/gin-gonic/gin"
)

// Профиль покупателя без регистрации
const (
	guestBuyerName  = "Guest Buyer"
	guestBuyerCraft = models.CraftPottery

	// Имя "услышанное" голосовой регистрацией, если продавец его не назвал
	defaultSellerName = "Ramesh"
)

// ============ OTP ============

// HandleSendOTP выдаёт одноразовый код для номера
func (h *Handler) HandleSendOTP(c *gin.Context) {
	var req models.SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Номер телефона обязателен",
		})
		return
	}

	sent, err := h.otp.Send(c.Request.Context(), req.Mobile)
	if errors.Is(err, otp.ErrInvalidMobile) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: err.Error(),
		})
		return
	}
	if err != nil {
		log.Printf("❌ Ошибка отправки OTP: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Не удалось отправить код",
		})
		return
	}

	resp := models.SendOTPResponse{
		Message:   "OTP sent to +91 " + sent.Mobile,
		ExpiresAt: sent.ExpiresAt,
	}
	if h.devOTP {
		resp.DevCode = sent.Code
	}
	c.JSON(http.StatusOK, resp)
}

// HandleVerifyOTP проверяет код и входит (создаёт пользователя при первом входе)
func (h *Handler) HandleVerifyOTP(c *gin.Context) {
	var req models.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Номер и код обязательны",
		})
		return
	}

	res, err := h.otp.Verify(c.Request.Context(), req.Mobile, strings.TrimSpace(req.Code))
	if errors.Is(err, otp.ErrInvalidMobile) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: err.Error(),
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: err.Error(),
		})
		return
	}

	if !res.Success {
		c.JSON(http.StatusOK, models.VerifyOTPResponse{Reason: res.Reason})
		return
	}

	mobile, _ := otp.NormalizeMobile(req.Mobile)
	user, err := h.repo.GetOrCreateUser(mobile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: err.Error(),
		})
		return
	}

	log.Printf("✅ Вход по OTP: +91%s (пользователь %s)", mobile, user.ID)
	h.invalidateStats()

	c.JSON(http.StatusOK, models.VerifyOTPResponse{
		Success: true,
		User:    user,
	})
}

// ============ USERS ============

// HandleGetUser возвращает профиль
func (h *Handler) HandleGetUser(c *gin.Context) {
	user, err := h.repo.GetUser(c.Param("id"))
	if err != nil {
		respondRepoError(c, err, "Пользователь не найден")
		return
	}
	c.JSON(http.StatusOK, user)
}

// HandleSetLanguage сохраняет выбранный язык
func (h *Handler) HandleSetLanguage(c *gin.Context) {
	var req models.LanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Language.Valid() {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Неизвестный язык",
		})
		return
	}

	user, err := h.repo.GetUser(c.Param("id"))
	if err != nil {
		respondRepoError(c, err, "Пользователь не найден")
		return
	}

	user.Language = req.Language
	if err := h.repo.UpdateUser(user); err != nil {
		respondRepoError(c, err, "Пользователь не найден")
		return
	}
	c.JSON(http.StatusOK, user)
}

// HandleSetMode переключает покупатель/продавец.
// Покупатель сразу получает гостевой профиль, продавцу нужна регистрация.
func (h *Handler) HandleSetMode(c *gin.Context) {
	var req models.ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil ||
		(req.Mode != models.ViewModeBuyer && req.Mode != models.ViewModeSeller) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Режим должен быть buyer или seller",
		})
		return
	}

	user, err := h.repo.GetUser(c.Param("id"))
	if err != nil {
		respondRepoError(c, err, "Пользователь не найден")
		return
	}

	user.Mode = req.Mode
	if req.Mode == models.ViewModeBuyer && !user.Registered {
		user.Name = guestBuyerName
		user.Craft = guestBuyerCraft
	}

	if err := h.repo.UpdateUser(user); err != nil {
		respondRepoError(c, err, "Пользователь не найден")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":                  user,
		"registration_required": req.Mode == models.ViewModeSeller && !user.Registered,
	})
}

// HandleRegisterSeller завершает регистрацию продавца: ремесло и имя
func (h *Handler) HandleRegisterSeller(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Craft.Valid() {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Неизвестное ремесло",
		})
		return
	}

	user, err := h.repo.GetUser(c.Param("id"))
	if err != nil {
		respondRepoError(c, err, "Пользователь не найден")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultSellerName
	}

	user.Name = name
	user.Craft = req.Craft
	user.Mode = models.ViewModeSeller
	user.Registered = true

	if err := h.repo.UpdateUser(user); err != nil {
		respondRepoError(c, err, "Пользователь не найден")
		return
	}

	log.Printf("✅ Продавец зарегистрирован: %s (%s)", user.Name, user.Craft)
	h.invalidateStats()

	c.JSON(http.StatusOK, user)
}
