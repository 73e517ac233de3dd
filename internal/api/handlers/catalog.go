package handlers

import (
	"errors"
	"net/http"

	"artisan-market/internal/models"
	"artisan-market/internal/service/translate"

	"github.com/gin-gonic/gin"
)

// ============ TRANSLATE ============

// HandleTranslate переводит текст (заглушка)
func (h *Handler) HandleTranslate(c *gin.Context) {
	var req models.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "text и language обязательны",
		})
		return
	}

	text, err := h.translator.Translate(c.Request.Context(), req.Text, req.Language)
	switch {
	case errors.Is(err, translate.ErrUnsupportedLanguage):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: err.Error(),
		})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"text":     text,
		"language": req.Language,
	})
}

// ============ CATALOG ============

// HandleGetProducts возвращает каталог покупателя
func (h *Handler) HandleGetProducts(c *gin.Context) {
	products, err := h.repo.GetProducts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, products)
}

// HandleGetProduct возвращает товар
func (h *Handler) HandleGetProduct(c *gin.Context) {
	p, err := h.repo.GetProduct(c.Param("id"))
	if err != nil {
		respondRepoError(c, err, "Товар не найден")
		return
	}
	c.JSON(http.StatusOK, p)
}

// ============ CART ============

// HandleGetCart возвращает корзину
func (h *Handler) HandleGetCart(c *gin.Context) {
	cart, err := h.repo.GetCart(c.Param("userId"))
	if err != nil {
		respondRepoError(c, err, "Корзина не найдена")
		return
	}
	c.JSON(http.StatusOK, cart)
}

// HandleAddToCart добавляет товар (повторное добавление увеличивает количество)
func (h *Handler) HandleAddToCart(c *gin.Context) {
	var req models.CartAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "product_id обязателен",
		})
		return
	}

	cart, err := h.repo.AddToCart(c.Param("userId"), req.ProductID)
	if err != nil {
		respondRepoError(c, err, "Товар не найден")
		return
	}
	c.JSON(http.StatusOK, cart)
}

// HandleUpdateCartItem меняет количество; 0 и меньше удаляет позицию
func (h *Handler) HandleUpdateCartItem(c *gin.Context) {
	var req models.CartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "quantity обязателен",
		})
		return
	}

	cart, err := h.repo.UpdateCartQuantity(c.Param("userId"), c.Param("productId"), req.Quantity)
	if err != nil {
		respondRepoError(c, err, "Товар не найден в корзине")
		return
	}
	c.JSON(http.StatusOK, cart)
}

// HandleRemoveFromCart удаляет позицию
func (h *Handler) HandleRemoveFromCart(c *gin.Context) {
	cart, err := h.repo.RemoveFromCart(c.Param("userId"), c.Param("productId"))
	if err != nil {
		respondRepoError(c, err, "Товар не найден в корзине")
		return
	}
	c.JSON(http.StatusOK, cart)
}
