package middleware

import (
	"log"
	"net/http"
	"strings"
	"time"

	"artisan-market/internal/models"

	"github.com/gin-gonic/gin"
)

// CORS добавляет заголовки CORS к ответам
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-User-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		// Обработка preflight запросов
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Logger логирует API запросы, кроме health check
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if path == "/health" || strings.HasPrefix(path, "/uploads/") {
			return
		}

		status := c.Writer.Status()
		marker := "➡️ "
		switch {
		case status >= 500:
			marker = "❌"
		case status >= 400:
			marker = "⚠️ "
		}
		log.Printf("%s %s %s -> %d (%v)", marker, c.Request.Method, path, status, time.Since(start).Round(time.Millisecond))
	}
}

// Recovery восстанавливает приложение после паники и отвечает JSON-ошибкой
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Printf("❌ Паника в %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Внутренняя ошибка сервера",
		})
	})
}
