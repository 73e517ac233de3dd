package main

import (
	"fmt"
	"log"
	"time"

	"artisan-market/internal/api/handlers"
	"artisan-market/internal/api/middleware"
	"artisan-market/internal/api/websocket"
	"artisan-market/internal/camera"
	"artisan-market/internal/config"
	"artisan-market/internal/repository"
	"artisan-market/internal/service/cache"
	"artisan-market/internal/service/capture"
	"artisan-market/internal/service/listing"
	"artisan-market/internal/service/otp"
	"artisan-market/internal/service/storage"
	"artisan-market/internal/service/translate"
	"artisan-market/internal/verify"

	"github.com/gin-gonic/gin"
)

func main() {
	// ASCII баннер
	printBanner()

	// Загружаем конфигурацию
	cfg := config.Load()
	log.Println("✅ Конфигурация загружена")

	// Инициализируем Redis кэш
	var cacheService *cache.Service
	if cfg.Redis.Enabled {
		var err error
		cacheService, err = cache.NewService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("⚠️  Redis недоступен (работаем без кэша): %v\n", err)
			cacheService = nil
		} else {
			defer cacheService.Close()
			cacheService.SetVerificationTTL(cfg.Verify.CacheTTL)
			log.Println("✅ Redis кэш подключен")
		}
	}

	// Хранилище данных прототипа - в памяти процесса
	repo := repository.NewRepository()

	// Инициализируем storage service
	storageService, err := storage.NewService(cfg.Storage.UploadsDir)
	if err != nil {
		log.Fatalf("❌ Ошибка инициализации storage: %v\n", err)
	}
	log.Println("✅ Storage сервис инициализирован")
	if cfg.Storage.Retention > 0 {
		go cleanupUploads(storageService, cfg.Storage.Retention)
	}

	// Инициализируем WebSocket manager
	wsManager := websocket.NewManager()
	go wsManager.Run() // Запускаем в отдельной горутине
	defer wsManager.Stop()
	log.Println("✅ WebSocket manager запущен")

	// Камера: кадры из каталога вместо устройства
	gate := camera.NewGate(cfg.Camera.Device())
	cameraManager := camera.NewManager(gate, cfg.Camera.Settings())
	cameraManager.OnStatus(func(ev camera.StatusEvent) {
		wsManager.BroadcastCameraStatus(ev)
	})
	defer cameraManager.Stop()
	log.Printf("✅ Камера: кадры из %s\n", cfg.Camera.FramesDir)

	// Проверка фото и OTP используют Redis, если он есть
	var resultCache verify.ResultCache
	var otpStore otp.Store = otp.NewMemoryStore()
	if cacheService != nil {
		resultCache = cacheService
		otpStore = cacheService
	}
	verifier := verify.New(resultCache)
	verifier.Latency = cfg.Verify.Latency

	otpService := otp.NewService(otpStore, nil, cfg.OTP.TTL)
	if cfg.OTP.DevEcho {
		log.Println("⚠️  OTP_DEV_ECHO включён: коды возвращаются в ответе")
	}

	translator := translate.NewService()
	generator := listing.NewGenerator(storageService, translator, cfg.Listing.DefaultPrice, cfg.Listing.StepScale)

	var flow *capture.Flow
	flow = capture.NewFlow(cameraManager, verifier, storageService, func(ref string) {
		wsManager.BroadcastCaptureState(flow.State())
	})

	handler := handlers.NewHandler(
		repo, storageService, otpService, cameraManager, flow,
		generator, translator, cacheService, wsManager, cfg.OTP.DevEcho,
	)
	if facing, err := camera.ParseFacing(cfg.Camera.DefaultFacing); err == nil {
		handler.SetDefaultFacing(facing)
	} else {
		log.Printf("⚠️  CAMERA_DEFAULT_FACING: %v\n", err)
	}

	// Создаем роутер
	router := setupRouter(handler, wsManager, cameraManager, flow, cfg)

	// Запускаем сервер
	log.Println("🎉 Сервер успешно запущен!")
	log.Printf("🌐 Веб-интерфейс: http://localhost:%s\n", cfg.Server.Port)
	log.Printf("📡 API: http://localhost:%s/api\n", cfg.Server.Port)
	log.Printf("🔌 WebSocket: ws://localhost:%s/ws\n", cfg.Server.Port)
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	if err := router.Run(cfg.Server.Addr()); err != nil {
		log.Fatalf("❌ Ошибка запуска сервера: %v\n", err)
	}
}

// setupRouter настраивает роутер с middleware и endpoints
func setupRouter(handler *handlers.Handler, wsManager *websocket.Manager, cameraManager *camera.Manager, flow *capture.Flow, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())
	router.Use(middleware.Recovery())

	// Статические файлы
	router.Static("/uploads", cfg.Storage.UploadsDir)

	// WebSocket endpoint: новый клиент сразу получает статус камеры и съёмки
	wsHandler := websocket.NewHandler(wsManager, func() []websocket.Message {
		return []websocket.Message{
			{Type: websocket.MessageTypeCameraStatus, Payload: cameraManager.Status()},
			{Type: websocket.MessageTypeCaptureState, Payload: flow.State()},
		}
	})
	router.GET("/ws", wsHandler.HandleWebSocket)

	// API группа
	api := router.Group("/api")
	{
		// Вход по OTP
		api.POST("/auth/otp/send", handler.HandleSendOTP)
		api.POST("/auth/otp/verify", handler.HandleVerifyOTP)

		// Профиль
		api.GET("/users/:id", handler.HandleGetUser)
		api.PUT("/users/:id/language", handler.HandleSetLanguage)
		api.PUT("/users/:id/mode", handler.HandleSetMode)
		api.POST("/users/:id/register", handler.HandleRegisterSeller)

		// Камера
		api.POST("/camera/start", handler.HandleCameraStart)
		api.POST("/camera/flip", handler.HandleCameraFlip)
		api.POST("/camera/resume", handler.HandleCameraResume)
		api.POST("/camera/stop", handler.HandleCameraStop)
		api.GET("/camera/status", handler.HandleCameraStatus)

		// Съёмка и проверка фото
		api.POST("/capture", handler.HandleCapture)
		api.POST("/capture/upload", handler.HandleCaptureUpload)
		api.POST("/capture/retake", handler.HandleCaptureRetake)
		api.POST("/capture/reset", handler.HandleCaptureReset)
		api.GET("/capture/state", handler.HandleCaptureState)

		// Карточки товара
		api.POST("/listings/generate", handler.HandleGenerateListing)
		api.GET("/listings", handler.HandleGetListings)
		api.GET("/listings/:id", handler.HandleGetListing)
		api.PATCH("/listings/:id/price", handler.HandleAdjustPrice)
		api.POST("/listings/:id/publish", handler.HandlePublishListing)
		api.GET("/task/:id", handler.HandleTaskStatus)

		// Перевод
		api.POST("/translate", handler.HandleTranslate)

		// Каталог и корзина
		api.GET("/products", handler.HandleGetProducts)
		api.GET("/products/:id", handler.HandleGetProduct)
		api.GET("/cart/:userId", handler.HandleGetCart)
		api.POST("/cart/:userId/items", handler.HandleAddToCart)
		api.PUT("/cart/:userId/items/:productId", handler.HandleUpdateCartItem)
		api.DELETE("/cart/:userId/items/:productId", handler.HandleRemoveFromCart)

		// Статистика
		api.GET("/stats", handler.HandleGetStats)
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":     "ok",
			"service":    "artisan-market-api",
			"version":    "0.1.0",
			"camera":     cameraManager.Status().Status,
			"ws_clients": wsManager.ClientCount(),
		})
	})

	return router
}

// cleanupUploads периодически удаляет старые фото
func cleanupUploads(s *storage.Service, retention time.Duration) {
	ticker := time.NewTicker(max(retention/2, time.Second))
	defer ticker.Stop()

	for range ticker.C {
		removed, err := s.CleanupOlderThan(retention)
		if err != nil {
			log.Printf("⚠️  Очистка uploads: %v\n", err)
			continue
		}
		if removed > 0 {
			log.Printf("🧹 Удалено старых фото: %d\n", removed)
		}
	}
}

// printBanner печатает баннер при старте
func printBanner() {
	banner := `
╔═══════════════════════════════════════════════════════╗
║                                                       ║
║   🏺  ARTISAN MARKET                                  ║
║                                                       ║
║   Маркетплейс ремесленников: съёмка товара,          ║
║   проверка фото и карточка за минуту                 ║
║                                                       ║
║   Версия: 0.1.0                                      ║
║                                                       ║
╚═══════════════════════════════════════════════════════╝
`
	fmt.Println(banner)
	log.Println("🚀 Инициализация сервисов...")
}
