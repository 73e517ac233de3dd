package models

import (
	"time"
)

// Language - язык интерфейса, выбранный пользователем
type Language string

const (
	LanguageHindi   Language = "hindi"
	LanguageBengali Language = "bengali"
	LanguageTamil   Language = "tamil"
	LanguageTelugu  Language = "telugu"
	LanguageMarathi Language = "marathi"
	LanguageEnglish Language = "english"
)

// Languages - все поддерживаемые языки в порядке экрана выбора
var Languages = []Language{
	LanguageHindi, LanguageBengali, LanguageTamil,
	LanguageTelugu, LanguageMarathi, LanguageEnglish,
}

// Valid проверяет что язык поддерживается
func (l Language) Valid() bool {
	for _, known := range Languages {
		if l == known {
			return true
		}
	}
	return false
}

// Craft - ремесло продавца
type Craft string

const (
	CraftPottery   Craft = "pottery"
	CraftWeaving   Craft = "weaving"
	CraftPainting  Craft = "painting"
	CraftWoodwork  Craft = "woodwork"
	CraftMetalwork Craft = "metalwork"
)

// Crafts - все ремесла
var Crafts = []Craft{CraftPottery, CraftWeaving, CraftPainting, CraftWoodwork, CraftMetalwork}

// Valid проверяет что ремесло известно
func (c Craft) Valid() bool {
	for _, known := range Crafts {
		if c == known {
			return true
		}
	}
	return false
}

// ViewMode - режим приложения: покупатель или продавец
type ViewMode string

const (
	ViewModeBuyer  ViewMode = "buyer"
	ViewModeSeller ViewMode = "seller"
)

// User представляет пользователя после входа по OTP
type User struct {
	ID         string    `json:"id"`
	Mobile     string    `json:"mobile"`
	Name       string    `json:"name"`
	Craft      Craft     `json:"craft,omitempty"`
	Language   Language  `json:"language"`
	Mode       ViewMode  `json:"mode"`
	Registered bool      `json:"registered"`
	CreatedAt  time.Time `json:"created_at"`
}

// Product - товар в каталоге покупателя
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int    `json:"price"`
	Image    string `json:"image"`
	Artisan  string `json:"artisan"`
	Location string `json:"location"`
	Craft    string `json:"craft"`
}

// Listing - карточка товара, созданная продавцом через сценарий продажи
type Listing struct {
	ID          string     `json:"id"`
	SellerID    string     `json:"seller_id"`
	ImageRef    string     `json:"image_ref"`
	EnhancedRef string     `json:"enhanced_ref,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Translated  string     `json:"translated,omitempty"`
	Language    Language   `json:"language"`
	Price       int        `json:"price"`
	Published   bool       `json:"published"`
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// CartItem - позиция корзины
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Cart - корзина пользователя с итогами
type Cart struct {
	Items     []CartItem `json:"items"`
	Total     int        `json:"total"`
	ItemCount int        `json:"item_count"`
}

// Task представляет фоновую задачу генерации карточки
type Task struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"` // processing, completed, failed
	ListingID    string     `json:"listing_id,omitempty"`
	Step         int        `json:"step"`
	TotalSteps   int        `json:"total_steps"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Константы статусов задач
const (
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// VerificationResult - результат проверки фото товара.
// Создаётся один раз на каждое отправленное изображение и дальше не меняется.
type VerificationResult struct {
	Verified   bool     `json:"verified"`
	Labels     []string `json:"labels"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason,omitempty"`
	Width      int      `json:"width,omitempty"`
	Height     int      `json:"height,omitempty"`
	Luminance  float64  `json:"luminance,omitempty"`
}

// Причины неуспешной проверки
const (
	ReasonLoadFailed       = "load_failed"
	ReasonProcessingFailed = "processing_failed"
	ReasonCanceled         = "canceled"
)

// Stats - общая статистика системы
type Stats struct {
	TotalUsers     int `json:"total_users"`
	TotalSellers   int `json:"total_sellers"`
	TotalListings  int `json:"total_listings"`
	PublishedCount int `json:"published_listings"`
	TotalTasks     int `json:"total_tasks"`
}

// ============ REQUESTS / RESPONSES ============

// SendOTPRequest - запрос на отправку кода
type SendOTPRequest struct {
	Mobile string `json:"mobile" binding:"required"`
}

// SendOTPResponse - ответ на отправку кода
type SendOTPResponse struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
	DevCode   string    `json:"dev_code,omitempty"`
}

// VerifyOTPRequest - проверка введённого кода
type VerifyOTPRequest struct {
	Mobile string `json:"mobile" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

// VerifyOTPResponse - результат проверки кода
type VerifyOTPResponse struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
	User    *User  `json:"user,omitempty"`
}

// LanguageRequest - выбор языка
type LanguageRequest struct {
	Language Language `json:"language" binding:"required"`
}

// ModeRequest - выбор режима
type ModeRequest struct {
	Mode ViewMode `json:"mode" binding:"required"`
}

// RegisterRequest - регистрация продавца
type RegisterRequest struct {
	Craft Craft  `json:"craft" binding:"required"`
	Name  string `json:"name"`
}

// CameraStartRequest - запуск камеры
type CameraStartRequest struct {
	Facing string `json:"facing"`
}

// CaptureResponse - результат съёмки и проверки
type CaptureResponse struct {
	State    string             `json:"state"`
	Result   VerificationResult `json:"result"`
	ImageRef string             `json:"image_ref,omitempty"`
	Retries  int                `json:"retries"`
	Dim      bool               `json:"dim,omitempty"`
}

// GenerateListingRequest - запуск генерации карточки
type GenerateListingRequest struct {
	SellerID      string   `json:"seller_id" binding:"required"`
	ImageRef      string   `json:"image_ref" binding:"required"`
	Transcription string   `json:"transcription"`
	Language      Language `json:"language"`
	Translate     bool     `json:"translate"`
}

// PriceRequest - изменение цены на delta
type PriceRequest struct {
	Delta int `json:"delta"`
}

// TranslateRequest - запрос перевода
type TranslateRequest struct {
	Text     string   `json:"text" binding:"required"`
	Language Language `json:"language" binding:"required"`
}

// CartAddRequest - добавление товара в корзину
type CartAddRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

// CartQuantityRequest - изменение количества
type CartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// TaskResponse - ответ на запуск фоновой задачи
type TaskResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// ErrorResponse - стандартный ответ с ошибкой
type ErrorResponse struct {
	Error    string `json:"error"`
	Fallback string `json:"fallback,omitempty"`
}

// OTPChallenge - выданный код подтверждения. Сам код не хранится, только его bcrypt-хэш.
type OTPChallenge struct {
	Mobile    string    `json:"mobile"`
	Hash      []byte    `json:"hash"`
	ExpiresAt time.Time `json:"expires_at"`
}
