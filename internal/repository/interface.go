package repository

import (
	"errors"

	"artisan-market/internal/models"
)

// ErrNotFound - запись не найдена
var ErrNotFound = errors.New("запись не найдена")

// RepositoryInterface определяет контракт для работы с данными
// Это позволяет легко мокать репозиторий в тестах
type RepositoryInterface interface {
	// Users
	GetOrCreateUser(mobile string) (*models.User, error)
	GetUser(id string) (*models.User, error)
	UpdateUser(user *models.User) error

	// Listings
	CreateListing(listing *models.Listing) error
	GetListing(id string) (*models.Listing, error)
	ModifyListing(id string, apply func(l *models.Listing) error) (*models.Listing, error)
	GetListings(sellerID string, publishedOnly bool) ([]models.Listing, error)

	// Tasks
	CreateTask(taskID string, totalSteps int) error
	GetTask(taskID string) (*models.Task, error)
	UpdateTaskProgress(taskID string, step int) error
	UpdateTaskStatus(taskID, status string, errorMsg *string) error
	SetTaskListing(taskID, listingID string) error

	// Catalog
	GetProducts() ([]models.Product, error)
	GetProduct(id string) (*models.Product, error)

	// Cart
	GetCart(userID string) (*models.Cart, error)
	AddToCart(userID, productID string) (*models.Cart, error)
	UpdateCartQuantity(userID, productID string, quantity int) (*models.Cart, error)
	RemoveFromCart(userID, productID string) (*models.Cart, error)

	// Stats
	GetStats() (*models.Stats, error)
}

// Проверяем что Repository реализует RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
