package repository

import (
	"sort"
	"sync"
	"time"

	"artisan-market/internal/models"

	"github.com/google/uuid"
)

// Repository хранит данные прототипа в памяти процесса
type Repository struct {
	mu       sync.RWMutex
	users    map[string]*models.User // по ID
	mobiles  map[string]string       // телефон -> ID
	listings map[string]*models.Listing
	tasks    map[string]*models.Task
	catalog  []models.Product
	carts    map[string][]cartLine // по ID пользователя
	now      func() time.Time
}

type cartLine struct {
	productID string
	quantity  int
}

// SeedProducts - витрина покупателя до появления первых карточек
var SeedProducts = []models.Product{
	{ID: "1", Name: "Handmade Clay Pot", Price: 450, Image: "catalog/clay-pot.jpg", Artisan: "Ramesh Kumar", Location: "Rajasthan", Craft: "Pottery"},
	{ID: "2", Name: "Traditional Woven Basket", Price: 600, Image: "catalog/woven-basket.jpg", Artisan: "Lakshmi Devi", Location: "West Bengal", Craft: "Weaving"},
	{ID: "3", Name: "Folk Art Painting", Price: 1200, Image: "catalog/folk-painting.jpg", Artisan: "Priya Sharma", Location: "Madhya Pradesh", Craft: "Painting"},
	{ID: "4", Name: "Wooden Handicraft", Price: 850, Image: "catalog/wooden-handicraft.jpg", Artisan: "Vijay Singh", Location: "Kerala", Craft: "Woodwork"},
}

// NewRepository создает новый репозиторий с витриной по умолчанию
func NewRepository() *Repository {
	catalog := make([]models.Product, len(SeedProducts))
	copy(catalog, SeedProducts)

	return &Repository{
		users:    make(map[string]*models.User),
		mobiles:  make(map[string]string),
		listings: make(map[string]*models.Listing),
		tasks:    make(map[string]*models.Task),
		catalog:  catalog,
		carts:    make(map[string][]cartLine),
		now:      time.Now,
	}
}

// ============ USERS ============

// GetOrCreateUser находит пользователя по номеру или создаёт нового
func (r *Repository) GetOrCreateUser(mobile string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.mobiles[mobile]; ok {
		u := *r.users[id]
		return &u, nil
	}

	user := &models.User{
		ID:        uuid.New().String(),
		Mobile:    mobile,
		Language:  models.LanguageEnglish,
		CreatedAt: r.now(),
	}
	r.users[user.ID] = user
	r.mobiles[mobile] = user.ID

	u := *user
	return &u, nil
}

// GetUser получает пользователя по ID
func (r *Repository) GetUser(id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u := *user
	return &u, nil
}

// UpdateUser сохраняет изменения профиля
func (r *Repository) UpdateUser(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return ErrNotFound
	}
	u := *user
	r.users[user.ID] = &u
	return nil
}

// ============ LISTINGS ============

// CreateListing сохраняет новую карточку
func (r *Repository) CreateListing(listing *models.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l := *listing
	r.listings[listing.ID] = &l
	return nil
}

// GetListing получает карточку по ID
func (r *Repository) GetListing(id string) (*models.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	listing, ok := r.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	l := *listing
	return &l, nil
}

// ModifyListing применяет изменение к карточке под блокировкой.
// Если apply вернул ошибку, карточка остаётся прежней.
func (r *Repository) ModifyListing(id string, apply func(l *models.Listing) error) (*models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	listing, ok := r.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	l := *listing
	if err := apply(&l); err != nil {
		return nil, err
	}
	r.listings[id] = &l

	out := l
	return &out, nil
}

// GetListings возвращает карточки продавца (или всех, если sellerID пустой), новые первыми
func (r *Repository) GetListings(sellerID string, publishedOnly bool) ([]models.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.Listing
	for _, l := range r.listings {
		if sellerID != "" && l.SellerID != sellerID {
			continue
		}
		if publishedOnly && !l.Published {
			continue
		}
		result = append(result, *l)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// ============ TASKS ============

// CreateTask создает новую задачу генерации
func (r *Repository) CreateTask(taskID string, totalSteps int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[taskID] = &models.Task{
		ID:         taskID,
		Status:     models.TaskStatusProcessing,
		TotalSteps: totalSteps,
		CreatedAt:  r.now(),
	}
	return nil
}

// GetTask получает задачу по ID
func (r *Repository) GetTask(taskID string) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	t := *task
	return &t, nil
}

// UpdateTaskProgress запоминает последний выполненный шаг
func (r *Repository) UpdateTaskProgress(taskID string, step int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	task.Step = step
	return nil
}

// UpdateTaskStatus обновляет статус задачи
func (r *Repository) UpdateTaskStatus(taskID, status string, errorMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	task.Status = status
	if errorMsg != nil {
		task.ErrorMessage = *errorMsg
	}
	if status != models.TaskStatusProcessing {
		now := r.now()
		task.CompletedAt = &now
	}
	return nil
}

// SetTaskListing привязывает готовую карточку к задаче
func (r *Repository) SetTaskListing(taskID, listingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	task.ListingID = listingID
	return nil
}

// ============ CATALOG ============

// GetProducts возвращает витрину: опубликованные карточки, затем стартовые товары
func (r *Repository) GetProducts() ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.productsLocked(), nil
}

// GetProduct получает товар витрины по ID
func (r *Repository) GetProduct(id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.productLocked(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *Repository) productsLocked() []models.Product {
	var published []*models.Listing
	for _, l := range r.listings {
		if l.Published {
			published = append(published, l)
		}
	}
	sort.Slice(published, func(i, j int) bool {
		return published[i].CreatedAt.After(published[j].CreatedAt)
	})

	products := make([]models.Product, 0, len(published)+len(r.catalog))
	for _, l := range published {
		products = append(products, r.listingProductLocked(l))
	}
	return append(products, r.catalog...)
}

func (r *Repository) productLocked(id string) (models.Product, bool) {
	for _, p := range r.catalog {
		if p.ID == id {
			return p, true
		}
	}
	if l, ok := r.listings[id]; ok && l.Published {
		return r.listingProductLocked(l), true
	}
	return models.Product{}, false
}

// listingProductLocked превращает опубликованную карточку в товар витрины
func (r *Repository) listingProductLocked(l *models.Listing) models.Product {
	image := l.ImageRef
	if l.EnhancedRef != "" {
		image = l.EnhancedRef
	}
	p := models.Product{
		ID:    l.ID,
		Name:  l.Title,
		Price: l.Price,
		Image: "uploads/" + image,
	}
	if seller, ok := r.users[l.SellerID]; ok {
		p.Artisan = seller.Name
		p.Craft = string(seller.Craft)
	}
	return p
}

// ============ CART ============

// GetCart возвращает корзину пользователя
func (r *Repository) GetCart(userID string) (*models.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cartLocked(userID), nil
}

// AddToCart добавляет товар; повторное добавление увеличивает количество
func (r *Repository) AddToCart(userID, productID string) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.productLocked(productID); !ok {
		return nil, ErrNotFound
	}

	lines := r.carts[userID]
	for i := range lines {
		if lines[i].productID == productID {
			lines[i].quantity++
			return r.cartLocked(userID), nil
		}
	}
	r.carts[userID] = append(lines, cartLine{productID: productID, quantity: 1})
	return r.cartLocked(userID), nil
}

// UpdateCartQuantity задаёт количество; 0 и меньше удаляет позицию
func (r *Repository) UpdateCartQuantity(userID, productID string, quantity int) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := r.carts[userID]
	for i := range lines {
		if lines[i].productID != productID {
			continue
		}
		if quantity <= 0 {
			r.carts[userID] = append(lines[:i], lines[i+1:]...)
		} else {
			lines[i].quantity = quantity
		}
		return r.cartLocked(userID), nil
	}
	return nil, ErrNotFound
}

// RemoveFromCart удаляет позицию из корзины
func (r *Repository) RemoveFromCart(userID, productID string) (*models.Cart, error) {
	return r.UpdateCartQuantity(userID, productID, 0)
}

func (r *Repository) cartLocked(userID string) *models.Cart {
	cart := &models.Cart{Items: []models.CartItem{}}
	for _, line := range r.carts[userID] {
		p, ok := r.productLocked(line.productID)
		if !ok {
			continue
		}
		cart.Items = append(cart.Items, models.CartItem{Product: p, Quantity: line.quantity})
		cart.Total += p.Price * line.quantity
		cart.ItemCount += line.quantity
	}
	return cart
}

// ============ STATS ============

// GetStats возвращает общую статистику
func (r *Repository) GetStats() (*models.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.Stats{
		TotalUsers:    len(r.users),
		TotalListings: len(r.listings),
		TotalTasks:    len(r.tasks),
	}
	for _, u := range r.users {
		if u.Mode == models.ViewModeSeller && u.Registered {
			stats.TotalSellers++
		}
	}
	for _, l := range r.listings {
		if l.Published {
			stats.PublishedCount++
		}
	}
	return stats, nil
}
