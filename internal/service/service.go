// Package service реализует бизнес-логику магазина DERA.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/valelectronic/DERA-PROJECT/internal/imagehost"
	"github.com/valelectronic/DERA-PROJECT/internal/model"
	"github.com/valelectronic/DERA-PROJECT/internal/paystack"
	"github.com/valelectronic/DERA-PROJECT/internal/repository"
)

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmptyCheckout возвращается при оформлении заказа с пустым списком товаров.
	ErrEmptyCheckout = errors.New("checkout requires at least one product")
	// ErrInvalidQuantity возвращается, если количество товара меньше единицы.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, name, email string, passwordHash []byte, role model.UserRole) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)

	GetCart(ctx context.Context, userID int64) ([]model.CartItem, error)
	AddCartItem(ctx context.Context, userID, productID int64) error
	SetCartItemQuantity(ctx context.Context, userID, productID int64, quantity int) error
	RemoveCartItem(ctx context.Context, userID, productID int64) error
	ClearCart(ctx context.Context, userID int64) error

	CreateProduct(ctx context.Context, p model.Product) (int64, error)
	GetProductByID(ctx context.Context, id int64) (*model.Product, error)
	GetProducts(ctx context.Context) ([]model.Product, error)
	GetFeaturedProducts(ctx context.Context) ([]model.Product, error)
	GetProductsByCategory(ctx context.Context, category string) ([]model.Product, error)
	GetRandomProducts(ctx context.Context, limit int) ([]model.Product, error)
	UpdateProduct(ctx context.Context, p model.Product) error
	SetProductFeatured(ctx context.Context, id int64, featured bool) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	CreateOrder(ctx context.Context, userID int64, reference string, totalCents int64, items []repository.OrderItemParams) (int64, error)
	GetOrderByPaymentReference(ctx context.Context, reference string) (*model.Order, error)
	MarkOrderPaid(ctx context.Context, reference string, upd repository.PaymentUpdate) (bool, error)
	CreateCoupon(ctx context.Context, c model.Coupon) (int64, error)
	DeactivateCoupon(ctx context.Context, code string, userID int64) error
	GetActiveCoupon(ctx context.Context, code string, userID int64) (*model.Coupon, error)
	GetActiveCouponForUser(ctx context.Context, userID int64) (*model.Coupon, error)
}

// Cache описывает контракт кеша горячих выборок.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// GatewayClient описывает контракт платёжного шлюза.
type GatewayClient interface {
	InitializeTransaction(ctx context.Context, req paystack.TransactionRequest) (*paystack.Transaction, error)
}

// ImageHost описывает контракт хостинга изображений.
type ImageHost interface {
	Upload(ctx context.Context, imageBase64, folder string) (*imagehost.Asset, error)
	Destroy(ctx context.Context, publicID string) error
}

// Options содержит параметры платёжного потока сервиса.
type Options struct {
	CallbackBaseURL string
	CurrencyCode    string
}

// Service содержит бизнес-логику магазина DERA.
type Service struct {
	repo    Repository
	cache   Cache
	gateway GatewayClient
	images  ImageHost
	opts    Options
}

// NewService создаёт новый сервис. Кеш и хостинг изображений опциональны:
// при nil соответствующая функциональность отключается.
func NewService(repo Repository, cache Cache, gateway GatewayClient, images ImageHost, opts Options) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		gateway: gateway,
		images:  images,
		opts:    opts,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// SignUp регистрирует нового пользователя с ролью customer.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" || email == "" {
		return nil, fmt.Errorf("name and email are required")
	}
	if !isValidEmail(email) {
		return nil, fmt.Errorf("invalid email format")
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters long")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.repo.CreateUser(ctx, name, email, hash, model.RoleCustomer)
	if err != nil {
		return nil, err
	}

	return &model.User{
		ID:    id,
		Name:  name,
		Email: email,
		Role:  model.RoleCustomer,
	}, nil
}

// GetUser возвращает профиль пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// LogIn проверяет email и пароль пользователя и возвращает его профиль.
func (s *Service) LogIn(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}

	return u, nil
}

func isValidEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
