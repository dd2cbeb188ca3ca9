package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/valelectronic/DERA-PROJECT/internal/imagehost"
	"github.com/valelectronic/DERA-PROJECT/internal/model"
	"github.com/valelectronic/DERA-PROJECT/internal/paystack"
	"github.com/valelectronic/DERA-PROJECT/internal/repository"
)

type createdOrder struct {
	userID     int64
	reference  string
	totalCents int64
	items      []repository.OrderItemParams
}

type stubRepo struct {
	createUserID   int64
	createUserErr  error
	userByEmail    *model.User
	userByEmailErr error

	products      map[int64]model.Product
	featured      []model.Product
	featuredErr   error
	featuredCalls int

	cart        []model.CartItem
	removedID   int64
	cartCleared bool

	createdProduct   *model.Product
	updatedProduct   *model.Product
	deletedProductID int64
	setFeaturedTo    *bool

	created        *createdOrder
	createOrderErr error
	orderByRef     *model.Order
	orderByRefErr  error
	markPaidCalls  int
	markPaidMiss   bool
	lastUpdate     *repository.PaymentUpdate

	coupon           *model.Coupon
	couponErr        error
	couponForUser    *model.Coupon
	couponForUserErr error
	createdCoupon    *model.Coupon
	deactivatedCode  string

	closed bool
}

func (s *stubRepo) Close() error {
	s.closed = true
	return nil
}

func (s *stubRepo) CreateUser(ctx context.Context, name, email string, passwordHash []byte, role model.UserRole) (int64, error) {
	return s.createUserID, s.createUserErr
}

func (s *stubRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if s.userByEmailErr != nil {
		return nil, s.userByEmailErr
	}
	if s.userByEmail == nil {
		return nil, repository.ErrUserNotFound
	}
	return s.userByEmail, nil
}

func (s *stubRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.userByEmail, s.userByEmailErr
}

func (s *stubRepo) GetCart(ctx context.Context, userID int64) ([]model.CartItem, error) {
	return s.cart, nil
}

func (s *stubRepo) AddCartItem(ctx context.Context, userID, productID int64) error {
	s.cart = append(s.cart, model.CartItem{ProductID: productID, Quantity: 1})
	return nil
}

func (s *stubRepo) SetCartItemQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	for i := range s.cart {
		if s.cart[i].ProductID == productID {
			s.cart[i].Quantity = quantity
			return nil
		}
	}
	return repository.ErrCartItemNotFound
}

func (s *stubRepo) RemoveCartItem(ctx context.Context, userID, productID int64) error {
	s.removedID = productID
	return nil
}

func (s *stubRepo) ClearCart(ctx context.Context, userID int64) error {
	s.cartCleared = true
	return nil
}

func (s *stubRepo) CreateProduct(ctx context.Context, p model.Product) (int64, error) {
	s.createdProduct = &p
	return 101, nil
}

func (s *stubRepo) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (s *stubRepo) GetProducts(ctx context.Context) ([]model.Product, error) {
	res := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		res = append(res, p)
	}
	return res, nil
}

func (s *stubRepo) GetFeaturedProducts(ctx context.Context) ([]model.Product, error) {
	s.featuredCalls++
	return s.featured, s.featuredErr
}

func (s *stubRepo) GetProductsByCategory(ctx context.Context, category string) ([]model.Product, error) {
	return nil, nil
}

func (s *stubRepo) GetRandomProducts(ctx context.Context, limit int) ([]model.Product, error) {
	return nil, nil
}

func (s *stubRepo) UpdateProduct(ctx context.Context, p model.Product) error {
	s.updatedProduct = &p
	return nil
}

func (s *stubRepo) SetProductFeatured(ctx context.Context, id int64, featured bool) (*model.Product, error) {
	s.setFeaturedTo = &featured
	p, ok := s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	p.IsFeatured = featured
	return &p, nil
}

func (s *stubRepo) DeleteProduct(ctx context.Context, id int64) error {
	s.deletedProductID = id
	return nil
}

func (s *stubRepo) CreateOrder(ctx context.Context, userID int64, reference string, totalCents int64, items []repository.OrderItemParams) (int64, error) {
	if s.createOrderErr != nil {
		return 0, s.createOrderErr
	}
	s.created = &createdOrder{
		userID:     userID,
		reference:  reference,
		totalCents: totalCents,
		items:      items,
	}
	return 1, nil
}

func (s *stubRepo) GetOrderByPaymentReference(ctx context.Context, reference string) (*model.Order, error) {
	if s.orderByRefErr != nil {
		return nil, s.orderByRefErr
	}
	if s.orderByRef == nil {
		return nil, repository.ErrOrderNotFound
	}
	return s.orderByRef, nil
}

func (s *stubRepo) MarkOrderPaid(ctx context.Context, reference string, upd repository.PaymentUpdate) (bool, error) {
	s.markPaidCalls++
	s.lastUpdate = &upd
	return !s.markPaidMiss, nil
}

func (s *stubRepo) CreateCoupon(ctx context.Context, c model.Coupon) (int64, error) {
	s.createdCoupon = &c
	return 1, nil
}

func (s *stubRepo) DeactivateCoupon(ctx context.Context, code string, userID int64) error {
	s.deactivatedCode = code
	return nil
}

func (s *stubRepo) GetActiveCoupon(ctx context.Context, code string, userID int64) (*model.Coupon, error) {
	if s.couponErr != nil {
		return nil, s.couponErr
	}
	if s.coupon == nil || s.coupon.Code != code || s.coupon.UserID != userID {
		return nil, repository.ErrCouponNotFound
	}
	return s.coupon, nil
}

func (s *stubRepo) GetActiveCouponForUser(ctx context.Context, userID int64) (*model.Coupon, error) {
	if s.couponForUserErr != nil {
		return nil, s.couponForUserErr
	}
	if s.couponForUser == nil {
		return nil, repository.ErrCouponNotFound
	}
	return s.couponForUser, nil
}

type stubGateway struct {
	lastRequest *paystack.TransactionRequest
	response    *paystack.Transaction
	err         error
}

func (g *stubGateway) InitializeTransaction(ctx context.Context, req paystack.TransactionRequest) (*paystack.Transaction, error) {
	g.lastRequest = &req
	if g.err != nil {
		return nil, g.err
	}
	if g.response != nil {
		return g.response, nil
	}
	return &paystack.Transaction{
		AuthorizationURL: "https://checkout.example.com/" + req.Reference,
		AccessCode:       "code",
		Reference:        req.Reference,
	}, nil
}

type fakeCache struct {
	data    map[string][]byte
	sets    int
	deletes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := c.data[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return v, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.sets++
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.deletes++
	delete(c.data, key)
	return nil
}

type stubImages struct {
	uploaded  []string
	destroyed []string
	uploadErr error
}

func (i *stubImages) Upload(ctx context.Context, imageBase64, folder string) (*imagehost.Asset, error) {
	if i.uploadErr != nil {
		return nil, i.uploadErr
	}
	i.uploaded = append(i.uploaded, imageBase64)
	return &imagehost.Asset{
		SecureURL: "https://img.example.com/" + folder + "/uploaded.jpg",
		PublicID:  folder + "/uploaded",
	}, nil
}

func (i *stubImages) Destroy(ctx context.Context, publicID string) error {
	i.destroyed = append(i.destroyed, publicID)
	return nil
}

func hashFor(t *testing.T, password string) []byte {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return h
}

func TestSignUp_PropagatesDuplicateError(t *testing.T) {
	repo := &stubRepo{
		createUserErr: repository.ErrUserExists,
	}
	svc := NewService(repo, nil, nil, nil, Options{})

	_, err := svc.SignUp(context.Background(), "User", "user@example.com", "secret1")
	if !errors.Is(err, repository.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestSignUp_Validation(t *testing.T) {
	svc := NewService(&stubRepo{}, nil, nil, nil, Options{})

	tests := []struct {
		name     string
		userName string
		email    string
		password string
	}{
		{name: "empty name", userName: "", email: "user@example.com", password: "secret1"},
		{name: "bad email", userName: "User", email: "not-an-email", password: "secret1"},
		{name: "short password", userName: "User", email: "user@example.com", password: "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SignUp(context.Background(), tt.userName, tt.email, tt.password); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestSignUp_NormalizesEmail(t *testing.T) {
	repo := &stubRepo{createUserID: 5}
	svc := NewService(repo, nil, nil, nil, Options{})

	u, err := svc.SignUp(context.Background(), "User", "  User@Example.COM ", "secret1")
	if err != nil {
		t.Fatalf("SignUp error: %v", err)
	}
	if u.Email != "user@example.com" {
		t.Fatalf("email = %q, want normalized", u.Email)
	}
	if u.Role != model.RoleCustomer {
		t.Fatalf("role = %q, want customer", u.Role)
	}
}

func TestLogIn_Success(t *testing.T) {
	repo := &stubRepo{
		userByEmail: &model.User{
			ID:           1,
			Email:        "user@example.com",
			PasswordHash: hashFor(t, "correct"),
			Role:         model.RoleCustomer,
		},
	}
	svc := NewService(repo, nil, nil, nil, Options{})

	u, err := svc.LogIn(context.Background(), "user@example.com", "correct")
	if err != nil {
		t.Fatalf("LogIn error: %v", err)
	}
	if u.ID != 1 {
		t.Fatalf("user id = %d, want 1", u.ID)
	}
}

func TestLogIn_InvalidCredentials(t *testing.T) {
	repo := &stubRepo{
		userByEmail: &model.User{
			ID:           1,
			Email:        "user@example.com",
			PasswordHash: hashFor(t, "correct"),
		},
	}
	svc := NewService(repo, nil, nil, nil, Options{})

	_, err := svc.LogIn(context.Background(), "user@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestClose_ClosesRepository(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil, nil, nil, Options{})

	if err := svc.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if !repo.closed {
		t.Error("expected repository to be closed")
	}
}

func TestLogIn_UnknownUser(t *testing.T) {
	svc := NewService(&stubRepo{}, nil, nil, nil, Options{})

	_, err := svc.LogIn(context.Background(), "ghost@example.com", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
