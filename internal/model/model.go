// Package model содержит доменные сущности магазина DERA.
package model

import "time"

// UserRole описывает роль пользователя в магазине.
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

// User представляет зарегистрированного пользователя магазина.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash []byte
	Role         UserRole
	CreatedAt    time.Time
}

// Product описывает товар каталога.
type Product struct {
	ID          int64     `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Image       string    `json:"image"`
	IsAvailable bool      `json:"isAvailable"`
	Rating      float64   `json:"rating"`
	IsFeatured  bool      `json:"isFeatured"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CartItem описывает позицию корзины пользователя.
type CartItem struct {
	ProductID int64 `json:"product"`
	Quantity  int   `json:"quantity"`
}

// CartProduct описывает товар корзины вместе с количеством.
type CartProduct struct {
	Product
	Quantity int `json:"quantity"`
}

// OrderStatus описывает статус исполнения заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus описывает итог платежа, сообщённый платёжным шлюзом.
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailure PaymentStatus = "failure"
)

// OrderLineItem описывает позицию заказа с ценой на момент покупки.
type OrderLineItem struct {
	ProductID int64
	Quantity  int
	Price     float64
}

// PaymentResult содержит данные о платеже, полученные из вебхука шлюза.
type PaymentResult struct {
	Status        PaymentStatus
	Email         string
	Amount        float64
	TransactionID string
}

// Order описывает одну попытку оформления заказа и её платёжный жизненный цикл.
// TotalAmount и цены позиций хранятся в основных единицах валюты,
// платёжный шлюз оперирует минимальными единицами.
type Order struct {
	ID               int64
	UserID           int64
	LineItems        []OrderLineItem
	TotalAmount      float64
	PaymentReference string
	IsPaid           bool
	PaidAt           *time.Time
	PaymentResult    *PaymentResult
	TransactionDate  *time.Time
	Status           OrderStatus
	CreatedAt        time.Time
}

// Coupon описывает скидочный купон, закреплённый за пользователем.
type Coupon struct {
	ID                 int64  `json:"-"`
	Code               string `json:"code"`
	UserID             int64  `json:"-"`
	DiscountPercentage int    `json:"discountPercentage"`
	IsActive           bool   `json:"isActive"`
}
