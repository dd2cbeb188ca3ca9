package service

import (
	"context"
	"errors"

	"github.com/valelectronic/DERA-PROJECT/internal/model"
	"github.com/valelectronic/DERA-PROJECT/internal/repository"
)

// AddToCart добавляет товар в корзину пользователя либо увеличивает количество на единицу.
func (s *Service) AddToCart(ctx context.Context, userID, productID int64) error {
	if _, err := s.repo.GetProductByID(ctx, productID); err != nil {
		return err
	}
	return s.repo.AddCartItem(ctx, userID, productID)
}

// UpdateCartQuantity задаёт количество позиции корзины. Нулевое количество удаляет позицию.
func (s *Service) UpdateCartQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.repo.RemoveCartItem(ctx, userID, productID)
	}
	return s.repo.SetCartItemQuantity(ctx, userID, productID, quantity)
}

// RemoveFromCart удаляет позицию из корзины. Нулевой идентификатор товара очищает корзину целиком.
func (s *Service) RemoveFromCart(ctx context.Context, userID, productID int64) error {
	if productID == 0 {
		return s.repo.ClearCart(ctx, userID)
	}
	return s.repo.RemoveCartItem(ctx, userID, productID)
}

// GetCartProducts возвращает товары корзины пользователя с количеством.
func (s *Service) GetCartProducts(ctx context.Context, userID int64) ([]model.CartProduct, error) {
	items, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	products := make([]model.CartProduct, 0, len(items))
	for _, it := range items {
		p, err := s.repo.GetProductByID(ctx, it.ProductID)
		if err != nil {
			// Товар мог быть удалён из каталога после добавления в корзину.
			if errors.Is(err, repository.ErrProductNotFound) {
				continue
			}
			return nil, err
		}
		products = append(products, model.CartProduct{
			Product:  *p,
			Quantity: it.Quantity,
		})
	}

	return products, nil
}
