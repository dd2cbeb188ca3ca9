package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/valelectronic/DERA-PROJECT/internal/model"
	"github.com/valelectronic/DERA-PROJECT/internal/paystack"
	"github.com/valelectronic/DERA-PROJECT/internal/repository"
)

const (
	// giftCouponThresholdCents — сумма заказа в минимальных единицах,
	// начиная с которой покупателю выдаётся подарочный купон.
	giftCouponThresholdCents int64 = 20000
	giftCouponDiscount             = 10
)

// CheckoutItem описывает позицию оформляемого заказа.
// Цена берётся из каталога, клиентской цене сервис не доверяет.
type CheckoutItem struct {
	ProductID int64
	Quantity  int
}

// CreateCheckoutSession рассчитывает сумму заказа, применяет купон,
// создаёт платёжную сессию на стороне шлюза и сохраняет заказ
// со статусом pending. Возвращает ссылку на страницу оплаты.
func (s *Service) CreateCheckoutSession(ctx context.Context, user *model.User, items []CheckoutItem, couponCode string) (string, error) {
	if len(items) == 0 {
		return "", ErrEmptyCheckout
	}

	var totalCents int64
	orderItems := make([]repository.OrderItemParams, 0, len(items))
	metaItems := make([]paystack.MetadataItem, 0, len(items))

	for _, it := range items {
		if it.Quantity < 1 {
			return "", ErrInvalidQuantity
		}

		p, err := s.repo.GetProductByID(ctx, it.ProductID)
		if err != nil {
			return "", err
		}

		priceCents := toMinorUnits(p.Price)
		totalCents += priceCents * int64(it.Quantity)

		orderItems = append(orderItems, repository.OrderItemParams{
			ProductID:  p.ID,
			Quantity:   it.Quantity,
			PriceCents: priceCents,
		})
		metaItems = append(metaItems, paystack.MetadataItem{
			ProductID: p.ID,
			Quantity:  it.Quantity,
			Price:     priceCents,
		})
	}

	if couponCode != "" {
		coupon, err := s.repo.GetActiveCoupon(ctx, couponCode, user.ID)
		switch {
		case err == nil:
			discount := int64(math.Round(float64(totalCents) * float64(coupon.DiscountPercentage) / 100))
			totalCents -= discount
		case errors.Is(err, repository.ErrCouponNotFound):
			// Отсутствующий или неактивный купон молча игнорируется,
			// оформление продолжается по полной цене.
		default:
			return "", err
		}
	}

	reference := uuid.NewString()

	tx, err := s.gateway.InitializeTransaction(ctx, paystack.TransactionRequest{
		Email:       user.Email,
		Amount:      totalCents,
		Reference:   reference,
		CallbackURL: s.opts.CallbackBaseURL + "/purchase-success",
		Currency:    s.opts.CurrencyCode,
		Metadata: paystack.Metadata{
			UserID:     user.ID,
			CouponCode: couponCode,
			LineItems:  metaItems,
		},
	})
	if err != nil {
		return "", fmt.Errorf("initialize transaction: %w", err)
	}

	if tx.Reference != reference {
		return "", fmt.Errorf("gateway reference mismatch: sent %s, got %s", reference, tx.Reference)
	}

	if _, err := s.repo.CreateOrder(ctx, user.ID, tx.Reference, totalCents, orderItems); err != nil {
		// Платёжная сессия уже создана на стороне шлюза; заказ не сохранён.
		return "", fmt.Errorf("create order: %w", err)
	}

	return tx.AuthorizationURL, nil
}

// ProcessWebhookEvent сверяет событие шлюза с заказом. События, отличные от
// charge.success, игнорируются. Повторная доставка уже обработанного события
// не изменяет заказ.
func (s *Service) ProcessWebhookEvent(ctx context.Context, event paystack.Event) error {
	if event.Event != paystack.EventChargeSuccess {
		return nil
	}

	order, err := s.repo.GetOrderByPaymentReference(ctx, event.Data.Reference)
	if err != nil {
		return err
	}

	if order.IsPaid {
		return nil
	}

	updated, err := s.repo.MarkOrderPaid(ctx, event.Data.Reference, repository.PaymentUpdate{
		Status:          model.PaymentStatus(event.Data.Status),
		Email:           event.Data.Email,
		AmountCents:     event.Data.Amount,
		TransactionID:   strconv.FormatInt(event.Data.ID, 10),
		PaidAt:          time.Now(),
		TransactionDate: event.Data.CreatedAt,
	})
	if err != nil {
		return err
	}
	if !updated {
		// Параллельная доставка уже отметила заказ оплаченным
		// и выполнила купонный этап.
		return nil
	}

	// Заказ оплачен; ошибки купонного этапа не должны приводить
	// к повторной доставке вебхука.
	if code := event.Data.Metadata.CouponCode; code != "" {
		_ = s.repo.DeactivateCoupon(ctx, code, order.UserID)
	}
	if event.Data.Amount >= giftCouponThresholdCents {
		_, _ = s.repo.CreateCoupon(ctx, model.Coupon{
			Code:               newGiftCouponCode(),
			UserID:             order.UserID,
			DiscountPercentage: giftCouponDiscount,
			IsActive:           true,
		})
	}

	return nil
}

// newGiftCouponCode генерирует код подарочного купона вида GIFT3F9A2C.
func newGiftCouponCode() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "GIFT" + suffix
}

// GetUserCoupon возвращает активный купон пользователя.
func (s *Service) GetUserCoupon(ctx context.Context, userID int64) (*model.Coupon, error) {
	return s.repo.GetActiveCouponForUser(ctx, userID)
}

// ValidateCoupon проверяет, что купон активен и принадлежит пользователю.
func (s *Service) ValidateCoupon(ctx context.Context, code string, userID int64) (*model.Coupon, error) {
	return s.repo.GetActiveCoupon(ctx, code, userID)
}

// toMinorUnits переводит сумму из основных единиц валюты в минимальные
// с округлением до ближайшего целого.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
