package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/valelectronic/DERA-PROJECT/internal/model"
	"github.com/valelectronic/DERA-PROJECT/internal/paystack"
	"github.com/valelectronic/DERA-PROJECT/internal/repository"
)

var checkoutUser = &model.User{ID: 7, Email: "buyer@example.com", Role: model.RoleCustomer}

func newCheckoutService(repo *stubRepo, gateway *stubGateway) *Service {
	return NewService(repo, nil, gateway, nil, Options{
		CallbackBaseURL: "http://localhost:8080",
		CurrencyCode:    "NGN",
	})
}

func TestCreateCheckoutSession_EmptyItems(t *testing.T) {
	svc := newCheckoutService(&stubRepo{}, &stubGateway{})

	_, err := svc.CreateCheckoutSession(context.Background(), checkoutUser, nil, "")
	if !errors.Is(err, ErrEmptyCheckout) {
		t.Fatalf("expected ErrEmptyCheckout, got %v", err)
	}
}

func TestCreateCheckoutSession_InvalidQuantity(t *testing.T) {
	repo := &stubRepo{products: map[int64]model.Product{1: {ID: 1, Price: 10}}}
	svc := newCheckoutService(repo, &stubGateway{})

	_, err := svc.CreateCheckoutSession(context.Background(), checkoutUser, []CheckoutItem{
		{ProductID: 1, Quantity: 0},
	}, "")
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestCreateCheckoutSession_UnknownProduct(t *testing.T) {
	repo := &stubRepo{products: map[int64]model.Product{}}
	svc := newCheckoutService(repo, &stubGateway{})

	_, err := svc.CreateCheckoutSession(context.Background(), checkoutUser, []CheckoutItem{
		{ProductID: 99, Quantity: 1},
	}, "")
	if !errors.Is(err, repository.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCreateCheckoutSession_TotalFromCatalogPrices(t *testing.T) {
	repo := &stubRepo{
		products: map[int64]model.Product{
			1: {ID: 1, Name: "Lamp", Price: 10.00},
			2: {ID: 2, Name: "Chair", Price: 24.99},
		},
	}
	gateway := &stubGateway{}
	svc := newCheckoutService(repo, gateway)

	link, err := svc.CreateCheckoutSession(context.Background(), checkoutUser, []CheckoutItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	}, "")
	if err != nil {
		t.Fatalf("CreateCheckoutSession error: %v", err)
	}
	if link == "" {
		t.Fatal("expected payment link")
	}

	// 10.00*2 + 24.99 = 44.99 -> 4499 в минимальных единицах.
	if gateway.lastRequest.Amount != 4499 {
		t.Errorf("gateway amount = %d, want 4499", gateway.lastRequest.Amount)
	}
	if gateway.lastRequest.Email != checkoutUser.Email {
		t.Errorf("gateway email = %q, want %q", gateway.lastRequest.Email, checkoutUser.Email)
	}
	if gateway.lastRequest.Currency != "NGN" {
		t.Errorf("gateway currency = %q, want NGN", gateway.lastRequest.Currency)
	}
	if gateway.lastRequest.CallbackURL != "http://localhost:8080/purchase-success" {
		t.Errorf("callback url = %q", gateway.lastRequest.CallbackURL)
	}

	if repo.created == nil {
		t.Fatal("order was not persisted")
	}
	if repo.created.totalCents != 4499 {
		t.Errorf("order total = %d, want 4499", repo.created.totalCents)
	}
	if repo.created.reference != gateway.lastRequest.Reference {
		t.Errorf("order reference %q differs from gateway reference %q",
			repo.created.reference, gateway.lastRequest.Reference)
	}
	if len(repo.created.items) != 2 {
		t.Fatalf("order items = %d, want 2", len(repo.created.items))
	}
	if repo.created.items[0].PriceCents != 1000 || repo.created.items[0].Quantity != 2 {
		t.Errorf("first item = %+v, want price 1000 quantity 2", repo.created.items[0])
	}
}

func TestCreateCheckoutSession_CouponApplied(t *testing.T) {
	repo := &stubRepo{
		products: map[int64]model.Product{
			1: {ID: 1, Price: 10.00},
		},
		coupon: &model.Coupon{
			Code:               "GIFT10",
			UserID:             checkoutUser.ID,
			DiscountPercentage: 10,
			IsActive:           true,
		},
	}
	gateway := &stubGateway{}
	svc := newCheckoutService(repo, gateway)

	_, err := svc.CreateCheckoutSession(context.Background(), checkoutUser, []CheckoutItem{
		{ProductID: 1, Quantity: 2},
	}, "GIFT10")
	if err != nil {
		t.Fatalf("CreateCheckoutSession error: %v", err)
	}

	// 2000 минус 10% = 1800.
	if gateway.lastRequest.Amount != 1800 {
		t.Errorf("gateway amount = %d, want 1800", gateway.lastRequest.Amount)
	}
	if repo.created.totalCents != 1800 {
		t.Errorf("order total = %d, want 1800", repo.created.totalCents)
	}
	if gateway.lastRequest.Metadata.CouponCode != "GIFT10" {
		t.Errorf("metadata coupon = %q, want GIFT10", gateway.lastRequest.Metadata.CouponCode)
	}
}

func TestCreateCheckoutSession_UnknownCouponIgnored(t *testing.T) {
	repo := &stubRepo{
		products: map[int64]model.Product{
			1: {ID: 1, Price: 10.00},
		},
	}
	gateway := &stubGateway{}
	svc := newCheckoutService(repo, gateway)

	_, err := svc.CreateCheckoutSession(context.Background(), checkoutUser, []CheckoutItem{
		{ProductID: 1, Quantity: 2},
	}, "NOSUCH")
	if err != nil {
		t.Fatalf("CreateCheckoutSession error: %v", err)
	}

	if gateway.lastRequest.Amount != 2000 {
		t.Errorf("gateway amount = %d, want full price 2000", gateway.lastRequest.Amount)
	}
}

func TestCreateCheckoutSession_ForeignCouponIgnored(t *testing.T) {
	repo := &stubRepo{
		products: map[int64]model.Product{
			1: {ID: 1, Price: 10.00},
		},
		coupon: &model.Coupon{
			Code:               "GIFT10",
			UserID:             999, // чужой купон
			DiscountPercentage: 10,
			IsActive:           true,
		},
	}
	gateway := &stubGateway{}
	svc := newCheckoutService(repo, gateway)

	_, err := svc.CreateCheckoutSession(context.Background(), checkoutUser, []CheckoutItem{
		{ProductID: 1, Quantity: 1},
	}, "GIFT10")
	if err != nil {
		t.Fatalf("CreateCheckoutSession error: %v", err)
	}

	if gateway.lastRequest.Amount != 1000 {
		t.Errorf("gateway amount = %d, want full price 1000", gateway.lastRequest.Amount)
	}
}

func TestCreateCheckoutSession_GatewayError(t *testing.T) {
	repo := &stubRepo{
		products: map[int64]model.Product{
			1: {ID: 1, Price: 10.00},
		},
	}
	gateway := &stubGateway{err: errors.New("gateway unavailable")}
	svc := newCheckoutService(repo, gateway)

	_, err := svc.CreateCheckoutSession(context.Background(), checkoutUser, []CheckoutItem{
		{ProductID: 1, Quantity: 1},
	}, "")
	if err == nil {
		t.Fatal("expected gateway error")
	}
	if repo.created != nil {
		t.Error("order must not be persisted when gateway fails")
	}
}

func TestCreateCheckoutSession_ReferenceMismatch(t *testing.T) {
	repo := &stubRepo{
		products: map[int64]model.Product{
			1: {ID: 1, Price: 10.00},
		},
	}
	gateway := &stubGateway{
		response: &paystack.Transaction{
			AuthorizationURL: "https://checkout.example.com/x",
			Reference:        "something-else",
		},
	}
	svc := newCheckoutService(repo, gateway)

	_, err := svc.CreateCheckoutSession(context.Background(), checkoutUser, []CheckoutItem{
		{ProductID: 1, Quantity: 1},
	}, "")
	if err == nil {
		t.Fatal("expected reference mismatch error")
	}
	if repo.created != nil {
		t.Error("order must not be persisted on reference mismatch")
	}
}

func TestProcessWebhookEvent_IgnoresOtherEvents(t *testing.T) {
	repo := &stubRepo{}
	svc := newCheckoutService(repo, &stubGateway{})

	err := svc.ProcessWebhookEvent(context.Background(), paystack.Event{
		Event: "transfer.success",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.markPaidCalls != 0 {
		t.Error("MarkOrderPaid must not be called for foreign events")
	}
}

func TestProcessWebhookEvent_UnknownReference(t *testing.T) {
	svc := newCheckoutService(&stubRepo{}, &stubGateway{})

	err := svc.ProcessWebhookEvent(context.Background(), paystack.Event{
		Event: paystack.EventChargeSuccess,
		Data:  paystack.EventData{Reference: "ghost"},
	})
	if !errors.Is(err, repository.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestProcessWebhookEvent_MarksOrderPaid(t *testing.T) {
	createdAt := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	repo := &stubRepo{
		orderByRef: &model.Order{
			ID:               3,
			PaymentReference: "ref-1",
			TotalAmount:      20.00,
		},
	}
	svc := newCheckoutService(repo, &stubGateway{})

	err := svc.ProcessWebhookEvent(context.Background(), paystack.Event{
		Event: paystack.EventChargeSuccess,
		Data: paystack.EventData{
			ID:        555,
			Reference: "ref-1",
			Email:     "buyer@example.com",
			Amount:    2000,
			Status:    "success",
			CreatedAt: createdAt,
		},
	})
	if err != nil {
		t.Fatalf("ProcessWebhookEvent error: %v", err)
	}

	if repo.markPaidCalls != 1 {
		t.Fatalf("MarkOrderPaid calls = %d, want 1", repo.markPaidCalls)
	}
	upd := repo.lastUpdate
	if upd.Status != model.PaymentStatusSuccess {
		t.Errorf("payment status = %q, want success", upd.Status)
	}
	if upd.AmountCents != 2000 {
		t.Errorf("amount = %d, want 2000", upd.AmountCents)
	}
	if upd.TransactionID != "555" {
		t.Errorf("transaction id = %q, want 555", upd.TransactionID)
	}
	if !upd.TransactionDate.Equal(createdAt) {
		t.Errorf("transaction date = %v, want %v", upd.TransactionDate, createdAt)
	}
	if upd.PaidAt.IsZero() {
		t.Error("paid at must be set")
	}
}

func TestProcessWebhookEvent_DeactivatesUsedCoupon(t *testing.T) {
	repo := &stubRepo{
		orderByRef: &model.Order{ID: 3, UserID: 7, PaymentReference: "ref-1"},
	}
	svc := newCheckoutService(repo, &stubGateway{})

	err := svc.ProcessWebhookEvent(context.Background(), paystack.Event{
		Event: paystack.EventChargeSuccess,
		Data: paystack.EventData{
			Reference: "ref-1",
			Amount:    1800,
			Status:    "success",
			Metadata:  paystack.Metadata{UserID: 7, CouponCode: "GIFT10"},
		},
	})
	if err != nil {
		t.Fatalf("ProcessWebhookEvent error: %v", err)
	}

	if repo.deactivatedCode != "GIFT10" {
		t.Errorf("deactivated coupon = %q, want GIFT10", repo.deactivatedCode)
	}
}

func TestProcessWebhookEvent_GrantsGiftCouponOverThreshold(t *testing.T) {
	repo := &stubRepo{
		orderByRef: &model.Order{ID: 3, UserID: 7, PaymentReference: "ref-1"},
	}
	svc := newCheckoutService(repo, &stubGateway{})

	err := svc.ProcessWebhookEvent(context.Background(), paystack.Event{
		Event: paystack.EventChargeSuccess,
		Data: paystack.EventData{
			Reference: "ref-1",
			Amount:    25000,
			Status:    "success",
		},
	})
	if err != nil {
		t.Fatalf("ProcessWebhookEvent error: %v", err)
	}

	c := repo.createdCoupon
	if c == nil {
		t.Fatal("expected gift coupon to be created")
	}
	if c.UserID != 7 || c.DiscountPercentage != 10 || !c.IsActive {
		t.Errorf("unexpected gift coupon: %+v", c)
	}
	if len(c.Code) != 10 || c.Code[:4] != "GIFT" {
		t.Errorf("gift coupon code = %q, want GIFT prefix with 6-char suffix", c.Code)
	}
}

func TestProcessWebhookEvent_NoGiftCouponBelowThreshold(t *testing.T) {
	repo := &stubRepo{
		orderByRef: &model.Order{ID: 3, UserID: 7, PaymentReference: "ref-1"},
	}
	svc := newCheckoutService(repo, &stubGateway{})

	err := svc.ProcessWebhookEvent(context.Background(), paystack.Event{
		Event: paystack.EventChargeSuccess,
		Data: paystack.EventData{
			Reference: "ref-1",
			Amount:    2000,
			Status:    "success",
		},
	})
	if err != nil {
		t.Fatalf("ProcessWebhookEvent error: %v", err)
	}

	if repo.createdCoupon != nil {
		t.Errorf("unexpected gift coupon: %+v", repo.createdCoupon)
	}
}

func TestProcessWebhookEvent_ConcurrentRedeliverySkipsCouponStage(t *testing.T) {
	// Заказ ещё выглядит неоплаченным, но к моменту UPDATE его уже
	// отметила параллельная доставка: guard в БД возвращает false.
	repo := &stubRepo{
		orderByRef:   &model.Order{ID: 3, UserID: 7, PaymentReference: "ref-1"},
		markPaidMiss: true,
	}
	svc := newCheckoutService(repo, &stubGateway{})

	err := svc.ProcessWebhookEvent(context.Background(), paystack.Event{
		Event: paystack.EventChargeSuccess,
		Data: paystack.EventData{
			Reference: "ref-1",
			Amount:    25000,
			Status:    "success",
			Metadata:  paystack.Metadata{UserID: 7, CouponCode: "GIFT10"},
		},
	})
	if err != nil {
		t.Fatalf("ProcessWebhookEvent error: %v", err)
	}

	if repo.deactivatedCode != "" {
		t.Errorf("coupon %q deactivated twice", repo.deactivatedCode)
	}
	if repo.createdCoupon != nil {
		t.Errorf("duplicate gift coupon created: %+v", repo.createdCoupon)
	}
}

func TestProcessWebhookEvent_RedeliveryIsNoOp(t *testing.T) {
	paidAt := time.Now()
	repo := &stubRepo{
		orderByRef: &model.Order{
			ID:               3,
			PaymentReference: "ref-1",
			IsPaid:           true,
			PaidAt:           &paidAt,
		},
	}
	svc := newCheckoutService(repo, &stubGateway{})

	err := svc.ProcessWebhookEvent(context.Background(), paystack.Event{
		Event: paystack.EventChargeSuccess,
		Data:  paystack.EventData{Reference: "ref-1", Status: "success"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.markPaidCalls != 0 {
		t.Error("paid order must not be updated again")
	}
}
