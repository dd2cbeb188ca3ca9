// Package paystack предоставляет клиент платёжного шлюза Paystack.
package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SignatureHeader — заголовок, в котором шлюз передаёт подпись тела вебхука.
const SignatureHeader = "X-Paystack-Signature"

// EventChargeSuccess — тип события об успешном списании средств.
const EventChargeSuccess = "charge.success"

// Client инкапсулирует HTTP-взаимодействие с платёжным шлюзом.
type Client struct {
	baseURL    string
	secretKey  []byte
	httpClient *http.Client
}

// NewClient создаёт HTTP-клиент шлюза с указанным адресом и секретным ключом.
func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: []byte(secretKey),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// MetadataItem описывает позицию заказа в метаданных транзакции.
// Цена указывается в минимальных единицах валюты.
type MetadataItem struct {
	ProductID int64 `json:"id"`
	Quantity  int   `json:"quantity"`
	Price     int64 `json:"price"`
}

// Metadata содержит служебные данные транзакции для последующей сверки.
type Metadata struct {
	UserID     int64          `json:"user_id"`
	CouponCode string         `json:"coupon_code,omitempty"`
	LineItems  []MetadataItem `json:"line_items"`
}

// TransactionRequest описывает запрос на создание платёжной сессии.
// Сумма указывается в минимальных единицах валюты.
type TransactionRequest struct {
	Email       string   `json:"email"`
	Amount      int64    `json:"amount"`
	Reference   string   `json:"reference"`
	CallbackURL string   `json:"callback_url"`
	Currency    string   `json:"currency,omitempty"`
	Metadata    Metadata `json:"metadata"`
}

// Transaction описывает созданную шлюзом платёжную сессию.
type Transaction struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type initializeResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    Transaction `json:"data"`
}

// InitializeTransaction создаёт платёжную сессию на стороне шлюза
// и возвращает ссылку на страницу оплаты.
func (c *Client) InitializeTransaction(ctx context.Context, txReq TransactionRequest) (*Transaction, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("paystack client not configured")
	}

	body, err := json.Marshal(txReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/transaction/initialize"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+string(c.secretKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !result.Status {
		return nil, fmt.Errorf("gateway rejected transaction: %s", result.Message)
	}

	return &result.Data, nil
}

// VerifySignature проверяет подпись HMAC-SHA512 сырого тела вебхука.
// Сравнение выполняется за константное время.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, c.secretKey)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Event описывает событие, доставляемое шлюзом через вебхук.
type Event struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

// EventData содержит данные платежа из события шлюза.
// Сумма указывается в минимальных единицах валюты.
type EventData struct {
	ID        int64     `json:"id"`
	Reference string    `json:"reference"`
	Email     string    `json:"email"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Metadata  Metadata  `json:"metadata"`
}
