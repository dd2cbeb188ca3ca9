// Package imagehost предоставляет клиент внешнего хостинга изображений.
package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client инкапсулирует HTTP-взаимодействие с хостингом изображений.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт HTTP-клиент хостинга изображений.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Asset описывает загруженное изображение.
type Asset struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

type uploadRequest struct {
	File   string `json:"file"`
	Folder string `json:"folder,omitempty"`
}

// Upload загружает изображение в кодировке base64 и возвращает его публичный URL.
func (c *Client) Upload(ctx context.Context, imageBase64, folder string) (*Asset, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("image host client not configured")
	}

	body, err := json.Marshal(uploadRequest{File: imageBase64, Folder: folder})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/image/upload", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var asset Asset
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &asset, nil
}

type destroyRequest struct {
	PublicID string `json:"public_id"`
}

// Destroy удаляет ранее загруженное изображение по его публичному идентификатору.
func (c *Client) Destroy(ctx context.Context, publicID string) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("image host client not configured")
	}

	body, err := json.Marshal(destroyRequest{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/image/destroy", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}
