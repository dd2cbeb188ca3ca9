package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valelectronic/DERA-PROJECT/internal/model"
)

const (
	featuredCacheKey = "featured_products"
	featuredCacheTTL = time.Hour

	recommendedLimit = 4

	productsFolder = "products"
)

// GetProducts возвращает все товары каталога.
func (s *Service) GetProducts(ctx context.Context) ([]model.Product, error) {
	return s.repo.GetProducts(ctx)
}

// GetProductsByCategory возвращает товары указанной категории.
func (s *Service) GetProductsByCategory(ctx context.Context, category string) ([]model.Product, error) {
	return s.repo.GetProductsByCategory(ctx, category)
}

// GetRecommendedProducts возвращает случайную выборку товаров.
func (s *Service) GetRecommendedProducts(ctx context.Context) ([]model.Product, error) {
	return s.repo.GetRandomProducts(ctx, recommendedLimit)
}

// GetFeaturedProducts возвращает избранные товары, используя кеш со сквозным чтением.
func (s *Service) GetFeaturedProducts(ctx context.Context) ([]model.Product, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, featuredCacheKey); err == nil {
			var products []model.Product
			if err := json.Unmarshal(data, &products); err == nil {
				return products, nil
			}
			// Испорченное значение перезапишется ниже.
		}
	}

	products, err := s.repo.GetFeaturedProducts(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(products); err == nil {
			_ = s.cache.Set(ctx, featuredCacheKey, data, featuredCacheTTL)
		}
	}

	return products, nil
}

// CreateProduct создаёт товар каталога, предварительно загрузив изображение на хостинг.
func (s *Service) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	if p.Name == "" || p.Price < 0 {
		return nil, fmt.Errorf("product name is required and price must be non-negative")
	}

	if p.Image != "" && s.images != nil {
		asset, err := s.images.Upload(ctx, p.Image, productsFolder)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		p.Image = asset.SecureURL
	}
	p.IsAvailable = true

	id, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return nil, err
	}
	p.ID = id

	if p.IsFeatured {
		s.refreshFeaturedCache(ctx)
	}

	return &p, nil
}

// EditProduct обновляет товар. Непустые поля заменяют существующие;
// новое изображение загружается на хостинг, старое удаляется.
func (s *Service) EditProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	existing, err := s.repo.GetProductByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	if p.Image != "" && p.Image != existing.Image && s.images != nil {
		if existing.Image != "" {
			// Ошибка удаления старого изображения не прерывает правку.
			_ = s.images.Destroy(ctx, publicIDFromURL(existing.Image))
		}
		asset, err := s.images.Upload(ctx, p.Image, productsFolder)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		existing.Image = asset.SecureURL
	}

	if p.Name != "" {
		existing.Name = p.Name
	}
	if p.Description != "" {
		existing.Description = p.Description
	}
	if p.Price > 0 {
		existing.Price = p.Price
	}
	if p.Category != "" {
		existing.Category = p.Category
	}

	if err := s.repo.UpdateProduct(ctx, *existing); err != nil {
		return nil, err
	}

	s.refreshFeaturedCache(ctx)

	return existing, nil
}

// ToggleFeaturedProduct переключает признак избранного товара и обновляет кеш.
func (s *Service) ToggleFeaturedProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.SetProductFeatured(ctx, id, !p.IsFeatured)
	if err != nil {
		return nil, err
	}

	s.refreshFeaturedCache(ctx)

	return updated, nil
}

// DeleteProduct удаляет товар и его изображение на хостинге.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return err
	}

	if p.Image != "" && s.images != nil {
		// Ошибка удаления изображения не мешает удалению товара.
		_ = s.images.Destroy(ctx, publicIDFromURL(p.Image))
	}

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	if p.IsFeatured {
		s.refreshFeaturedCache(ctx)
	}

	return nil
}

// refreshFeaturedCache перечитывает избранные товары из БД и обновляет кеш.
func (s *Service) refreshFeaturedCache(ctx context.Context) {
	if s.cache == nil {
		return
	}

	products, err := s.repo.GetFeaturedProducts(ctx)
	if err != nil {
		_ = s.cache.Delete(ctx, featuredCacheKey)
		return
	}

	data, err := json.Marshal(products)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, featuredCacheKey, data, featuredCacheTTL)
}

// publicIDFromURL восстанавливает публичный идентификатор изображения из его URL.
func publicIDFromURL(url string) string {
	name := url
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	return productsFolder + "/" + name
}
