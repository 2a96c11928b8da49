package service

import (
	"errors"

	"github.com/sokocart/sokocart-backend/internal/app/model"
	"github.com/sokocart/sokocart-backend/internal/app/repository"
	"github.com/sokocart/sokocart-backend/pkg/logger"
	"gorm.io/gorm"
)

var ErrSKUAlreadyExists = errors.New("sku already exists")

type ProductService interface {
	GetProducts(activeOnly bool) ([]model.Product, error)
	GetProductByID(id uint) (*model.Product, error)
	CreateProduct(product *model.Product) error
	UpdateProduct(product *model.Product) error
	DeleteProduct(id uint) error
}

type productService struct {
	productRepo repository.ProductRepository
}

func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

func (s *productService) GetProducts(activeOnly bool) ([]model.Product, error) {
	return s.productRepo.FindAll(activeOnly)
}

func (s *productService) GetProductByID(id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) CreateProduct(product *model.Product) error {
	existing, err := s.productRepo.FindBySKU(product.SKU)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if existing != nil {
		logger.Warn("Product creation rejected: sku exists", map[string]interface{}{
			"sku": product.SKU,
		})
		return ErrSKUAlreadyExists
	}
	return s.productRepo.Create(product)
}

func (s *productService) UpdateProduct(product *model.Product) error {
	if _, err := s.GetProductByID(product.ID); err != nil {
		return err
	}
	return s.productRepo.Update(product)
}

func (s *productService) DeleteProduct(id uint) error {
	if _, err := s.GetProductByID(id); err != nil {
		return err
	}
	return s.productRepo.Delete(id)
}
