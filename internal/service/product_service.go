package service

import (
	"errors"
	"fmt"

	"go-stocknote/internal/model"
	"go-stocknote/internal/repository"
	"go-stocknote/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrDuplicateProductCode = errors.New("product code already exists")

// ProductService covers the catalog maintenance the note workflow depends
// on. Stock quantities are only ever decremented through note creation;
// these operations set the starting values.
type ProductService interface {
	CreateProduct(req *model.Product, actor string) error
	UpdateProduct(id uuid.UUID, req *model.Product, actor string) (*model.Product, error)
	GetAllProducts() ([]model.Product, error)
}

type productService struct {
	productRepo repository.ProductRepository
}

func NewProductService(pRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: pRepo}
}

func (s *productService) CreateProduct(req *model.Product, actor string) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		first := errs[0]
		return fmt.Errorf("%w: '%s' failed on '%s'", ErrInvalidHeader, first.FailedField, first.Tag)
	}
	if req.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidHeader)
	}
	if req.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidHeader)
	}

	existing, _ := s.productRepo.FindByCode(req.ProductCode)
	if existing != nil && existing.ID != uuid.Nil {
		return ErrDuplicateProductCode
	}

	req.CreatedBy = actor
	req.UpdatedBy = actor
	return s.productRepo.Create(req)
}

func (s *productService) UpdateProduct(id uuid.UUID, req *model.Product, actor string) (*model.Product, error) {
	existing, err := s.productRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidHeader)
	}
	if req.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidHeader)
	}

	existing.ProductCode = req.ProductCode
	existing.ProductName = req.ProductName
	existing.Price = req.Price
	existing.Quantity = req.Quantity
	existing.UpdatedBy = actor

	if err := s.productRepo.Update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *productService) GetAllProducts() ([]model.Product, error) {
	return s.productRepo.FindAll()
}
