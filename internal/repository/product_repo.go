package repository

import (
	"go-stocknote/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(product *model.Product) error
	Update(product *model.Product) error
	FindAll() ([]model.Product, error)
	FindByID(id uuid.UUID) (*model.Product, error)
	FindByCode(code string) (*model.Product, error)
	FindByIDs(ids []uuid.UUID) ([]model.Product, error)
	DecrementStock(tx *gorm.DB, id uuid.UUID, stockOut int) (int64, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(product *model.Product) error {
	return r.db.Create(product).Error
}

func (r *productRepo) Update(product *model.Product) error {
	return r.db.Save(product).Error
}

func (r *productRepo) FindAll() ([]model.Product, error) {
	var products []model.Product
	err := r.db.Order("product_code ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) FindByCode(code string) (*model.Product, error) {
	var product model.Product
	if err := r.db.First(&product, "product_code = ?", code).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads the catalog snapshot used for validation and total
// computation. Missing IDs are simply absent from the result.
func (r *productRepo) FindByIDs(ids []uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := r.db.Where("id IN ?", ids).Find(&products).Error
	return products, err
}

// DecrementStock runs inside the caller's transaction. The quantity guard in
// the WHERE clause makes the decrement abort when it would drive stock
// negative, even against a stale snapshot: zero affected rows means the live
// quantity no longer covers the request.
func (r *productRepo) DecrementStock(tx *gorm.DB, id uuid.UUID, stockOut int) (int64, error) {
	res := tx.Model(&model.Product{}).
		Where("id = ? AND quantity >= ?", id, stockOut).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", stockOut))
	return res.RowsAffected, res.Error
}
