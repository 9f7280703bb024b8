package model

import "github.com/shopspring/decimal"

// Product is a catalog item with on-hand stock. Products are created and
// priced by the inventory side; the note workflow only reads them and
// decrements Quantity inside the note creation transaction.
type Product struct {
	BaseModel
	ProductCode string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"product_code" validate:"required"`
	ProductName string          `gorm:"type:varchar(255);not null" json:"product_name" validate:"required"`
	Price       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"price"`
	Quantity    int             `gorm:"not null;default:0" json:"quantity"`
}
