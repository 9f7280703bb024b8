package model

import "github.com/google/uuid"

// NoteProduct associates a note with a product and the quantity taken out of
// stock. Rows only ever come into existence inside the note creation
// transaction, never on their own.
type NoteProduct struct {
	BaseModel
	NoteID    uuid.UUID `gorm:"type:uuid;index;not null" json:"note_id"`
	ProductID uuid.UUID `gorm:"type:uuid;index;not null" json:"product_id" validate:"uuid_required"`
	Product   Product   `json:"product"`
	StockOut  int       `gorm:"not null" json:"stock_out"`
}
