package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// NoteStatus is the lifecycle marker of a stock-out note.
type NoteStatus int

const (
	StatusCreated     NoteStatus = 1
	StatusWaiting     NoteStatus = 2
	StatusApproved    NoteStatus = 3
	StatusDisapproved NoteStatus = 4
)

// ValidStatus reports whether s is a known status value.
func ValidStatus(s NoteStatus) bool {
	switch s {
	case StatusCreated, StatusWaiting, StatusApproved, StatusDisapproved:
		return true
	}
	return false
}

// CanTransition is the single choke point for status moves. The default is
// permissive: any valid status may move to any other valid status.
func CanTransition(from, to NoteStatus) bool {
	return ValidStatus(from) && ValidStatus(to)
}

func (s NoteStatus) String() string {
	switch s {
	case StatusCreated:
		return "Created"
	case StatusWaiting:
		return "Waiting"
	case StatusApproved:
		return "Approved"
	case StatusDisapproved:
		return "Disapproved"
	}
	return "Unknown"
}

// Note is a stock-out delivery record. It is the aggregate root of its line
// items: lines are created with the note in one transaction and removed with
// it on delete. Total is fixed at creation time from the catalog prices of
// that moment; later price changes never touch it.
type Note struct {
	BaseModel
	NoteCode        string          `gorm:"type:varchar(50);index;not null" json:"note_code" validate:"required"`
	CreateName      string          `gorm:"type:varchar(255);not null" json:"create_name" validate:"required"`
	Customer        string          `gorm:"type:varchar(255);not null" json:"customer" validate:"required"`
	AddressCustomer string          `gorm:"type:varchar(255);not null" json:"address_customer" validate:"required"`
	Reason          string          `gorm:"not null" json:"reason" validate:"required"`
	Status          NoteStatus      `gorm:"not null;default:1" json:"status"`
	CreatedDate     time.Time       `gorm:"not null" json:"created_date"`
	Total           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total"`

	Products []NoteProduct `gorm:"constraint:OnDelete:CASCADE" json:"products,omitempty"`
}
