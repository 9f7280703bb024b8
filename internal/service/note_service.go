package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-stocknote/internal/model"
	"go-stocknote/internal/repository"
	"go-stocknote/internal/ws"
	"go-stocknote/pkg/validator"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LineRequest is one requested stock-out: which product, how many units.
type LineRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	StockOut  int       `json:"stock_out"`
}

// CreateNoteRequest carries the note header plus the requested line items.
type CreateNoteRequest struct {
	NoteCode        string        `json:"note_code" validate:"required"`
	CreateName      string        `json:"create_name" validate:"required"`
	Customer        string        `json:"customer" validate:"required"`
	AddressCustomer string        `json:"address_customer" validate:"required"`
	Reason          string        `json:"reason" validate:"required"`
	Products        []LineRequest `json:"products" validate:"-"`
}

// UpdateNoteRequest is a header/status edit. UpdatedAt must echo the value
// the caller last read; a stale value surfaces as ErrConflict.
type UpdateNoteRequest struct {
	NoteCode        string           `json:"note_code" validate:"required"`
	CreateName      string           `json:"create_name" validate:"required"`
	Customer        string           `json:"customer" validate:"required"`
	AddressCustomer string           `json:"address_customer" validate:"required"`
	Reason          string           `json:"reason" validate:"required"`
	Status          model.NoteStatus `json:"status"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type NoteService interface {
	CreateNote(req *CreateNoteRequest, actor string) (*model.Note, error)
	GetNote(id uuid.UUID) (*model.Note, error)
	ListNotes(sort string, page int, search string) (*repository.NotePage, error)
	UpdateNote(id uuid.UUID, req *UpdateNoteRequest, actor string) error
	DeleteNote(id uuid.UUID) error
	SetStatus(id uuid.UUID, status model.NoteStatus) error
	NewNoteCount() (int64, error)
	HasDecidedNotes() (bool, error)
}

type noteService struct {
	productRepo repository.ProductRepository
	noteRepo    repository.NoteRepository
	db          *gorm.DB
	wsHub       *ws.Hub
}

func NewNoteService(pRepo repository.ProductRepository, nRepo repository.NoteRepository, db *gorm.DB, hub *ws.Hub) NoteService {
	return &noteService{
		productRepo: pRepo,
		noteRepo:    nRepo,
		db:          db,
		wsHub:       hub,
	}
}

// verifiedLine pairs a requested line with the catalog snapshot it was
// validated against. The same snapshot feeds the total computation so the
// price a line was checked with is the price it is billed at.
type verifiedLine struct {
	line      int
	product   model.Product
	stockOut  int
	lineTotal decimal.Decimal
}

// verifyLines is the invariant check: positive quantities, known products.
// Pure with respect to the store apart from one catalog read.
func (s *noteService) verifyLines(lines []LineRequest) ([]verifiedLine, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyLines
	}

	for i, l := range lines {
		if l.StockOut <= 0 {
			return nil, &LineError{Line: i, ProductID: l.ProductID, Err: ErrInvalidQuantity}
		}
	}

	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			ids = append(ids, l.ProductID)
		}
	}

	products, err := s.productRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	verified := make([]verifiedLine, 0, len(lines))
	for i, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, &LineError{Line: i, ProductID: l.ProductID, Err: ErrUnknownProduct}
		}
		verified = append(verified, verifiedLine{
			line:      i,
			product:   p,
			stockOut:  l.StockOut,
			lineTotal: p.Price.Mul(decimal.NewFromInt(int64(l.StockOut))),
		})
	}
	return verified, nil
}

// CreateNote persists a note, its line items, and the matching stock
// decrements in one transaction, or nothing at all. Validation and the total
// run against a single catalog snapshot before the transaction opens; inside
// it every decrement re-checks the live quantity, so a concurrent creation
// that would overdraw a product aborts the whole scope.
func (s *noteService) CreateNote(req *CreateNoteRequest, actor string) (*model.Note, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		first := errs[0]
		return nil, fmt.Errorf("%w: '%s' failed on '%s'", ErrInvalidHeader, first.FailedField, first.Tag)
	}

	verified, err := s.verifyLines(req.Products)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, v := range verified {
		total = total.Add(v.lineTotal)
	}

	note := &model.Note{
		NoteCode:        req.NoteCode,
		CreateName:      req.CreateName,
		Customer:        req.Customer,
		AddressCustomer: req.AddressCustomer,
		Reason:          req.Reason,
		Status:          model.StatusCreated,
		CreatedDate:     time.Now().UTC(),
		Total:           total,
	}
	note.CreatedBy = actor
	note.UpdatedBy = actor

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.noteRepo.Create(tx, note); err != nil {
			return err
		}
		for _, v := range verified {
			line := &model.NoteProduct{
				NoteID:    note.ID,
				ProductID: v.product.ID,
				StockOut:  v.stockOut,
			}
			line.CreatedBy = actor
			line.UpdatedBy = actor
			if err := s.noteRepo.AddLine(tx, line); err != nil {
				return err
			}

			affected, err := s.productRepo.DecrementStock(tx, v.product.ID, v.stockOut)
			if err != nil {
				return err
			}
			if affected == 0 {
				return &LineError{Line: v.line, ProductID: v.product.ID, Err: ErrInsufficientStock}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("note_created", note)
	return note, nil
}

func (s *noteService) GetNote(id uuid.UUID) (*model.Note, error) {
	note, err := s.noteRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return note, err
}

func (s *noteService) ListNotes(sort string, page int, search string) (*repository.NotePage, error) {
	return s.noteRepo.List(repository.ListOptions{
		Sort:   sort,
		Page:   page,
		Search: search,
	})
}

// UpdateNote edits header fields and status without touching inventory.
// A stale UpdatedAt means someone else edited in between: the caller gets
// ErrConflict when the note still exists, ErrNotFound when it is gone.
func (s *noteService) UpdateNote(id uuid.UUID, req *UpdateNoteRequest, actor string) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		first := errs[0]
		return fmt.Errorf("%w: '%s' failed on '%s'", ErrInvalidHeader, first.FailedField, first.Tag)
	}
	if !model.ValidStatus(req.Status) {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, req.Status)
	}

	fields := map[string]interface{}{
		"note_code":        req.NoteCode,
		"create_name":      req.CreateName,
		"customer":         req.Customer,
		"address_customer": req.AddressCustomer,
		"reason":           req.Reason,
		"status":           req.Status,
		"updated_by":       actor,
	}

	affected, err := s.noteRepo.UpdateFields(id, fields, req.UpdatedAt)
	if err != nil {
		return err
	}
	if affected == 0 {
		exists, err := s.noteRepo.Exists(id)
		if err != nil {
			return err
		}
		if exists {
			return ErrConflict
		}
		return ErrNotFound
	}
	return nil
}

// DeleteNote removes the note and its line items. Stock is not restored:
// the goods already left the warehouse, deleting the paperwork does not
// bring them back.
func (s *noteService) DeleteNote(id uuid.UUID) error {
	err := s.noteRepo.Delete(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *noteService) SetStatus(id uuid.UUID, status model.NoteStatus) error {
	if !model.ValidStatus(status) {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, status)
	}

	note, err := s.GetNote(id)
	if err != nil {
		return err
	}
	if !model.CanTransition(note.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, note.Status, status)
	}

	affected, err := s.noteRepo.UpdateStatus(id, status)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	note.Status = status
	s.broadcast("note_status_changed", note)
	return nil
}

// NewNoteCount backs the "waiting notes" notification badge.
func (s *noteService) NewNoteCount() (int64, error) {
	return s.noteRepo.CountWithStatus(model.StatusWaiting)
}

// HasDecidedNotes reports whether any note reached a decision state.
func (s *noteService) HasDecidedNotes() (bool, error) {
	return s.noteRepo.ExistsWithAnyStatus(model.StatusApproved, model.StatusDisapproved)
}

func (s *noteService) broadcast(event string, note *model.Note) {
	if s.wsHub == nil {
		return
	}
	payload := map[string]interface{}{
		"type": event,
		"note": map[string]interface{}{
			"id":           note.ID,
			"note_code":    note.NoteCode,
			"customer":     note.Customer,
			"status":       note.Status,
			"status_label": note.Status.String(),
			"total":        note.Total,
		},
	}
	msg, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal ws payload")
		return
	}
	go func() {
		s.wsHub.Broadcast <- msg
	}()
}
