package repository

import (
	"time"

	"go-stocknote/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultPageSize = 10

// ListOptions controls the paged note listing.
type ListOptions struct {
	Sort     string // "newest" | "oldest" | "" (insertion order)
	Page     int    // 1-based
	Search   string // substring match on note_code
	PageSize int    // 0 means DefaultPageSize
}

// NotePage is one bounded page of notes with pagination metadata.
type NotePage struct {
	Items      []model.Note `json:"items"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalItems int64        `json:"total_items"`
	TotalPages int          `json:"total_pages"`
}

type NoteRepository interface {
	Create(tx *gorm.DB, note *model.Note) error
	AddLine(tx *gorm.DB, line *model.NoteProduct) error
	FindByID(id uuid.UUID) (*model.Note, error)
	Exists(id uuid.UUID) (bool, error)
	List(opts ListOptions) (*NotePage, error)
	UpdateFields(id uuid.UUID, fields map[string]interface{}, expectedUpdatedAt time.Time) (int64, error)
	UpdateStatus(id uuid.UUID, status model.NoteStatus) (int64, error)
	Delete(id uuid.UUID) error
	CountWithStatus(status model.NoteStatus) (int64, error)
	ExistsWithAnyStatus(statuses ...model.NoteStatus) (bool, error)
	FindByDateRange(from, to time.Time) ([]model.Note, error)
}

type noteRepo struct {
	db *gorm.DB
}

func NewNoteRepo(db *gorm.DB) NoteRepository {
	return &noteRepo{db}
}

func (r *noteRepo) Create(tx *gorm.DB, note *model.Note) error {
	return tx.Omit("Products").Create(note).Error
}

func (r *noteRepo) AddLine(tx *gorm.DB, line *model.NoteProduct) error {
	return tx.Omit("Product").Create(line).Error
}

func (r *noteRepo) FindByID(id uuid.UUID) (*model.Note, error) {
	var note model.Note
	err := r.db.Preload("Products").Preload("Products.Product").
		First(&note, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *noteRepo) Exists(id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&model.Note{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *noteRepo) List(opts ListOptions) (*NotePage, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}

	query := r.db.Model(&model.Note{})
	if opts.Search != "" {
		query = query.Where("note_code LIKE ?", "%"+opts.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	switch opts.Sort {
	case "newest":
		query = query.Order("created_date DESC")
	case "oldest":
		query = query.Order("created_date ASC")
	default:
		query = query.Order("created_at ASC")
	}

	var notes []model.Note
	err := query.Preload("Products").Preload("Products.Product").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&notes).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &NotePage{
		Items:      notes,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// UpdateFields applies a guarded header/status edit. The update only lands
// when the row still carries the updated_at the caller last saw; the returned
// row count lets the service tell a conflict from a missing note.
func (r *noteRepo) UpdateFields(id uuid.UUID, fields map[string]interface{}, expectedUpdatedAt time.Time) (int64, error) {
	res := r.db.Model(&model.Note{}).
		Where("id = ? AND updated_at = ?", id, expectedUpdatedAt).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *noteRepo) UpdateStatus(id uuid.UUID, status model.NoteStatus) (int64, error) {
	res := r.db.Model(&model.Note{}).Where("id = ?", id).Update("status", status)
	return res.RowsAffected, res.Error
}

// Delete removes the note together with its line items. Product quantities
// are left untouched: deletion is not a reversal of the stock-out.
func (r *noteRepo) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("note_id = ?", id).Delete(&model.NoteProduct{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Note{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *noteRepo) CountWithStatus(status model.NoteStatus) (int64, error) {
	var count int64
	err := r.db.Model(&model.Note{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

func (r *noteRepo) ExistsWithAnyStatus(statuses ...model.NoteStatus) (bool, error) {
	var count int64
	err := r.db.Model(&model.Note{}).Where("status IN ?", statuses).Count(&count).Error
	return count > 0, err
}

func (r *noteRepo) FindByDateRange(from, to time.Time) ([]model.Note, error) {
	var notes []model.Note
	err := r.db.Preload("Products").Preload("Products.Product").
		Where("created_date >= ? AND created_date < ?", from, to).
		Order("created_date ASC").
		Find(&notes).Error
	return notes, err
}
