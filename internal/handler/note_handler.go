package handler

import (
	"errors"
	"time"

	"go-stocknote/internal/model"
	"go-stocknote/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type NoteHandler struct {
	noteService   service.NoteService
	exportService service.ExportService
}

func NewNoteHandler(noteSvc service.NoteService, exportSvc service.ExportService) *NoteHandler {
	return &NoteHandler{noteService: noteSvc, exportService: exportSvc}
}

// getUserName reads the actor identity set by the auth middleware.
func getUserName(c *fiber.Ctx) string {
	if name, ok := c.Locals("user_name").(string); ok {
		return name
	}
	return "system"
}

// statusForError maps domain error kinds to HTTP statuses. Validation
// failures are 400, missing records 404, lost races 409; everything else is
// a transaction failure reported as a single recoverable 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrInsufficientStock):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrInvalidHeader),
		errors.Is(err, service.ErrEmptyLines),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrUnknownProduct),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidTransition):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func errorJSON(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	if status == fiber.StatusInternalServerError {
		// Do not leak driver errors; the rollback already happened.
		return c.Status(status).JSON(fiber.Map{"error": "An error occurred while saving the note. Please try again."})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// List handles GET /notes?sort=&page=&search=
func (h *NoteHandler) List(c *fiber.Ctx) error {
	sort := c.Query("sort")
	page := c.QueryInt("page", 1)
	search := c.Query("search")

	result, err := h.noteService.ListNotes(sort, page, search)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(result)
}

// Create handles POST /notes — the stock-out transaction.
func (h *NoteHandler) Create(c *fiber.Ctx) error {
	var req service.CreateNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	note, err := h.noteService.CreateNote(&req, getUserName(c))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Note created", "data": note})
}

// Get handles GET /notes/:id
func (h *NoteHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid note ID"})
	}

	note, err := h.noteService.GetNote(id)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(note)
}

// Update handles PUT /notes/:id — optimistic header/status edit.
func (h *NoteHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid note ID"})
	}

	var req service.UpdateNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if err := h.noteService.UpdateNote(id, &req, getUserName(c)); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"message": "Note updated"})
}

// Delete handles DELETE /notes/:id. Stock is not restored.
func (h *NoteHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid note ID"})
	}

	if err := h.noteService.DeleteNote(id); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"message": "Note deleted"})
}

// SetStatus handles PATCH /notes/:id/status
func (h *NoteHandler) SetStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid note ID"})
	}

	var req struct {
		Status model.NoteStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if err := h.noteService.SetStatus(id, req.Status); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"message": "Status updated"})
}

// NewNoteCount handles GET /notes/badges/new-count
func (h *NoteHandler) NewNoteCount(c *fiber.Ctx) error {
	count, err := h.noteService.NewNoteCount()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(fiber.Map{"count": count})
}

// HasDecided handles GET /notes/badges/has-decided
func (h *NoteHandler) HasDecided(c *fiber.Ctx) error {
	decided, err := h.noteService.HasDecidedNotes()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(fiber.Map{"has_decided": decided})
}

// ExportNote handles GET /notes/:id/export
func (h *NoteHandler) ExportNote(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid note ID"})
	}

	data, err := h.exportService.ExportNote(id)
	if err != nil {
		return errorJSON(c, err)
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+service.ExportFileName("note")+`"`)
	return c.Send(data)
}

// ExportRange handles GET /notes/export?from=2006-01-02&to=2006-01-02
// The "to" day is included.
func (h *NoteHandler) ExportRange(c *fiber.Ctx) error {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid or missing 'from' date (want YYYY-MM-DD)"})
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid or missing 'to' date (want YYYY-MM-DD)"})
	}

	data, err := h.exportService.ExportRange(from, to.AddDate(0, 0, 1))
	if err != nil {
		return errorJSON(c, err)
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+service.ExportFileName("notes")+`"`)
	return c.Send(data)
}
