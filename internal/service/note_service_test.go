package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"go-stocknote/internal/model"
	"go-stocknote/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&model.Product{}, &model.Note{}, &model.NoteProduct{}, &model.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newNoteService(t *testing.T, db *gorm.DB) NoteService {
	t.Helper()
	return NewNoteService(repository.NewProductRepo(db), repository.NewNoteRepo(db), db, nil)
}

func seedProduct(t *testing.T, db *gorm.DB, code, name, price string, quantity int) model.Product {
	t.Helper()
	p := model.Product{
		ProductCode: code,
		ProductName: name,
		Price:       decimal.RequireFromString(price),
		Quantity:    quantity,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed product %s: %v", code, err)
	}
	return p
}

func validHeader(code string) CreateNoteRequest {
	return CreateNoteRequest{
		NoteCode:        code,
		CreateName:      "warehouse clerk",
		Customer:        "ACME Ltd",
		AddressCustomer: "1 Depot Road",
		Reason:          "weekly delivery",
	}
}

func TestCreateNoteDeductsStockAndComputesTotal(t *testing.T) {
	db := setupTestDB(t)
	svc := newNoteService(t, db)

	p1 := seedProduct(t, db, "P1", "Widget", "10.50", 10)
	p2 := seedProduct(t, db, "P2", "Gadget", "5.00", 8)

	req := validHeader("SON-001")
	req.Products = []LineRequest{
		{ProductID: p1.ID, StockOut: 3},
		{ProductID: p2.ID, StockOut: 2},
	}

	note, err := svc.CreateNote(&req, "tester")
	if err != nil {
		t.Fatalf("create note: %v", err)
	}

	if note.Status != model.StatusCreated {
		t.Errorf("status = %v, want Created", note.Status)
	}
	if want := decimal.RequireFromString("41.50"); !note.Total.Equal(want) {
		t.Errorf("total = %s, want %s", note.Total, want)
	}
	if note.CreatedDate.IsZero() || note.CreatedDate.Location() != time.UTC {
		t.Errorf("created date not set in UTC: %v", note.CreatedDate)
	}

	var got model.Product
	if err := db.First(&got, "id = ?", p1.ID).Error; err != nil {
		t.Fatalf("reload p1: %v", err)
	}
	if got.Quantity != 7 {
		t.Errorf("p1 quantity = %d, want 7", got.Quantity)
	}
	got = model.Product{}
	if err := db.First(&got, "id = ?", p2.ID).Error; err != nil {
		t.Fatalf("reload p2: %v", err)
	}
	if got.Quantity != 6 {
		t.Errorf("p2 quantity = %d, want 6", got.Quantity)
	}

	var lineCount int64
	db.Model(&model.NoteProduct{}).Where("note_id = ?", note.ID).Count(&lineCount)
	if lineCount != 2 {
		t.Errorf("line count = %d, want 2", lineCount)
	}
}

func TestCreateNoteRejectsMissingHeaderField(t *testing.T) {
	db := setupTestDB(t)
	svc := newNoteService(t, db)
	p := seedProduct(t, db, "P1", "Widget", "1.00", 5)

	req := validHeader("SON-002")
	req.Customer = ""
	req.Products = []LineRequest{{ProductID: p.ID, StockOut: 1}}

	_, err := svc.CreateNote(&req, "tester")
	if !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("err = %v, want ErrInvalidHeader", err)
	}
	assertNoSideEffects(t, db, p.ID, 5)
}

func TestCreateNoteRejectsNonPositiveQuantity(t *testing.T) {
	db := setupTestDB(t)
	svc := newNoteService(t, db)
	p := seedProduct(t, db, "P1", "Widget", "1.00", 5)

	for _, qty := range []int{0, -3} {
		req := validHeader("SON-003")
		req.Products = []LineRequest{{ProductID: p.ID, StockOut: qty}}

		_, err := svc.CreateNote(&req, "tester")
		if !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("qty %d: err = %v, want ErrInvalidQuantity", qty, err)
		}
		var lineErr *LineError
		if !errors.As(err, &lineErr) || lineErr.Line != 0 {
			t.Errorf("qty %d: error does not identify line 0: %v", qty, err)
		}
	}
	assertNoSideEffects(t, db, p.ID, 5)
}

func TestCreateNoteRejectsUnknownProduct(t *testing.T) {
	db := setupTestDB(t)
	svc := newNoteService(t, db)
	p := seedProduct(t, db, "P1", "Widget", "1.00", 5)

	req := validHeader("SON-004")
	req.Products = []LineRequest{
		{ProductID: p.ID, StockOut: 1},
		{ProductID: uuid.New(), StockOut: 1},
	}

	_, err := svc.CreateNote(&req, "tester")
	if !errors.Is(err, ErrUnknownProduct) {
		t.Fatalf("err = %v, want ErrUnknownProduct", err)
	}
	var lineErr *LineError
	if !errors.As(err, &lineErr) || lineErr.Line != 1 {
		t.Errorf("error does not identify line 1: %v", err)
	}
	assertNoSideEffects(t, db, p.ID, 5)
}

func TestCreateNoteRejectsEmptyLines(t *testing.T) {
	db := setupTestDB(t)
	svc := newNoteService(t, db)

	req := validHeader("SON-005")
	_, err := svc.CreateNote(&req, "tester")
	if !errors.Is(err, ErrEmptyLines) {
		t.Fatalf("err = %v, want ErrEmptyLines", err)
	}
}

// A failure mid-transaction (here: the second line overdraws its product)
// must leave the store untouched: no note, no lines, no quantity change on
// the first product either.
func TestCreateNoteRollsBackOnMidTransactionFailure(t *testing.T) {
	db := setupTestDB(t)
	svc := newNoteService(t, db)

	p1 := seedProduct(t, db, "P1", "Widget", "2.00", 10)
	p2 := seedProduct(t, db, "P2", "Gadget", "3.00", 1)

	req := validHeader("SON-006")
	req.Products = []LineRequest{
		{ProductID: p1.ID, StockOut: 4},
		{ProductID: p2.ID, StockOut: 5}, // more than on hand
	}

	_, err := svc.CreateNote(&req, "tester")
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	assertNoSideEffects(t, db, p1.ID, 10)
	assertNoSideEffects(t, db, p2.ID, 1)
}

// The quantity guard closes the validate-then-decrement race: a request that
// passed validation against a stale snapshot still cannot drive stock
// negative, because the decrement re-checks the live value inside the
// transaction. Policy: the later request is rejected, stock never goes
// negative. (Without the guard both creations would commit and overdraw.)
func TestCreateNoteRejectsOverdraw(t *testing.T) {
	db := setupTestDB(t)
	svc := newNoteService(t, db)
	p := seedProduct(t, db, "P1", "Widget", "1.00", 10)

	first := validHeader("SON-007a")
	first.Products = []LineRequest{{ProductID: p.ID, StockOut: 7}}
	if _, err := svc.CreateNote(&first, "tester"); err != nil {
		t.Fatalf("first create: %v", err)
	}

	second := validHeader("SON-007b")
	second.Products = []LineRequest{{ProductID: p.ID, StockOut: 5}}
	_, err := svc.CreateNote(&second, "tester")
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	var got model.Product
	if err := db.First(&got, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Quantity != 3 {
		t.Errorf("quantity = %d, want 3 (never negative)", got.Quantity)
	}
}

func TestCreateNoteTotalIgnoresLaterPriceChanges(t *testing.T) {
	db := setupTestDB(t)
	svc := newNoteService(t, db)
	p := seedProduct(t, db, "P1", "Widget", "10.00", 10)

	req := validHeader("SON-008")
	req.Products = []LineRequest{{ProductID: p.ID, StockOut: 2}}
	note, err := svc.CreateNote(&req, "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := db.Model(&model.Product{}).Where("id = ?", p.ID).
		Update("price", decimal.RequireFromString("99.99")).Error; err != nil {
		t.Fatalf("reprice: %v", err)
	}

	reloaded, err := svc.GetNote(note.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if want := decimal.RequireFromString("20.00"); !reloaded.Total.Equal(want) {
		t.Errorf("total = %s, want %s (fixed at creation)", reloaded.Total, want)
	}
}

func TestGetNoteIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := newNoteService(t, db)
	p := seedProduct(t, db, "P1", "Widget", "4.25", 10)

	req := validHeader("SON-009")
	req.Products = []LineRequest{{ProductID: p.ID, StockOut: 2}}
	note, err := svc.CreateNote(&req, "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := svc.GetNote(note.ID)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	second, err := svc.GetNote(note.ID)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}

	if first.NoteCode != second.NoteCode || !first.Total.Equal(second.Total) ||
		first.Status != second.Status || len(first.Products) != len(second.Products) {
		t.Errorf("reads differ: %+v vs %+v", first, second)
	}
}

func TestGetNoteNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := newNoteService(t, db)

	_, err := svc.GetNote(uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateNoteOptimisticConflict(t *testing.T) {
	db := setupTestDB(t)
	svc := newNoteService(t, db)
	p := seedProduct(t, db, "P1", "Widget", "1.00", 10)

	req := validHeader("SON-010")
	req.Products = []LineRequest{{ProductID: p.ID, StockOut: 1}}
	note, err := svc.CreateNote(&req, "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	current, err := svc.GetNote(note.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	edit := UpdateNoteRequest{
		NoteCode:        "SON-010-EDITED",
		CreateName:      current.CreateName,
		Customer:        "New Customer",
		AddressCustomer: current.AddressCustomer,
		Reason:          current.Reason,
		Status:          model.StatusWaiting,
		UpdatedAt:       current.UpdatedAt,
	}
	if err := svc.UpdateNote(note.ID, &edit, "editor"); err != nil {
		t.Fatalf("fresh edit: %v", err)
	}

	got, err := svc.GetNote(note.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.NoteCode != "SON-010-EDITED" || got.Customer != "New Customer" || got.Status != model.StatusWaiting {
		t.Errorf("edit not applied: %+v", got)
	}

	// The first edit moved updated_at on; replaying with the old value is a
	// lost race, not a missing record.
	stale := edit
	stale.Customer = "Even Newer"
	if err := svc.UpdateNote(note.ID, &stale, "editor"); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale edit err = %v, want ErrConflict", err)
	}

	missing := edit
	missing.UpdatedAt = got.UpdatedAt
	if err := svc.UpdateNote(uuid.New(), &missing, "editor"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing note err = %v, want ErrNotFound", err)
	}
}

func TestUpdateNoteDoesNotTouchInventory(t *testing.T) {
	db := setupTestDB(t)
	svc := newNoteService(t, db)
	p := seedProduct(t, db, "P1", "Widget", "1.00", 10)

	req := validHeader("SON-011")
	req.Products = []LineRequest{{ProductID: p.ID, StockOut: 4}}
	note, err := svc.CreateNote(&req, "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	current, _ := svc.GetNote(note.ID)

	edit := UpdateNoteRequest{
		NoteCode:        current.NoteCode,
		CreateName:      current.CreateName,
		Customer:        current.Customer,
		AddressCustomer: current.AddressCustomer,
		Reason:          "corrected reason",
		Status:          current.Status,
		UpdatedAt:       current.UpdatedAt,
	}
	if err := svc.UpdateNote(note.ID, &edit, "editor"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	var got model.Product
	db.First(&got, "id = ?", p.ID)
	if got.Quantity != 6 {
		t.Errorf("quantity = %d, want 6 (edits must not touch inventory)", got.Quantity)
	}
}

// Deleting a note removes the paperwork, not the stock effect: the goods
// already left the warehouse. Quantities stay where the creation put them.
func TestDeleteNoteDoesNotRestoreStock(t *testing.T) {
	db := setupTestDB(t)
	svc := newNoteService(t, db)
	p := seedProduct(t, db, "P1", "Widget", "1.00", 10)

	req := validHeader("SON-012")
	req.Products = []LineRequest{{ProductID: p.ID, StockOut: 4}}
	note, err := svc.CreateNote(&req, "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.DeleteNote(note.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.GetNote(note.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete err = %v, want ErrNotFound", err)
	}

	var lineCount int64
	db.Model(&model.NoteProduct{}).Where("note_id = ?", note.ID).Count(&lineCount)
	if lineCount != 0 {
		t.Errorf("line count = %d, want 0 after delete", lineCount)
	}

	var got model.Product
	db.First(&got, "id = ?", p.ID)
	if got.Quantity != 6 {
		t.Errorf("quantity = %d, want 6 (delete must not restore stock)", got.Quantity)
	}

	if err := svc.DeleteNote(note.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestSetStatus(t *testing.T) {
	db := setupTestDB(t)
	svc := newNoteService(t, db)
	p := seedProduct(t, db, "P1", "Widget", "1.00", 10)

	req := validHeader("SON-013")
	req.Products = []LineRequest{{ProductID: p.ID, StockOut: 1}}
	note, err := svc.CreateNote(&req, "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.SetStatus(note.ID, model.StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, _ := svc.GetNote(note.ID)
	if got.Status != model.StatusApproved {
		t.Errorf("status = %v, want Approved", got.Status)
	}

	// Permissive default: even a decided note may move again.
	if err := svc.SetStatus(note.ID, model.StatusDisapproved); err != nil {
		t.Fatalf("disapprove after approve: %v", err)
	}

	if err := svc.SetStatus(note.ID, model.NoteStatus(9)); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("invalid status err = %v, want ErrInvalidStatus", err)
	}
	if err := svc.SetStatus(uuid.New(), model.StatusApproved); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing note err = %v, want ErrNotFound", err)
	}

	// Status moves never touch inventory.
	var gotProduct model.Product
	db.First(&gotProduct, "id = ?", p.ID)
	if gotProduct.Quantity != 9 {
		t.Errorf("quantity = %d, want 9", gotProduct.Quantity)
	}
}

func TestBadgeQueries(t *testing.T) {
	db := setupTestDB(t)
	svc := newNoteService(t, db)
	p := seedProduct(t, db, "P1", "Widget", "1.00", 100)

	makeNote := func(code string) *model.Note {
		req := validHeader(code)
		req.Products = []LineRequest{{ProductID: p.ID, StockOut: 1}}
		note, err := svc.CreateNote(&req, "tester")
		if err != nil {
			t.Fatalf("create %s: %v", code, err)
		}
		return note
	}

	a := makeNote("SON-014a")
	b := makeNote("SON-014b")
	makeNote("SON-014c")

	count, err := svc.NewNoteCount()
	if err != nil || count != 0 {
		t.Fatalf("new count = %d (%v), want 0", count, err)
	}
	decided, err := svc.HasDecidedNotes()
	if err != nil || decided {
		t.Fatalf("decided = %v (%v), want false", decided, err)
	}

	if err := svc.SetStatus(a.ID, model.StatusWaiting); err != nil {
		t.Fatalf("set waiting: %v", err)
	}
	count, _ = svc.NewNoteCount()
	if count != 1 {
		t.Errorf("new count = %d, want 1", count)
	}

	if err := svc.SetStatus(b.ID, model.StatusDisapproved); err != nil {
		t.Fatalf("set disapproved: %v", err)
	}
	decided, _ = svc.HasDecidedNotes()
	if !decided {
		t.Error("decided = false, want true")
	}
}

func assertNoSideEffects(t *testing.T, db *gorm.DB, productID uuid.UUID, wantQuantity int) {
	t.Helper()

	var noteCount, lineCount int64
	db.Model(&model.Note{}).Count(&noteCount)
	db.Model(&model.NoteProduct{}).Count(&lineCount)
	if noteCount != 0 || lineCount != 0 {
		t.Errorf("store not clean: %d notes, %d lines", noteCount, lineCount)
	}

	var got model.Product
	if err := db.First(&got, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.Quantity != wantQuantity {
		t.Errorf("quantity = %d, want %d", got.Quantity, wantQuantity)
	}
}
