package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/Skotchmaster/bookstore/pkg/events"
	"github.com/Skotchmaster/bookstore/services/order/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncOrderToLibrary(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	o := f.ebookOrder(t, 201, 2000)

	_, err := f.svcs.Library.SyncOrderToLibrary(ctx, o.ID, 201)
	assert.ErrorIs(t, err, ErrOrderNotPaid)

	_, err = f.svcs.Payments.UpdateOrderPaymentStatus(ctx, o.ID, models.PaymentStatusPaid, "")
	require.NoError(t, err)

	_, err = f.svcs.Library.SyncOrderToLibrary(ctx, o.ID, 202)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	added, err := f.svcs.Library.SyncOrderToLibrary(ctx, o.ID, 201)
	require.NoError(t, err)
	assert.Equal(t, int64(1), added)

	added, err = f.svcs.Library.SyncOrderToLibrary(ctx, o.ID, 0)
	require.NoError(t, err)
	assert.Zero(t, added)

	items, err := f.svcs.Library.ListLibrary(ctx, 201)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.AccessPurchased, items[0].AccessType)
	require.NotNil(t, items[0].OrderID)
	assert.Equal(t, o.ID, *items[0].OrderID)
}

func TestSyncOrderToLibrary_DuplicateBooksGrantOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	b := f.addBook(t, models.Book{Title: "Dreams", Price: 1000})
	o := &models.Order{
		OrderNumber:   "ORD-MANUAL",
		UserID:        211,
		Status:        models.OrderStatusPaid,
		PaymentStatus: models.PaymentStatusPaid,
		Currency:      "NGN",
		Items: []models.OrderItem{
			{BookID: b.ID, Title: b.Title, Price: 1000, Quantity: 1, TotalPrice: 1000, Format: models.FormatEbook},
			{BookID: b.ID, Title: b.Title, Price: 1000, Quantity: 1, TotalPrice: 1000, Format: models.FormatPhysical},
		},
	}
	require.NoError(t, f.db.Create(o).Error)

	added, err := f.svcs.Library.SyncOrderToLibrary(ctx, o.ID, 211)
	require.NoError(t, err)
	assert.Equal(t, int64(1), added)
	assert.Equal(t, int64(1), f.libraryCount(t, 211))
}

func TestAssignBook_EmailsRecipient(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	outbox := &events.Recorder{}
	mail := &EmailDispatcher{Mailer: &KafkaMailer{Publisher: outbox, Topic: "emails"}}
	f.svcs.Library.Mail = mail

	b := f.addBook(t, models.Book{Title: "Half of a Yellow Sun", AuthorName: "Chimamanda Ngozi Adichie", Price: 2100})

	_, err := f.svcs.Library.AssignBookToUser(ctx, AssignInput{UserID: 231, BookID: b.ID, AdminID: 1, Reason: "book club"})
	require.NoError(t, err)
	_, err = f.svcs.Library.AssignBookToUser(ctx, AssignInput{
		UserID:      231,
		BookID:      b.ID,
		AdminID:     1,
		Reason:      "<b>prize</b> winner",
		NotifyEmail: " reader@example.com ",
	})
	require.NoError(t, err)
	mail.Wait()

	sent := outbox.Events()
	require.Len(t, sent, 1)
	assert.Equal(t, "emails", sent[0].Topic)
	req, ok := sent[0].Event.(EmailRequested)
	require.True(t, ok)
	assert.Equal(t, "reader@example.com", req.Recipient)
	assert.Equal(t, EmailLibraryBookAssigned, req.Slug)
	assert.Equal(t, "Half of a Yellow Sun", req.Variables["book_title"])
	assert.Equal(t, "Chimamanda Ngozi Adichie", req.Variables["author_name"])
	assert.Equal(t, "prize winner", req.Variables["reason"])
}

func TestAssignAndRemoveBook(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	b := f.addBook(t, models.Book{Title: "The Famished Road", Price: 1800})

	_, err := f.svcs.Library.AssignBookToUser(ctx, AssignInput{UserID: 221, BookID: 9999, AdminID: 1})
	assert.ErrorIs(t, err, ErrBookNotFound)

	a, err := f.svcs.Library.AssignBookToUser(ctx, AssignInput{UserID: 221, BookID: b.ID, AdminID: 1, Reason: "review copy"})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentActive, a.Status)
	assert.Equal(t, "review copy", a.Reason)

	a, err = f.svcs.Library.AssignBookToUser(ctx, AssignInput{UserID: 221, BookID: b.ID, AdminID: 2, Reason: "again"})
	require.NoError(t, err)
	assert.Equal(t, uint(2), a.AssignedBy)
	assert.Equal(t, int64(1), f.libraryCount(t, 221))

	admin := uint(2)
	require.NoError(t, f.svcs.Library.RemoveBookFromUser(ctx, 221, b.ID, &admin))
	assert.Zero(t, f.libraryCount(t, 221))

	removed, err := f.repo.Assignment(ctx, 221, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentRemoved, removed.Status)
	require.NotNil(t, removed.RemovedBy)
	assert.Equal(t, admin, *removed.RemovedBy)

	err = f.svcs.Library.RemoveBookFromUser(ctx, 221, b.ID, &admin)
	assert.ErrorIs(t, err, ErrNotInLibrary)

	logs, err := f.repo.AuditLogs(ctx, "user_library", fmt.Sprintf("221:%d", b.ID))
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "library.remove", logs[2].Action)

	a, err = f.svcs.Library.AssignBookToUser(ctx, AssignInput{UserID: 221, BookID: b.ID, AdminID: 3})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentActive, a.Status)
	assert.Nil(t, a.RemovedAt)
}

func TestVerifyUserLibrary(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	b := f.addBook(t, models.Book{Title: "Behold the Dreamers", Price: 1500})
	_, err := f.svcs.Library.AssignBookToUser(ctx, AssignInput{UserID: 231, BookID: b.ID, AdminID: 1})
	require.NoError(t, err)

	// drift: the library row vanished and another row points at a deleted book
	require.NoError(t, f.db.Where("user_id = ?", 231).Delete(&models.UserLibraryItem{}).Error)
	require.NoError(t, f.db.Create(&models.UserLibraryItem{
		UserID: 231, BookID: 4242, AccessType: models.AccessPromotional, Status: models.LibraryActive, AddedAt: testNow,
	}).Error)

	report, err := f.svcs.Library.VerifyUserLibrary(ctx, 231, false)
	require.NoError(t, err)
	assert.Equal(t, []models.LibraryDrift{{UserID: 231, BookID: 4242}}, report.Orphaned)
	assert.Equal(t, []models.LibraryDrift{{UserID: 231, BookID: b.ID}}, report.Unsynced)
	assert.Zero(t, report.Repaired)

	report, err = f.svcs.Library.SyncAssignmentsToLibrary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Repaired)

	report, err = f.svcs.Library.VerifyUserLibrary(ctx, 231, false)
	require.NoError(t, err)
	assert.Empty(t, report.Unsynced)
}
