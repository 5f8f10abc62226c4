package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Skotchmaster/bookstore/services/order/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{7}, 64)...)

func (f *fixture) startTransfer(t *testing.T, o *models.Order) *BankTransferDetails {
	t.Helper()
	d, err := f.svcs.BankTransfers.CreateBankTransfer(context.Background(), CreateBankTransferInput{
		OrderID: o.ID,
		UserID:  o.UserID,
	})
	require.NoError(t, err)
	return d
}

func TestNewTransferReference(t *testing.T) {
	t.Parallel()

	ref, err := NewTransferReference(testNow)
	require.NoError(t, err)
	assert.Regexp(t, fmt.Sprintf(`^BT-%d-[A-Z0-9]{6}$`, testNow.UnixMilli()), ref)

	other, err := NewTransferReference(testNow)
	require.NoError(t, err)
	assert.NotEqual(t, ref, other)
}

func TestCreateBankTransfer_NeedsAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	o := f.ebookOrder(t, 301, 2000)
	_, err := f.svcs.BankTransfers.CreateBankTransfer(context.Background(), CreateBankTransferInput{OrderID: o.ID, UserID: 301})
	assert.ErrorIs(t, err, ErrBankAccountMissing)
	assert.ErrorIs(t, err, ErrBusinessRule)

	var n int64
	require.NoError(t, f.db.Model(&models.BankTransfer{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreateBankTransfer(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	acct := f.addBankAccount(t)
	f.addTaxRate(t, "NG", 7.5)
	o := f.ebookOrder(t, 311, 2000)

	d := f.startTransfer(t, o)
	bt := d.Transfer
	assert.Regexp(t, `^BT-\d+-[A-Z0-9]{6}$`, bt.TransactionReference)
	assert.Equal(t, models.TransferPending, bt.Status)
	assert.Equal(t, 2150.0, bt.Amount)
	assert.Equal(t, acct.ID, bt.BankAccountID)
	assert.True(t, bt.ExpiresAt.Equal(testNow.Add(24*time.Hour)))
	require.NotNil(t, d.Account)
	assert.Equal(t, "0123456789", d.Account.AccountNumber)
	assert.NotEmpty(t, d.Instructions)

	tx, err := f.repo.PaymentTransactionByTxID(ctx, bt.TransactionReference)
	require.NoError(t, err)
	assert.Equal(t, models.TxStatusPending, tx.Status)
	assert.Equal(t, models.GatewayBankTransfer, tx.GatewayType)

	linked, err := f.svcs.Orders.GetOrder(ctx, o.ID, 311, false)
	require.NoError(t, err)
	assert.Equal(t, models.GatewayBankTransfer, linked.PaymentMethod)
	assert.Equal(t, bt.TransactionReference, linked.PaymentTransactionID)

	notes, err := f.svcs.BankTransfers.Notifications(ctx, 311, true)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotifyInitiated, notes[0].Type)
	assert.Contains(t, notes[0].Message, "NGN 2,150.00")

	_, err = f.svcs.BankTransfers.CreateBankTransfer(ctx, CreateBankTransferInput{OrderID: o.ID, UserID: 311})
	assert.ErrorIs(t, err, ErrConflict, "one pending transfer per order")

	_, err = f.svcs.BankTransfers.CreateBankTransfer(ctx, CreateBankTransferInput{OrderID: o.ID, UserID: 312})
	assert.ErrorIs(t, err, ErrOrderNotFound)

	assert.Contains(t, f.events.Topics(), TopicBankTransfers)
}

func TestUploadProof(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.addBankAccount(t)
	o := f.ebookOrder(t, 321, 2000)
	bt := f.startTransfer(t, o).Transfer

	in := UploadProofInput{TransferID: bt.ID, UserID: 321, FileName: "receipt.PNG", MimeType: "image/png", Content: pngBytes}

	bad := in
	bad.MimeType = "text/html"
	_, _, err := f.svcs.BankTransfers.UploadProof(ctx, bad)
	assert.ErrorIs(t, err, ErrValidation)

	big := in
	big.Content = make([]byte, defaultMaxProofBytes+1)
	_, _, err = f.svcs.BankTransfers.UploadProof(ctx, big)
	assert.ErrorIs(t, err, ErrValidation)

	stranger := in
	stranger.UserID = 322
	_, _, err = f.svcs.BankTransfers.UploadProof(ctx, stranger)
	assert.ErrorIs(t, err, ErrTransferNotFound)

	proof, created, err := f.svcs.BankTransfers.UploadProof(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, proof.Checksum, 64)
	assert.Equal(t, "receipt.PNG", proof.FileName)
	assert.Len(t, f.proofs.files, 1)

	dup, created, err := f.svcs.BankTransfers.UploadProof(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, proof.ID, dup.ID)

	proofs, err := f.svcs.BankTransfers.ListProofs(ctx, bt.ID, 321, false)
	require.NoError(t, err)
	assert.Len(t, proofs, 1)
}

func TestReviewBankTransfer_Verify(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.addBankAccount(t)
	o := f.ebookOrder(t, 331, 2000)
	bt := f.startTransfer(t, o).Transfer
	_, _, err := f.svcs.BankTransfers.UploadProof(ctx, UploadProofInput{
		TransferID: bt.ID, UserID: 331, FileName: "r.png", MimeType: "image/png", Content: pngBytes,
	})
	require.NoError(t, err)

	_, err = f.svcs.BankTransfers.UpdateBankTransferStatus(ctx, bt.ID, ReviewInput{Status: "approved", AdminID: 9})
	assert.ErrorIs(t, err, ErrValidation)

	verified, err := f.svcs.BankTransfers.UpdateBankTransferStatus(ctx, bt.ID, ReviewInput{Status: "verified", AdminID: 9})
	require.NoError(t, err)
	assert.Equal(t, models.TransferVerified, verified.Status)
	require.NotNil(t, verified.VerifiedBy)
	assert.Equal(t, uint(9), *verified.VerifiedBy)

	paid, err := f.svcs.Orders.GetOrder(ctx, o.ID, 331, false)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, models.OrderStatusConfirmed, paid.Status)
	assert.Equal(t, int64(1), f.libraryCount(t, 331))
	assert.Zero(t, f.cartCount(t, 331))

	tx, err := f.repo.PaymentTransactionByTxID(ctx, bt.TransactionReference)
	require.NoError(t, err)
	assert.Equal(t, models.TxStatusSuccess, tx.Status)

	proofs, err := f.svcs.BankTransfers.ListProofs(ctx, bt.ID, 0, true)
	require.NoError(t, err)
	require.Len(t, proofs, 1)
	assert.True(t, proofs[0].IsVerified)

	_, err = f.svcs.BankTransfers.UpdateBankTransferStatus(ctx, bt.ID, ReviewInput{Status: "rejected", AdminID: 9, AdminNotes: "late"})
	assert.ErrorIs(t, err, ErrTransferNotPending)

	_, _, err = f.svcs.BankTransfers.UploadProof(ctx, UploadProofInput{
		TransferID: bt.ID, UserID: 331, FileName: "r2.pdf", MimeType: "application/pdf", Content: []byte("%PDF-1.4"),
	})
	assert.ErrorIs(t, err, ErrTransferNotPending)
}

func TestReviewBankTransfer_Reject(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.addBankAccount(t)
	o := f.ebookOrder(t, 341, 2000)
	bt := f.startTransfer(t, o).Transfer

	_, err := f.svcs.BankTransfers.UpdateBankTransferStatus(ctx, bt.ID, ReviewInput{Status: "rejected", AdminID: 9})
	assert.ErrorIs(t, err, ErrNoteRequired)

	rejected, err := f.svcs.BankTransfers.UpdateBankTransferStatus(ctx, bt.ID, ReviewInput{
		Status: "rejected", AdminID: 9, AdminNotes: "amount does not match",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransferRejected, rejected.Status)
	assert.Equal(t, "amount does not match", rejected.AdminNotes)

	failed, err := f.svcs.Orders.GetOrder(ctx, o.ID, 341, false)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, failed.PaymentStatus)
	assert.Equal(t, models.OrderStatusPaymentFailed, failed.Status)
	assert.Zero(t, f.libraryCount(t, 341))
	assert.Equal(t, int64(1), f.cartCount(t, 341))

	notes, err := f.svcs.BankTransfers.Notifications(ctx, 341, false)
	require.NoError(t, err)
	types := make([]string, 0, len(notes))
	for _, n := range notes {
		types = append(types, n.Type)
	}
	assert.ElementsMatch(t, []string{models.NotifyInitiated, models.NotifyRejected}, types)

	again := f.startTransfer(t, o)
	assert.Equal(t, models.TransferPending, again.Transfer.Status, "a rejected transfer can be retried")
}

func TestCleanupExpiredTransfers(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.addBankAccount(t)
	stale := f.startTransfer(t, f.ebookOrder(t, 351, 1000)).Transfer
	done := f.startTransfer(t, f.ebookOrder(t, 352, 1000)).Transfer
	_, err := f.svcs.BankTransfers.UpdateBankTransferStatus(ctx, done.ID, ReviewInput{Status: "verified", AdminID: 1})
	require.NoError(t, err)

	n, err := f.svcs.BankTransfers.CleanupExpiredTransfers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing is overdue yet")

	f.now = testNow.Add(25 * time.Hour)
	n, err = f.svcs.BankTransfers.CleanupExpiredTransfers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	expired, err := f.repo.BankTransferByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferExpired, expired.Status)

	untouched, err := f.repo.BankTransferByID(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferVerified, untouched.Status)

	tx, err := f.repo.PaymentTransactionByTxID(ctx, stale.TransactionReference)
	require.NoError(t, err)
	assert.Equal(t, models.TxStatusCancelled, tx.Status)

	notes, err := f.svcs.BankTransfers.Notifications(ctx, 351, false)
	require.NoError(t, err)
	require.NotEmpty(t, notes)
	found := false
	for _, nt := range notes {
		found = found || nt.Type == models.NotifyExpired
	}
	assert.True(t, found)

	n, err = f.svcs.BankTransfers.CleanupExpiredTransfers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "a second sweep finds nothing")
}

func TestNotifications_MarkRead(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.addBankAccount(t)
	f.startTransfer(t, f.ebookOrder(t, 361, 1000))

	unread, err := f.svcs.BankTransfers.Notifications(ctx, 361, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	err = f.svcs.BankTransfers.MarkNotificationRead(ctx, 362, unread[0].ID)
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	require.NoError(t, f.svcs.BankTransfers.MarkNotificationRead(ctx, 361, unread[0].ID))
	unread, err = f.svcs.BankTransfers.Notifications(ctx, 361, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestListBankTransfers_ScopedToCaller(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.addBankAccount(t)
	f.startTransfer(t, f.ebookOrder(t, 371, 1000))
	f.startTransfer(t, f.ebookOrder(t, 372, 1000))

	mine, err := ParseBankTransferFilter(nil, 371, false)
	require.NoError(t, err)
	transfers, total, err := f.svcs.BankTransfers.ListBankTransfers(ctx, mine)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, transfers, 1)
	assert.Equal(t, uint(371), transfers[0].UserID)

	all, err := ParseBankTransferFilter(nil, 1, true)
	require.NoError(t, err)
	_, total, err = f.svcs.BankTransfers.ListBankTransfers(ctx, all)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
