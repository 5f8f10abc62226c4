package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	dbpkg "github.com/Skotchmaster/bookstore/pkg/db"
	"github.com/Skotchmaster/bookstore/pkg/logging"
	"github.com/Skotchmaster/bookstore/pkg/util"
	"github.com/Skotchmaster/bookstore/services/order/internal/models"
	"github.com/Skotchmaster/bookstore/services/order/internal/repo"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"gorm.io/gorm"
)

const referenceAttempts = 3

type BankTransferService struct {
	Runtime
	Repo     *repo.GormRepo
	Payments *PaymentService
	Proofs   ProofStore
}

type CreateBankTransferInput struct {
	OrderID       uint
	UserID        uint
	Amount        float64
	Currency      string
	BankAccountID *uint
}

type BankTransferDetails struct {
	Transfer     *models.BankTransfer  `json:"transfer"`
	Account      *models.BankAccount   `json:"bank_account,omitempty"`
	Proofs       []models.PaymentProof `json:"proofs,omitempty"`
	Instructions string                `json:"instructions,omitempty"`
}

type UploadProofInput struct {
	TransferID uint
	UserID     uint
	FileName   string
	MimeType   string
	Content    []byte
}

type ReviewInput struct {
	Status     string
	AdminID    uint
	AdminNotes string
}

func loadTransfer(ctx context.Context, r *repo.GormRepo, id uint) (*models.BankTransfer, error) {
	bt, err := r.BankTransferByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrTransferNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load bank transfer %d: %w", id, err)
	}
	return bt, nil
}

func resolveAccount(ctx context.Context, r *repo.GormRepo, id *uint) (*models.BankAccount, error) {
	var (
		acct *models.BankAccount
		err  error
	)
	if id != nil {
		acct, err = r.ActiveBankAccount(ctx, *id)
	} else {
		acct, err = r.DefaultBankAccount(ctx)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if id != nil {
			return nil, fmt.Errorf("%w: account %d is not active", ErrBankAccountMissing, *id)
		}
		return nil, fmt.Errorf("%w: no active default account", ErrBankAccountMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("load bank account: %w", err)
	}
	return acct, nil
}

// CreateBankTransfer opens a manual payment for an order. It fails when no
// receiving account can be resolved.
func (s *BankTransferService) CreateBankTransfer(ctx context.Context, in CreateBankTransferInput) (*BankTransferDetails, error) {
	if in.OrderID == 0 || in.UserID == 0 {
		return nil, fmt.Errorf("%w: order_id and user required", ErrValidation)
	}
	cfg, active, err := s.bankTransferConfig(ctx)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, fmt.Errorf("%w: %s", ErrGatewayInactive, models.GatewayBankTransfer)
	}

	var (
		details *BankTransferDetails
		order   *models.Order
	)
	err = s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		o, err := loadOrder(ctx, r, in.OrderID)
		if err != nil {
			return err
		}
		if o.UserID != in.UserID {
			return fmt.Errorf("%w: id %d", ErrOrderNotFound, in.OrderID)
		}
		if o.PaymentStatus == models.PaymentStatusPaid {
			return fmt.Errorf("%w: order %s is already paid", ErrConflict, o.OrderNumber)
		}
		if IsTerminal(o.Status) {
			return fmt.Errorf("%w: order %s is %s", ErrConflict, o.OrderNumber, o.Status)
		}
		pending, err := r.CountPendingTransfers(ctx, o.ID)
		if err != nil {
			return err
		}
		if pending > 0 {
			return fmt.Errorf("%w: order %s already has a pending transfer", ErrConflict, o.OrderNumber)
		}

		acct, err := resolveAccount(ctx, r, in.BankAccountID)
		if err != nil {
			return err
		}

		amount := Round2(in.Amount)
		if amount == 0 {
			amount = o.TotalAmount
		}
		if amount <= 0 {
			return fmt.Errorf("%w: amount must be positive", ErrValidation)
		}
		currency := strings.ToUpper(strings.TrimSpace(in.Currency))
		if currency == "" {
			currency = o.Currency
		}

		now := s.now()
		bt := &models.BankTransfer{
			OrderID:       o.ID,
			UserID:        o.UserID,
			BankAccountID: acct.ID,
			Amount:        amount,
			Currency:      currency,
			Status:        models.TransferPending,
			ExpiresAt:     now.Add(time.Duration(cfg.ExpiryHours) * time.Hour),
		}
		if err := s.insertWithReference(ctx, r, bt, now); err != nil {
			return err
		}

		if err := r.CreatePaymentTransaction(ctx, &models.PaymentTransaction{
			TransactionID: bt.TransactionReference,
			OrderID:       o.ID,
			UserID:        o.UserID,
			GatewayType:   models.GatewayBankTransfer,
			Amount:        amount,
			Currency:      currency,
			Status:        models.TxStatusPending,
		}); err != nil {
			return fmt.Errorf("create transaction for transfer %s: %w", bt.TransactionReference, err)
		}
		if _, err := r.UpdateOrderFields(ctx, o.ID, map[string]any{
			"payment_method":         models.GatewayBankTransfer,
			"payment_transaction_id": bt.TransactionReference,
		}); err != nil {
			return err
		}
		if err := r.CreateNotifications(ctx, []models.BankTransferNotification{
			transferNotice(bt, models.NotifyInitiated, ""),
		}); err != nil {
			return err
		}

		order = o
		details = &BankTransferDetails{Transfer: bt, Account: acct, Instructions: cfg.Instructions}
		return nil
	})
	if err != nil {
		return nil, err
	}

	bt := details.Transfer
	s.announceTransfer(ctx, bt, models.NotifyInitiated)
	s.email(ctx, order.ContactEmail(), EmailTransferInitiated, map[string]string{
		"order_number":   order.OrderNumber,
		"reference":      bt.TransactionReference,
		"amount":         FormatMoney(bt.Amount, bt.Currency),
		"bank_name":      details.Account.BankName,
		"account_number": details.Account.AccountNumber,
		"account_name":   details.Account.AccountName,
		"expires_at":     bt.ExpiresAt.Format(time.RFC1123),
		"instructions":   details.Instructions,
	})
	return details, nil
}

func (s *BankTransferService) insertWithReference(ctx context.Context, r *repo.GormRepo, bt *models.BankTransfer, now time.Time) error {
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		ref, err := NewTransferReference(now)
		if err != nil {
			return err
		}
		bt.TransactionReference = ref
		err = r.Transaction(ctx, func(sp *repo.GormRepo) error {
			return sp.CreateBankTransfer(ctx, bt)
		})
		if err == nil {
			return nil
		}
		if !dbpkg.IsUniqueViolation(err) {
			return fmt.Errorf("insert bank transfer: %w", err)
		}
		bt.ID = 0
	}
	return fmt.Errorf("%w: could not allocate a unique transfer reference", ErrConflict)
}

func transferNotice(bt *models.BankTransfer, kind, adminNotes string) models.BankTransferNotification {
	amount := FormatMoney(bt.Amount, bt.Currency)
	n := models.BankTransferNotification{
		BankTransferID: bt.ID,
		UserID:         bt.UserID,
		Type:           kind,
	}
	switch kind {
	case models.NotifyInitiated:
		n.Title = "Bank transfer started"
		n.Message = fmt.Sprintf("Transfer %s to complete reference %s before %s.",
			amount, bt.TransactionReference, bt.ExpiresAt.Format(time.RFC1123))
	case models.NotifyProofUploaded:
		n.Title = "Payment proof received"
		n.Message = fmt.Sprintf("We received your proof for %s and will review it shortly.", bt.TransactionReference)
	case models.NotifyVerified:
		n.Title = "Bank transfer verified"
		n.Message = fmt.Sprintf("Your payment of %s (%s) has been confirmed.", amount, bt.TransactionReference)
	case models.NotifyRejected:
		n.Title = "Bank transfer rejected"
		n.Message = fmt.Sprintf("Your payment %s could not be verified: %s", bt.TransactionReference, adminNotes)
	case models.NotifyExpired:
		n.Title = "Bank transfer expired"
		n.Message = fmt.Sprintf("Reference %s expired before payment was confirmed.", bt.TransactionReference)
	}
	return n
}

// UploadProof attaches a proof file to a pending transfer. Uploading the
// same bytes again returns the proof already stored; created reports
// whether a new row was written.
func (s *BankTransferService) UploadProof(ctx context.Context, in UploadProofInput) (proof *models.PaymentProof, created bool, err error) {
	if len(in.Content) == 0 || strings.TrimSpace(in.FileName) == "" {
		return nil, false, fmt.Errorf("%w: file required", ErrValidation)
	}
	cfg, _, err := s.bankTransferConfig(ctx)
	if err != nil {
		return nil, false, err
	}
	if int64(len(in.Content)) > cfg.MaxProofBytes {
		return nil, false, fmt.Errorf("%w: proof exceeds %d bytes", ErrValidation, cfg.MaxProofBytes)
	}
	mime := strings.ToLower(strings.TrimSpace(strings.SplitN(in.MimeType, ";", 2)[0]))
	if !oneOf(mime, cfg.AllowedProofTypes) {
		return nil, false, fmt.Errorf("%w: file type %q not accepted", ErrValidation, mime)
	}

	bt, err := loadTransfer(ctx, s.Repo, in.TransferID)
	if err != nil {
		return nil, false, err
	}
	if bt.UserID != in.UserID {
		return nil, false, fmt.Errorf("%w: id %d", ErrTransferNotFound, in.TransferID)
	}
	if bt.Status != models.TransferPending {
		return nil, false, fmt.Errorf("%w: %s is %s", ErrTransferNotPending, bt.TransactionReference, bt.Status)
	}

	sum := blake2b.Sum256(in.Content)
	checksum := hex.EncodeToString(sum[:])
	if existing, err := s.Repo.ProofByChecksum(ctx, bt.ID, checksum); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	name := fmt.Sprintf("%s-%s%s", bt.TransactionReference, checksum[:16], strings.ToLower(filepath.Ext(in.FileName)))
	path, err := s.Proofs.Save(ctx, name, in.Content)
	if err != nil {
		return nil, false, err
	}

	p := &models.PaymentProof{
		BankTransferID: bt.ID,
		FileName:       filepath.Base(in.FileName),
		FilePath:       path,
		FileSize:       int64(len(in.Content)),
		MimeType:       mime,
		Checksum:       checksum,
		UploadedBy:     in.UserID,
	}
	err = s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		current, err := loadTransfer(ctx, r, bt.ID)
		if err != nil {
			return err
		}
		if current.Status != models.TransferPending {
			return fmt.Errorf("%w: %s is %s", ErrTransferNotPending, current.TransactionReference, current.Status)
		}
		if err := r.CreateProof(ctx, p); err != nil {
			return err
		}
		return r.CreateNotifications(ctx, []models.BankTransferNotification{
			transferNotice(bt, models.NotifyProofUploaded, ""),
		})
	})
	if dbpkg.IsUniqueViolation(err) {
		existing, lookupErr := s.Repo.ProofByChecksum(ctx, bt.ID, checksum)
		if lookupErr != nil {
			return nil, false, lookupErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	s.announceTransfer(ctx, bt, models.NotifyProofUploaded)
	if o, err := loadOrder(ctx, s.Repo, bt.OrderID); err == nil {
		s.email(ctx, o.ContactEmail(), EmailTransferProof, map[string]string{
			"order_number": o.OrderNumber,
			"reference":    bt.TransactionReference,
		})
	}
	return p, true, nil
}

// UpdateBankTransferStatus records an admin decision on a pending
// transfer. Verification confirms the payment and fulfills the order in the
// same transaction; rejection fails the payment and grants nothing.
func (s *BankTransferService) UpdateBankTransferStatus(ctx context.Context, id uint, in ReviewInput) (*models.BankTransfer, error) {
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status != models.TransferVerified && status != models.TransferRejected {
		return nil, fmt.Errorf("%w: status must be verified or rejected", ErrValidation)
	}
	if in.AdminID == 0 {
		return nil, fmt.Errorf("%w: admin required", ErrValidation)
	}
	notes := SanitizeNote(in.AdminNotes)
	if status == models.TransferRejected && notes == "" {
		return nil, fmt.Errorf("%w: rejection needs admin notes", ErrNoteRequired)
	}
	admin := in.AdminID

	var (
		bt    *models.BankTransfer
		out   *PaymentOutcome
		from  string
		grant *libraryGrant
	)
	err := s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		current, err := loadTransfer(ctx, r, id)
		if err != nil {
			return err
		}
		if current.Status != models.TransferPending {
			return fmt.Errorf("%w: %s is %s", ErrTransferNotPending, current.TransactionReference, current.Status)
		}
		ok, err := r.ReviewBankTransfer(ctx, id, status, admin, notes, s.now())
		if err != nil {
			return fmt.Errorf("review bank transfer %d: %w", id, err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrTransferNotPending, current.TransactionReference)
		}

		response, err := json.Marshal(map[string]any{
			"source":      models.GatewayBankTransfer,
			"decision":    status,
			"admin_id":    admin,
			"admin_notes": notes,
		})
		if err != nil {
			return err
		}

		if status == models.TransferVerified {
			if err := r.MarkProofsVerified(ctx, id); err != nil {
				return err
			}
			out, from, grant, err = s.Payments.confirmInTx(ctx, r, current.TransactionReference, response, &admin)
		} else {
			out, from, err = s.Payments.failInTx(ctx, r, current.TransactionReference, models.TxStatusFailed, response, &admin)
		}
		if err != nil {
			return err
		}

		if bt, err = loadTransfer(ctx, r, id); err != nil {
			return err
		}
		return r.CreateNotifications(ctx, []models.BankTransferNotification{
			transferNotice(bt, status, notes),
		})
	})
	if err != nil {
		return nil, err
	}

	s.announceTransfer(ctx, bt, status)
	if status == models.TransferVerified {
		s.Payments.afterConfirm(ctx, out, from, grant, &admin)
		s.email(ctx, out.Order.ContactEmail(), EmailTransferVerified, map[string]string{
			"order_number": out.Order.OrderNumber,
			"reference":    bt.TransactionReference,
			"amount":       FormatMoney(bt.Amount, bt.Currency),
		})
		return bt, nil
	}

	s.Payments.announcePayment(ctx, out.Transaction)
	if from != out.Order.Status {
		s.Payments.Orders.afterTransition(ctx, out.Order, from, TransitionInput{To: out.Order.Status, ActorID: &admin})
	}
	s.email(ctx, out.Order.ContactEmail(), EmailTransferRejected, map[string]string{
		"order_number": out.Order.OrderNumber,
		"reference":    bt.TransactionReference,
		"admin_notes":  notes,
	})
	return bt, nil
}

// CleanupExpiredTransfers expires overdue pending transfers with one
// conditional update. Concurrent sweeps never notify the same transfer
// twice: each only reads back the rows tagged with its own sweep id.
func (s *BankTransferService) CleanupExpiredTransfers(ctx context.Context) (int64, error) {
	sweepID := uuid.NewString()
	n, err := s.Repo.ExpirePending(ctx, s.now(), sweepID)
	if err != nil {
		return 0, fmt.Errorf("expire bank transfers: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	bankTransfersExpired.Add(float64(n))

	l := logging.FromContext(ctx).With("sweep_id", sweepID)
	expired, err := s.Repo.TransfersBySweep(ctx, sweepID)
	if err != nil {
		l.Error("expired_transfers_lookup_error", "error", err)
		return n, nil
	}

	notices := make([]models.BankTransferNotification, 0, len(expired))
	refs := make([]string, 0, len(expired))
	for i := range expired {
		notices = append(notices, transferNotice(&expired[i], models.NotifyExpired, ""))
		refs = append(refs, expired[i].TransactionReference)
	}
	err = s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		if err := r.CreateNotifications(ctx, notices); err != nil {
			return err
		}
		_, err := r.CancelPendingTransactions(ctx, refs)
		return err
	})
	if err != nil {
		l.Error("expired_transfers_followup_error", "error", err)
	}

	for i := range expired {
		bt := &expired[i]
		s.announceTransfer(ctx, bt, models.NotifyExpired)
		if o, err := loadOrder(ctx, s.Repo, bt.OrderID); err == nil {
			s.email(ctx, o.ContactEmail(), EmailTransferExpired, map[string]string{
				"order_number": o.OrderNumber,
				"reference":    bt.TransactionReference,
			})
		}
	}
	l.Info("bank_transfers_expired", "count", n)
	return n, nil
}

func (s *BankTransferService) ListBankTransfers(ctx context.Context, f BankTransferFilter) ([]models.BankTransfer, int64, error) {
	offset, limit := util.Calculate(f.Page, f.Size)
	return s.Repo.ListBankTransfers(ctx, repo.BankTransferQuery{
		UserID:  f.UserID,
		OrderID: f.OrderID,
		Status:  f.Status,
		Limit:   limit,
		Offset:  offset,
	})
}

func (s *BankTransferService) GetBankTransfer(ctx context.Context, id, userID uint, admin bool) (*BankTransferDetails, error) {
	bt, err := loadTransfer(ctx, s.Repo, id)
	if err != nil {
		return nil, err
	}
	if !admin && bt.UserID != userID {
		return nil, fmt.Errorf("%w: id %d", ErrTransferNotFound, id)
	}
	details := &BankTransferDetails{Transfer: bt}
	if acct, err := s.Repo.ActiveBankAccount(ctx, bt.BankAccountID); err == nil {
		details.Account = acct
	}
	if details.Proofs, err = s.Repo.ListProofs(ctx, bt.ID); err != nil {
		return nil, err
	}
	return details, nil
}

func (s *BankTransferService) ListProofs(ctx context.Context, id, userID uint, admin bool) ([]models.PaymentProof, error) {
	d, err := s.GetBankTransfer(ctx, id, userID, admin)
	if err != nil {
		return nil, err
	}
	return d.Proofs, nil
}

func (s *BankTransferService) DefaultBankAccount(ctx context.Context) (*models.BankAccount, error) {
	return resolveAccount(ctx, s.Repo, nil)
}

func (s *BankTransferService) ActiveBankAccounts(ctx context.Context) ([]models.BankAccount, error) {
	return s.Repo.ActiveBankAccounts(ctx)
}

func (s *BankTransferService) Notifications(ctx context.Context, userID uint, unreadOnly bool) ([]models.BankTransferNotification, error) {
	return s.Repo.Notifications(ctx, userID, unreadOnly)
}

func (s *BankTransferService) MarkNotificationRead(ctx context.Context, userID, id uint) error {
	ok, err := s.Repo.MarkNotificationRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNotificationNotFound, id)
	}
	return nil
}

func (s *BankTransferService) announceTransfer(ctx context.Context, bt *models.BankTransfer, kind string) {
	s.publish(ctx, TopicBankTransfers, strconv.FormatUint(uint64(bt.ID), 10), BankTransferChanged{
		TransferID: bt.ID,
		OrderID:    bt.OrderID,
		UserID:     bt.UserID,
		Reference:  bt.TransactionReference,
		Status:     bt.Status,
		Kind:       kind,
	})
}
