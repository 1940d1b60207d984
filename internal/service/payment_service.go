package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sekolahku/psb-api/internal/models"
	"github.com/sekolahku/psb-api/internal/repository"
	"github.com/sekolahku/psb-api/pkg/export"
	"github.com/sekolahku/psb-api/pkg/jobs"
	"github.com/sekolahku/psb-api/pkg/storage"
	appErrors "github.com/sekolahku/psb-api/pkg/errors"
)

const receiptJobType = "receipt.render"

type paymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	FindDetailByID(ctx context.Context, id string) (*models.PaymentDetail, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error)
	UpdateReceiptFile(ctx context.Context, id, path string) error
	MarkReceiptFailed(ctx context.Context, id string) error
}

type paymentStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type receiptQueue interface {
	Enqueue(job jobs.Job) error
}

type receiptStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type receiptRenderer interface {
	Render(doc export.ReceiptDocument) ([]byte, error)
}

// RecordPaymentRequest describes a payment payload. Amount must be
// strictly positive; there is no idempotency key, so a client double
// submit records two payments.
type RecordPaymentRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Method    string  `json:"method" validate:"required,oneof=CASH TRANSFER QRIS"`
	Type      string  `json:"type" validate:"required,oneof=REGISTRATION TUITION"`
}

// ReceiptLink is the signed, expiring download handle for a receipt.
type ReceiptLink struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PaymentService records payments and drives the asynchronous receipt
// pipeline: mint a unique receipt number synchronously, render the PDF in
// the background, hand out signed download links once ready.
type PaymentService struct {
	repo      paymentRepository
	students  paymentStudentReader
	queue     receiptQueue
	storage   receiptStorage
	renderer  receiptRenderer
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(repo paymentRepository, students paymentStudentReader, queue receiptQueue, store receiptStorage, renderer receiptRenderer, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{repo: repo, students: students, queue: queue, storage: store, renderer: renderer, signer: signer, validator: validate, logger: logger}
}

// Record validates and persists a payment, minting the receipt number.
// All checks run before any row is written; a receipt number collision is
// re-minted once before giving up with a conflict.
func (s *PaymentService) Record(ctx context.Context, req RecordPaymentRequest) (*models.PaymentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	payment := &models.Payment{
		StudentID: req.StudentID,
		Amount:    req.Amount,
		Method:    models.PaymentMethod(req.Method),
		Type:      models.PaymentType(req.Type),
	}

	for attempt := 0; ; attempt++ {
		number, err := mintReceiptNumber()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mint receipt number")
		}
		payment.ReceiptNumber = number

		err = s.repo.Create(ctx, payment)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicateReceipt) && attempt == 0 {
			continue
		}
		if errors.Is(err, repository.ErrDuplicateReceipt) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "duplicate receipt number")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("student_id", payment.StudentID),
		zap.String("receipt_number", payment.ReceiptNumber),
		zap.Float64("amount", payment.Amount))

	if s.queue != nil {
		if err := s.queue.Enqueue(jobs.Job{ID: payment.ID, Type: receiptJobType, Payload: payment.ID}); err != nil {
			s.logger.Warn("failed to enqueue receipt rendering", zap.String("payment_id", payment.ID), zap.Error(err))
		}
	}

	detail, err := s.repo.FindDetailByID(ctx, payment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment detail")
	}
	return detail, nil
}

// Get returns one payment with student context.
func (s *PaymentService) Get(ctx context.Context, id string) (*models.PaymentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return detail, nil
}

// List returns payments with pagination metadata.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, *models.Pagination, error) {
	payments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// ReceiptLink returns a signed download token for a rendered receipt.
func (s *PaymentService) ReceiptLink(ctx context.Context, paymentID string) (*ReceiptLink, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.ReceiptStatus != models.ReceiptStatusReady || payment.ReceiptPath == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "receipt is not ready yet")
	}

	token, expiresAt, err := s.signer.Generate(payment.ID, *payment.ReceiptPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign receipt link")
	}
	return &ReceiptLink{Token: token, URL: "/receipts/" + token, ExpiresAt: expiresAt}, nil
}

// OpenReceipt validates a signed token and opens the underlying PDF.
func (s *PaymentService) OpenReceipt(ctx context.Context, token string) (*os.File, *models.Payment, error) {
	paymentID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid receipt token")
	}

	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.ReceiptPath == nil || *payment.ReceiptPath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
	}

	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "receipt file missing")
	}
	return file, payment, nil
}

// RenderReceiptJob is the queue handler that renders and stores the PDF.
func (s *PaymentService) RenderReceiptJob(ctx context.Context, job jobs.Job) error {
	paymentID, ok := job.Payload.(string)
	if !ok {
		s.logger.Error("receipt job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}

	detail, err := s.repo.FindDetailByID(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("load payment %s: %w", paymentID, err)
	}

	pdf, err := s.renderer.Render(export.ReceiptDocument{
		ReceiptNumber: detail.ReceiptNumber,
		StudentName:   detail.StudentName,
		GuardianName:  detail.ParentName,
		Amount:        detail.Amount,
		Method:        string(detail.Method),
		Type:          string(detail.Type),
		PaidAt:        detail.PaidAt.Format("2006-01-02 15:04"),
	})
	if err != nil {
		// Render errors are deterministic; retrying will not help.
		s.logger.Error("receipt render failed", zap.String("payment_id", paymentID), zap.Error(err))
		if err := s.repo.MarkReceiptFailed(ctx, paymentID); err != nil {
			s.logger.Warn("failed to mark receipt failed", zap.String("payment_id", paymentID), zap.Error(err))
		}
		return nil
	}

	relPath := fmt.Sprintf("%s/%s.pdf", detail.PaidAt.UTC().Format("2006-01"), detail.ReceiptNumber)
	if _, err := s.storage.Save(relPath, pdf); err != nil {
		return fmt.Errorf("store receipt %s: %w", paymentID, err)
	}
	if err := s.repo.UpdateReceiptFile(ctx, paymentID, relPath); err != nil {
		return fmt.Errorf("update receipt state %s: %w", paymentID, err)
	}

	s.logger.Info("receipt rendered", zap.String("payment_id", paymentID), zap.String("path", relPath))
	return nil
}

func mintReceiptNumber() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "RECEIPT-" + hex.EncodeToString(buf), nil
}
