// Package invoices issues one invoice per order and stores its PDF on the configured disk.
package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/internal/policy"
	"github.com/solarflow/solarshop-backend/internal/settings"
	"github.com/solarflow/solarshop-backend/pkg/db"
	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
	"github.com/solarflow/solarshop-backend/pkg/logger"
	"github.com/solarflow/solarshop-backend/pkg/numbering"
	"github.com/solarflow/solarshop-backend/pkg/storage"
)

const (
	uniqueOrderConstraint  = "invoices_order_id_key"
	uniqueNumberConstraint = "invoices_invoice_number_key"
	numberAttempts         = 3
	defaultSweepLimit      = 500
)

var ErrInvoiceNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")

type InvoiceDTO struct {
	ID            uuid.UUID           `json:"id"`
	OrderID       uuid.UUID           `json:"order_id"`
	InvoiceNumber string              `json:"invoice_number"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	TaxRate       decimal.Decimal     `json:"tax_rate"`
	Tax           decimal.Decimal     `json:"tax"`
	Total         decimal.Decimal     `json:"total"`
	Currency      string              `json:"currency"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	HasPDF        bool                `json:"has_pdf"`
	IssuedAt      time.Time           `json:"issued_at"`
}

// File is a rendered document ready to stream or attach.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Summary reports a GenerateMissing sweep.
type Summary struct {
	Scanned int `json:"scanned"`
	Created int `json:"created"`
	Failed  int `json:"failed"`
}

type Service interface {
	Generate(ctx context.Context, orderID uuid.UUID) (*InvoiceDTO, error)
	Download(ctx context.Context, actor policy.Actor, invoiceID uuid.UUID) (*File, error)
	DownloadForOrder(ctx context.Context, actor policy.Actor, orderID uuid.UUID) (*File, error)
	Attachment(ctx context.Context, orderID uuid.UUID) (*File, error)
	GenerateMissing(ctx context.Context) (Summary, error)
}

type companyProvider interface {
	Company(ctx context.Context) (settings.Company, error)
}

type ServiceParams struct {
	Repo       *Repository
	Disk       storage.Disk
	Company    companyProvider
	Policy     policy.Policy
	TaxRate    decimal.Decimal
	Prefix     string
	SweepLimit int
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo       *Repository
	disk       storage.Disk
	company    companyProvider
	policy     policy.Policy
	taxRate    decimal.Decimal
	prefix     string
	sweepLimit int
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if params.Disk == nil {
		return nil, fmt.Errorf("storage disk required")
	}
	if params.Policy == nil {
		params.Policy = policy.Default()
	}
	if params.Prefix == "" {
		params.Prefix = "INV"
	}
	if params.SweepLimit <= 0 {
		params.SweepLimit = defaultSweepLimit
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:       params.Repo,
		disk:       params.Disk,
		company:    params.Company,
		policy:     params.Policy,
		taxRate:    params.TaxRate,
		prefix:     params.Prefix,
		sweepLimit: params.SweepLimit,
		logg:       params.Logger,
		now:        params.Now,
	}, nil
}

func (s *service) Generate(ctx context.Context, orderID uuid.UUID) (*InvoiceDTO, error) {
	inv, _, err := s.generate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toDTO(inv), nil
}

// generate returns the order's invoice, creating it when absent. created is false when another
// caller won the insert race; the unique order_id index decides the winner.
func (s *service) generate(ctx context.Context, orderID uuid.UUID) (*models.Invoice, bool, error) {
	inv, err := s.repo.FindByOrderID(ctx, orderID)
	switch {
	case err == nil:
		if _, err := s.ensurePDF(ctx, inv); err != nil {
			return nil, false, err
		}
		return inv, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	totals := Calculate(linesFromOrder(order.Items), s.taxRate)
	issuedAt := s.now()
	created := false
	for attempt := 0; attempt < numberAttempts; attempt++ {
		inv = &models.Invoice{
			OrderID:       order.ID,
			InvoiceNumber: numbering.Generate(s.prefix, issuedAt),
			Subtotal:      totals.Subtotal,
			TaxRate:       s.taxRate,
			Tax:           totals.Tax,
			Total:         totals.Total,
			Currency:      order.Currency,
			PaymentStatus: order.PaymentStatus,
			IssuedAt:      issuedAt,
		}
		err = s.repo.Create(ctx, inv)
		if err == nil {
			created = true
			break
		}
		if db.IsUniqueViolation(err, uniqueOrderConstraint) {
			existing, findErr := s.repo.FindByOrderID(ctx, orderID)
			if findErr != nil {
				return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "reload invoice")
			}
			if _, err := s.ensurePDF(ctx, existing); err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		if !db.IsUniqueViolation(err, uniqueNumberConstraint) {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
		}
	}
	if !created {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "could not allocate invoice number")
	}

	inv.Order = order
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"invoice_id":     inv.ID.String(),
		"invoice_number": inv.InvoiceNumber,
		"order_id":       orderID.String(),
	}), "invoice created")

	if _, err := s.ensurePDF(ctx, inv); err != nil {
		return nil, true, err
	}
	return inv, true, nil
}

func (s *service) Download(ctx context.Context, actor policy.Actor, invoiceID uuid.UUID) (*File, error) {
	inv, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	if err := s.authorize(actor, inv.Order); err != nil {
		return nil, err
	}
	return s.file(ctx, inv)
}

func (s *service) DownloadForOrder(ctx context.Context, actor policy.Actor, orderID uuid.UUID) (*File, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := s.authorize(actor, order); err != nil {
		return nil, err
	}
	return s.Attachment(ctx, orderID)
}

func (s *service) Attachment(ctx context.Context, orderID uuid.UUID) (*File, error) {
	inv, _, err := s.generate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.file(ctx, inv)
}

// GenerateMissing creates invoices for orders that have none. Failures are counted and
// returned together. An order whose invoice row was written but whose PDF could not be stored
// counts as failed only; its PDF is rendered again on the next download or attachment.
func (s *service) GenerateMissing(ctx context.Context) (Summary, error) {
	var summary Summary
	ids, err := s.repo.OrderIDsWithoutInvoice(ctx, s.sweepLimit)
	if err != nil {
		return summary, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan orders without invoice")
	}

	var errs error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		summary.Scanned++
		_, created, err := s.generate(ctx, id)
		if err != nil {
			summary.Failed++
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", id, err))
			s.logg.Error(s.logg.WithField(ctx, "order_id", id.String()), "invoice backfill failed", err)
			continue
		}
		if created {
			summary.Created++
		}
	}
	return summary, errs
}

func (s *service) authorize(actor policy.Actor, order *models.Order) error {
	var owner *uuid.UUID
	if order != nil {
		owner = order.UserID
	}
	return s.policy.Authorize(actor, policy.ActionDownloadInvoice, owner)
}

func (s *service) file(ctx context.Context, inv *models.Invoice) (*File, error) {
	data, err := s.ensurePDF(ctx, inv)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data, err = s.disk.Get(ctx, *inv.PDFPath)
		if errors.Is(err, storage.ErrNotFound) {
			inv.PDFPath = nil
			data, err = s.ensurePDF(ctx, inv)
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read invoice pdf")
		}
	}
	return &File{Name: FileName(inv.InvoiceNumber), ContentType: contentType, Data: data}, nil
}

// ensurePDF renders and stores the PDF when none is on disk or when the stored copy shows a
// payment status other than the order's current one. It returns the freshly rendered bytes,
// or nil when the stored copy is current.
func (s *service) ensurePDF(ctx context.Context, inv *models.Invoice) ([]byte, error) {
	if inv.Order == nil {
		order, err := s.repo.FindOrder(ctx, inv.OrderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		inv.Order = order
	}
	if current := inv.Order.PaymentStatus; current != "" && current != inv.PaymentStatus {
		if err := s.repo.SetPaymentStatus(ctx, inv.ID, current); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync invoice payment status")
		}
		inv.PaymentStatus = current
	}

	if inv.PDFPath != nil && inv.PDFPaymentStatus != nil && *inv.PDFPaymentStatus == inv.PaymentStatus {
		ok, err := s.disk.Exists(ctx, *inv.PDFPath)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check invoice pdf")
		}
		if ok {
			return nil, nil
		}
	}

	var company settings.Company
	if s.company != nil {
		c, err := s.company.Company(ctx)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "invoice_id", inv.ID.String()), "company settings unavailable; rendering without letterhead")
		} else {
			company = c
		}
	}

	data, err := RenderPDF(inv, company)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render invoice")
	}
	objectPath, err := s.disk.Put(ctx, FileName(inv.InvoiceNumber), data, contentType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store invoice pdf")
	}
	if err := s.repo.SetPDF(ctx, inv.ID, objectPath, inv.PaymentStatus); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save invoice pdf path")
	}
	rendered := inv.PaymentStatus
	inv.PDFPath = &objectPath
	inv.PDFPaymentStatus = &rendered
	return data, nil
}

func toDTO(inv *models.Invoice) *InvoiceDTO {
	return &InvoiceDTO{
		ID:            inv.ID,
		OrderID:       inv.OrderID,
		InvoiceNumber: inv.InvoiceNumber,
		Subtotal:      inv.Subtotal,
		TaxRate:       inv.TaxRate,
		Tax:           inv.Tax,
		Total:         inv.Total,
		Currency:      inv.Currency,
		PaymentStatus: inv.PaymentStatus,
		HasPDF:        inv.PDFPath != nil,
		IssuedAt:      inv.IssuedAt,
	}
}
