package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"membership/internal/student"
)

// StudentLookup resolves the payer.
type StudentLookup interface {
	Get(ctx context.Context, idNumber string) (student.Student, error)
}

// LinkRequest describes an online checkout.
type LinkRequest struct {
	Amount      int
	Description string
	Remarks     string
}

// Gateway creates online checkout links.
type Gateway interface {
	CreateLink(ctx context.Context, req LinkRequest) (checkoutURL string, reference string, err error)
}

// Uploader stores receipt images and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename string) (string, error)
}

// OnsiteInput records a fee paid at the office.
type OnsiteInput struct {
	IDNumber      string
	Status        Status
	ReceiptNumber string
	ReceiptDate   *time.Time
}

// Service tracks membership fee payments.
type Service struct {
	repo     Repository
	students StudentLookup
	gateway  Gateway
	uploader Uploader
	fee      int
	log      zerolog.Logger
}

// NewService creates a service. gateway and uploader may be nil.
func NewService(repo Repository, students StudentLookup, gateway Gateway, uploader Uploader, fee int, log zerolog.Logger) *Service {
	return &Service{repo: repo, students: students, gateway: gateway, uploader: uploader, fee: fee, log: log}
}

// RecordOnsite stores an onsite payment. A receipt number is generated for
// paid records that come without one.
func (s *Service) RecordOnsite(ctx context.Context, in OnsiteInput) (Payment, error) {
	if !in.Status.Valid() {
		return Payment{}, ErrInvalidStatus
	}
	if _, err := s.students.Get(ctx, in.IDNumber); err != nil {
		return Payment{}, err
	}
	if err := s.ensureUnpaid(ctx, in.IDNumber); err != nil {
		return Payment{}, err
	}

	p := Payment{
		IDNumber:      in.IDNumber,
		Status:        in.Status,
		Method:        MethodOnsite,
		ReceiptNumber: strings.TrimSpace(in.ReceiptNumber),
		ReceiptDate:   in.ReceiptDate,
	}
	if p.Status == StatusPaid {
		if p.ReceiptNumber == "" {
			p.ReceiptNumber = newReceiptNumber()
		}
		if p.ReceiptDate == nil {
			today := time.Now().UTC().Truncate(24 * time.Hour)
			p.ReceiptDate = &today
		}
	}
	saved, err := s.repo.Save(ctx, p)
	if err != nil {
		return Payment{}, err
	}
	s.log.Info().Str("id_number", saved.IDNumber).Str("status", string(saved.Status)).Msg("onsite payment recorded")
	return saved, nil
}

// StartCheckout creates an online payment link for the membership fee.
func (s *Service) StartCheckout(ctx context.Context, idNumber string) (Payment, error) {
	if s.gateway == nil {
		return Payment{}, ErrNoGateway
	}
	st, err := s.students.Get(ctx, idNumber)
	if err != nil {
		return Payment{}, err
	}
	if err := s.ensureUnpaid(ctx, idNumber); err != nil {
		return Payment{}, err
	}

	url, ref, err := s.gateway.CreateLink(ctx, LinkRequest{
		Amount:      s.fee,
		Description: "Membership Payment",
		Remarks:     st.IDNumber + " " + st.FullName(),
	})
	if err != nil {
		return Payment{}, &UpstreamError{Service: "checkout gateway", Err: err}
	}
	saved, err := s.repo.Save(ctx, Payment{
		IDNumber:      idNumber,
		Status:        StatusNotPaid,
		Method:        MethodOnline,
		ReceiptNumber: ref,
		CheckoutURL:   url,
	})
	if err != nil {
		return Payment{}, err
	}
	s.log.Info().Str("id_number", idNumber).Str("reference", ref).Msg("online checkout started")
	return saved, nil
}

// AttachReceipt uploads a receipt image and links it to the record.
func (s *Service) AttachReceipt(ctx context.Context, idNumber string, data []byte, filename string) (Payment, error) {
	if s.uploader == nil {
		return Payment{}, ErrNoUploader
	}
	if _, err := s.repo.Get(ctx, idNumber); err != nil {
		return Payment{}, err
	}
	url, err := s.uploader.Upload(ctx, data, filename)
	if err != nil {
		return Payment{}, &UpstreamError{Service: "receipt storage", Err: err}
	}
	if err := s.repo.SetReceiptURL(ctx, idNumber, url); err != nil {
		return Payment{}, err
	}
	return s.repo.Get(ctx, idNumber)
}

// Get returns a student's payment record.
func (s *Service) Get(ctx context.Context, idNumber string) (Payment, error) {
	return s.repo.Get(ctx, idNumber)
}

// Delete removes a student's payment record and returns it.
func (s *Service) Delete(ctx context.Context, idNumber string) (Payment, error) {
	p, err := s.repo.Delete(ctx, idNumber)
	if err != nil {
		return Payment{}, err
	}
	s.log.Info().Str("id_number", idNumber).Msg("payment deleted")
	return p, nil
}

// List returns every student with their payment, if any.
func (s *Service) List(ctx context.Context) ([]Row, error) {
	return s.repo.List(ctx)
}

func (s *Service) ensureUnpaid(ctx context.Context, idNumber string) error {
	existing, err := s.repo.Get(ctx, idNumber)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.Status == StatusPaid:
		return ErrAlreadyPaid
	}
	return nil
}

func newReceiptNumber() string {
	return "OR-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
