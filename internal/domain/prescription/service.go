package prescription

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/simedi/gateway/internal/platform/gateway"
	"github.com/simedi/gateway/internal/platform/ledger"
)

// Page is one page of a subject's prescriptions.
type Page = gateway.Page[Prescription, *Prescription]

type Service struct {
	core *gateway.Core[Prescription, *Prescription]
}

func NewService(l ledger.Ledger, logger zerolog.Logger) *Service {
	return &Service{
		core: gateway.NewCore[Prescription, *Prescription](l, Transactions,
			logger.With().Str("record_kind", "prescription").Logger()),
	}
}

// Core exposes the underlying gateway core for timeout and clock setup.
func (s *Service) Core() *gateway.Core[Prescription, *Prescription] {
	return s.core
}

// CreatePrescription stores a new prescription in draft state. Any id,
// status or signature sent by the caller is replaced.
func (s *Service) CreatePrescription(ctx context.Context, p *Prescription) (*gateway.Receipt, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: prescription is required", gateway.ErrInvalidInput)
	}
	now := s.core.Now().UTC()
	p.Status = StatusDraft
	p.StatusChangedAt = &now
	p.Signature = nil
	return s.core.Create(ctx, p)
}

func (s *Service) GetPrescription(ctx context.Context, id string) (*Prescription, error) {
	return s.core.Read(ctx, id)
}

func (s *Service) GetPrescriptions(ctx context.Context, ids []string) ([]*Prescription, error) {
	return s.core.ReadMany(ctx, ids)
}

func (s *Service) ListPrescriptions(ctx context.Context) ([]*Prescription, error) {
	return s.core.ReadAll(ctx)
}

func (s *Service) SearchPrescriptions(ctx context.Context, subject, status string) ([]*Prescription, error) {
	if err := checkStatus(status); err != nil {
		return nil, err
	}
	return s.core.ReadBySubjectAndStatus(ctx, subject, status)
}

// PagePrescriptions returns one page of the subject's prescriptions,
// optionally restricted to one status.
func (s *Service) PagePrescriptions(ctx context.Context, subject, status string, pageSize int, bookmark string) (*Page, error) {
	if err := checkStatus(status); err != nil {
		return nil, err
	}
	return s.core.QueryPage(ctx, gateway.PageRequest{
		Subject:  subject,
		Filters:  []string{status},
		PageSize: pageSize,
		Bookmark: bookmark,
	})
}

// DeliverPrescription marks an active prescription as completed.
func (s *Service) DeliverPrescription(ctx context.Context, id string) error {
	return s.core.AdvanceStatus(ctx, id)
}

// SignPrescription signs a draft prescription, making it active.
func (s *Service) SignPrescription(ctx context.Context, id, signature string) error {
	return s.core.Sign(ctx, id, signature)
}

// TransferPrescription reassigns the owner and returns the previous one.
func (s *Service) TransferPrescription(ctx context.Context, id, owner string) (string, error) {
	return s.core.Transfer(ctx, id, owner)
}

func (s *Service) DeletePrescription(ctx context.Context, id string) error {
	return s.core.Delete(ctx, id)
}

func checkStatus(status string) error {
	if status != "" && !validStatuses[status] {
		return fmt.Errorf("%w: invalid status: %s", gateway.ErrInvalidQuery, status)
	}
	return nil
}
