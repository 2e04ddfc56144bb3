package vaccination

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/simedi/gateway/internal/platform/gateway"
	"github.com/simedi/gateway/internal/platform/ledger"
)

type Page = gateway.Page[Entry, *Entry]

type Service struct {
	core *gateway.Core[Entry, *Entry]
}

func NewService(l ledger.Ledger, logger zerolog.Logger) *Service {
	return &Service{
		core: gateway.NewCore[Entry, *Entry](l, Transactions,
			logger.With().Str("record_kind", "vaccination").Logger()),
	}
}

func (s *Service) Core() *gateway.Core[Entry, *Entry] {
	return s.core
}

func (s *Service) CreateVaccination(ctx context.Context, v *Entry) (*gateway.Receipt, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: vaccination is required", gateway.ErrInvalidInput)
	}
	if v.Status == "" {
		v.Status = StatusCompleted
	}
	if !validStatuses[v.Status] {
		return nil, fmt.Errorf("%w: invalid status: %s", gateway.ErrInvalidInput, v.Status)
	}
	if v.Status == StatusNotDone && v.StatusReason == "" {
		return nil, fmt.Errorf("%w: statusReason is required when status is %s", gateway.ErrInvalidInput, StatusNotDone)
	}
	now := s.core.Now().UTC()
	v.StatusChangedAt = &now
	// There is no sign transaction for vaccinations; a signature is never
	// accepted from the caller.
	v.Signature = nil
	return s.core.Create(ctx, v)
}

func (s *Service) GetVaccination(ctx context.Context, id string) (*Entry, error) {
	return s.core.Read(ctx, id)
}

func (s *Service) GetVaccinations(ctx context.Context, ids []string) ([]*Entry, error) {
	return s.core.ReadMany(ctx, ids)
}

func (s *Service) ListVaccinations(ctx context.Context) ([]*Entry, error) {
	return s.core.ReadAll(ctx)
}

func (s *Service) SearchVaccinations(ctx context.Context, subject, status string) ([]*Entry, error) {
	if status != "" && !validStatuses[status] {
		return nil, fmt.Errorf("%w: invalid status: %s", gateway.ErrInvalidQuery, status)
	}
	return s.core.ReadBySubjectAndStatus(ctx, subject, status)
}

// PageVaccinations returns one page of the subject's vaccination record.
func (s *Service) PageVaccinations(ctx context.Context, subject string, pageSize int, bookmark string) (*Page, error) {
	return s.core.QueryPage(ctx, gateway.PageRequest{
		Subject:  subject,
		PageSize: pageSize,
		Bookmark: bookmark,
	})
}

func (s *Service) DeleteVaccination(ctx context.Context, id string) error {
	return s.core.Delete(ctx, id)
}
