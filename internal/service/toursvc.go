package service

import (
	"context"

	"Ziyarawebserver/internal/domain"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	maxIDsPerLookup    = 100
)

// TourService validates search input and delegates to the tours store.
type TourService struct {
	Tours ToursStore
}

func (s *TourService) Search(ctx context.Context, p domain.TourSearchParams) ([]domain.TourView, error) {
	p, err := normalizeSearchParams(p, true)
	if err != nil {
		return nil, err
	}
	return s.Tours.SearchTours(ctx, p)
}

// GetByIDs resolves explicit tour ids, preserving order and skipping unknown
// ids. Used for anonymous favorites kept client side.
func (s *TourService) GetByIDs(ctx context.Context, ids []string) ([]domain.TourView, error) {
	if len(ids) > maxIDsPerLookup {
		return nil, domain.NewValidationError(map[string]string{
			"ids": "too many ids requested",
		})
	}
	ids, err := validTourIDs(ids)
	if err != nil {
		return nil, err
	}
	return s.Tours.GetToursByIDs(ctx, ids)
}

// Aggregates summarizes prices over a date window. The window is mandatory:
// without one the query would sweep the whole table.
func (s *TourService) Aggregates(ctx context.Context, p domain.TourSearchParams) ([]domain.TourAggregate, error) {
	if p.DateMode == "" {
		return nil, domain.NewValidationError(map[string]string{
			"date_mode": "required",
		})
	}
	p, err := normalizeSearchParams(p, false)
	if err != nil {
		return nil, err
	}
	return s.Tours.Aggregates(ctx, p)
}

func (s *TourService) TourTypes(ctx context.Context) ([]domain.LookupValue, error) {
	return s.Tours.TourTypes(ctx)
}

func (s *TourService) Tariffs(ctx context.Context) ([]domain.LookupValue, error) {
	return s.Tours.Tariffs(ctx)
}

func (s *TourService) DepartureCities(ctx context.Context) ([]string, error) {
	return s.Tours.DepartureCities(ctx)
}

func normalizeSearchParams(p domain.TourSearchParams, paged bool) (domain.TourSearchParams, error) {
	fields := map[string]string{}

	switch p.DateMode {
	case "":
		if p.DepartureDate != nil || p.DateStart != nil || p.DateEnd != nil {
			fields["date_mode"] = "required when date filters are set"
		}
	case domain.DateModeSingle:
		if p.DepartureDate == nil {
			fields["departure_date"] = "required in single mode"
		}
	case domain.DateModeRange:
		if p.DateStart == nil {
			fields["date_start"] = "required in range mode"
		}
		if p.DateEnd == nil {
			fields["date_end"] = "required in range mode"
		}
		if p.DateStart != nil && p.DateEnd != nil && p.DateEnd.Before(*p.DateStart) {
			fields["date_end"] = "must not precede date_start"
		}
	default:
		fields["date_mode"] = "must be single or range"
	}

	if p.Pilgrims < 0 {
		fields["pilgrims"] = "must be positive"
	}
	if p.Pilgrims == 0 {
		p.Pilgrims = 1
	}
	if p.OperatorID < 0 {
		fields["operator_id"] = "must be positive"
	}

	if paged {
		if p.Limit == 0 {
			p.Limit = defaultSearchLimit
		}
		if p.Limit < 0 || p.Limit > maxSearchLimit {
			fields["limit"] = "must be between 1 and 100"
		}
		if p.Offset < 0 {
			fields["offset"] = "must not be negative"
		}
	}

	if len(fields) > 0 {
		return domain.TourSearchParams{}, domain.NewValidationError(fields)
	}
	return p, nil
}
