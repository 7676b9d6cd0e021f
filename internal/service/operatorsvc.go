package service

import (
	"context"

	"Ziyarawebserver/internal/domain"
)

type OperatorService struct {
	Operators OperatorsStore
}

func (s *OperatorService) List(ctx context.Context) ([]domain.Operator, error) {
	return s.Operators.ListOperators(ctx)
}

func (s *OperatorService) GetByID(ctx context.Context, id int) (domain.Operator, error) {
	if id <= 0 {
		return domain.Operator{}, domain.ErrNotFound
	}
	return s.Operators.GetOperatorByID(ctx, id)
}
