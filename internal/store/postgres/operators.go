package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"Ziyarawebserver/internal/domain"
)

type OperatorsStore struct {
	q Querier
}

const operatorColumns = `
	id, name, description, logo, foundation_year, rating, reviews_count,
	specialisations, features, certificates, verified
`

func scanOperator(row pgx.Row) (domain.Operator, error) {
	var (
		op              domain.Operator
		rating          pgtype.Float8
		reviews         pgtype.Int4
		specialisations pgtype.FlatArray[string]
		features        pgtype.FlatArray[string]
		certificates    pgtype.FlatArray[string]
	)
	err := row.Scan(
		&op.ID,
		&op.Name,
		&op.Description,
		&op.Logo,
		&op.FoundationYear,
		&rating,
		&reviews,
		&specialisations,
		&features,
		&certificates,
		&op.Verified,
	)
	if err != nil {
		return domain.Operator{}, err
	}
	op.Rating = float8Ptr(rating)
	op.ReviewsCount = int4Ptr(reviews)
	op.Specialisations = textArrayOrEmpty(specialisations)
	op.Features = textArrayOrEmpty(features)
	op.Certificates = textArrayOrEmpty(certificates)
	return op, nil
}

func (s *OperatorsStore) ListOperators(ctx context.Context) ([]domain.Operator, error) {
	const q = `SELECT ` + operatorColumns + ` FROM operators ORDER BY name, id`

	rows, err := s.q.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	defer rows.Close()

	out := []domain.Operator{}
	for rows.Next() {
		op, err := scanOperator(rows)
		if err != nil {
			return nil, fmt.Errorf("scan operator: %w", err)
		}
		out = append(out, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	return out, nil
}

func (s *OperatorsStore) GetOperatorByID(ctx context.Context, id int) (domain.Operator, error) {
	const q = `SELECT ` + operatorColumns + ` FROM operators WHERE id = $1`

	op, err := scanOperator(s.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Operator{}, domain.ErrNotFound
		}
		return domain.Operator{}, fmt.Errorf("get operator: %w", err)
	}
	return op, nil
}
