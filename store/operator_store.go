package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"

	"portfolio/analytics/models"
)

var (
	ErrOperatorExists   = errors.New("operator already exists")
	ErrOperatorNotFound = errors.New("operator not found")
)

// OperatorStore keeps dashboard accounts in Postgres.
type OperatorStore struct {
	db *sql.DB
}

func NewOperatorStore(db *sql.DB) *OperatorStore {
	return &OperatorStore{db: db}
}

func (s *OperatorStore) CreateOperator(ctx context.Context, email string, hashedPassword []byte) (*models.Operator, error) {
	op := &models.Operator{}
	query := `
		INSERT INTO operators (email, hashed_password)
		VALUES ($1, $2)
		RETURNING id, email, created_at, updated_at;
	`
	err := s.db.QueryRowContext(ctx, query, email, hashedPassword).Scan(
		&op.ID,
		&op.Email,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return nil, fmt.Errorf("%w: %s", ErrOperatorExists, email)
		}
		return nil, fmt.Errorf("failed to create operator: %w", err)
	}

	log.Printf("Operator created in DB: ID=%d, Email=%s", op.ID, op.Email)
	return op, nil
}

func (s *OperatorStore) GetOperatorByEmail(ctx context.Context, email string) (*models.Operator, error) {
	op := &models.Operator{}
	query := `
		SELECT id, email, hashed_password, created_at, updated_at
		FROM operators
		WHERE email = $1;
	`
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&op.ID,
		&op.Email,
		&op.HashedPassword,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, email)
		}
		return nil, fmt.Errorf("failed to get operator by email: %w", err)
	}

	return op, nil
}
