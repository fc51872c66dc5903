package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
	apperrors "github.com/theervu-kaanal/grievance-api/internal/errors"
	"github.com/theervu-kaanal/grievance-api/internal/ports"
)

// PetitionerRepo provides database operations for the petitioner user store.
type PetitionerRepo struct {
	DB *sql.DB
}

// NewPetitionerRepo creates a new PetitionerRepo.
func NewPetitionerRepo(db *sql.DB) *PetitionerRepo {
	return &PetitionerRepo{DB: db}
}

const petitionerColumns = `id, provider_id, email, first_name, last_name, phone`

func scanPetitioner(row *sql.Row) (domainauth.Principal, bool, error) {
	var p domainauth.Principal
	err := row.Scan(&p.ID, &p.ProviderID, &p.Email, &p.FirstName, &p.LastName, &p.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainauth.Principal{}, false, nil
		}
		return domainauth.Principal{}, false, apperrors.MapDBError(err)
	}
	p.Role = domainauth.RolePetitioner
	return p, true, nil
}

// FindByEmail looks up a petitioner by email (case-insensitive).
func (r *PetitionerRepo) FindByEmail(ctx context.Context, email string) (domainauth.Principal, bool, error) {
	query := `SELECT ` + petitionerColumns + ` FROM petitioners WHERE lower(email) = lower($1)`
	return scanPetitioner(r.DB.QueryRowContext(ctx, query, strings.TrimSpace(email)))
}

// FindByID looks up a petitioner by id.
func (r *PetitionerRepo) FindByID(ctx context.Context, id string) (domainauth.Principal, bool, error) {
	query := `SELECT ` + petitionerColumns + ` FROM petitioners WHERE id = $1`
	return scanPetitioner(r.DB.QueryRowContext(ctx, query, id))
}

// CreatePetitioner inserts a new petitioner and returns the stored principal.
func (r *PetitionerRepo) CreatePetitioner(ctx context.Context, in ports.PetitionerRecord) (domainauth.Principal, error) {
	id := uuid.New().String()
	query := `
		INSERT INTO petitioners (id, provider_id, email, first_name, last_name, phone, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		id, in.ProviderID, strings.TrimSpace(in.Email), in.FirstName, in.LastName, in.Phone, in.PasswordHash)
	if err != nil {
		return domainauth.Principal{}, fmt.Errorf("insert petitioner: %w", apperrors.MapDBError(err))
	}

	return domainauth.Principal{
		ID:         id,
		ProviderID: in.ProviderID,
		Role:       domainauth.RolePetitioner,
		Email:      strings.TrimSpace(in.Email),
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Phone:      in.Phone,
	}, nil
}
