package data

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
	apperrors "github.com/theervu-kaanal/grievance-api/internal/errors"
)

// AdminRepo provides database operations for the admin user store.
type AdminRepo struct {
	DB *sql.DB
}

// NewAdminRepo creates a new AdminRepo.
func NewAdminRepo(db *sql.DB) *AdminRepo {
	return &AdminRepo{DB: db}
}

const adminColumns = `id, provider_id, email, first_name, last_name, phone`

func scanAdmin(row *sql.Row) (domainauth.Principal, bool, error) {
	var p domainauth.Principal
	err := row.Scan(&p.ID, &p.ProviderID, &p.Email, &p.FirstName, &p.LastName, &p.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainauth.Principal{}, false, nil
		}
		return domainauth.Principal{}, false, apperrors.MapDBError(err)
	}
	p.Role = domainauth.RoleAdmin
	return p, true, nil
}

// FindByEmail looks up an admin by email (case-insensitive).
func (r *AdminRepo) FindByEmail(ctx context.Context, email string) (domainauth.Principal, bool, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE lower(email) = lower($1)`
	return scanAdmin(r.DB.QueryRowContext(ctx, query, strings.TrimSpace(email)))
}

// FindByID looks up an admin by id.
func (r *AdminRepo) FindByID(ctx context.Context, id string) (domainauth.Principal, bool, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id = $1`
	return scanAdmin(r.DB.QueryRowContext(ctx, query, id))
}
