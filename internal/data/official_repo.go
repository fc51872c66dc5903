package data

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
	apperrors "github.com/theervu-kaanal/grievance-api/internal/errors"
)

// OfficialRepo provides database operations for the official user store.
// Officials carry jurisdiction columns the other stores do not have.
type OfficialRepo struct {
	DB *sql.DB
}

// NewOfficialRepo creates a new OfficialRepo.
func NewOfficialRepo(db *sql.DB) *OfficialRepo {
	return &OfficialRepo{DB: db}
}

const officialColumns = `id, provider_id, email, first_name, last_name, phone, department, taluk, district, division`

func scanOfficial(row *sql.Row) (domainauth.Principal, bool, error) {
	var p domainauth.Principal
	err := row.Scan(&p.ID, &p.ProviderID, &p.Email, &p.FirstName, &p.LastName, &p.Phone,
		&p.Department, &p.Taluk, &p.District, &p.Division)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainauth.Principal{}, false, nil
		}
		return domainauth.Principal{}, false, apperrors.MapDBError(err)
	}
	p.Role = domainauth.RoleOfficial
	return p, true, nil
}

// FindByEmail looks up an official by email (case-insensitive).
func (r *OfficialRepo) FindByEmail(ctx context.Context, email string) (domainauth.Principal, bool, error) {
	query := `SELECT ` + officialColumns + ` FROM officials WHERE lower(email) = lower($1)`
	return scanOfficial(r.DB.QueryRowContext(ctx, query, strings.TrimSpace(email)))
}

// FindByID looks up an official by id.
func (r *OfficialRepo) FindByID(ctx context.Context, id string) (domainauth.Principal, bool, error) {
	query := `SELECT ` + officialColumns + ` FROM officials WHERE id = $1`
	return scanOfficial(r.DB.QueryRowContext(ctx, query, id))
}
