// Package devseed populates the user stores with development accounts.
// The seeded emails match the mock identity provider's default account
// list, so a freshly seeded database is immediately loginable with
// IDP_MODE=mock.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the password every seeded account accepts in mock
// mode. Never seed a production database.
const DefaultPassword = "devpass"

// Account describes one seeded user.
type Account struct {
	Role       string // petitioner, official, or admin
	Email      string
	FirstName  string
	LastName   string
	Phone      string
	Department string // officials only
	Taluk      string
	District   string
	Division   string
	AdminID    string // admins only
}

// DefaultAccounts returns one account per role.
func DefaultAccounts() []Account {
	return []Account{
		{
			Role:      "petitioner",
			Email:     "dev@example.com",
			FirstName: "Dev",
			LastName:  "Petitioner",
			Phone:     "+91-9000000001",
		},
		{
			Role:       "official",
			Email:      "official@example.com",
			FirstName:  "Dev",
			LastName:   "Official",
			Phone:      "+91-9000000002",
			Department: "Health",
			Taluk:      "Mylapore",
			District:   "Chennai",
			Division:   "South",
		},
		{
			Role:      "admin",
			Email:     "admin@example.com",
			FirstName: "Dev",
			LastName:  "Admin",
			Phone:     "+91-9000000003",
			AdminID:   "ADM-001",
		},
	}
}

// Run inserts the given accounts, skipping any whose email already
// exists. It returns the number of accounts inserted.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger, accounts []Account) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash seed password: %w", err)
	}

	inserted := 0
	for _, acct := range accounts {
		ok, insertErr := insertAccount(ctx, db, acct, string(hash))
		if insertErr != nil {
			return inserted, fmt.Errorf("seed %s %s: %w", acct.Role, acct.Email, insertErr)
		}
		if ok {
			inserted++
			logger.InfoContext(ctx, "seeded account", "role", acct.Role, "email", acct.Email)
		} else {
			logger.InfoContext(ctx, "account already present", "role", acct.Role, "email", acct.Email)
		}
	}
	return inserted, nil
}

func insertAccount(ctx context.Context, db *sql.DB, acct Account, passwordHash string) (bool, error) {
	id := uuid.New().String()

	var (
		query string
		args  []any
	)
	switch acct.Role {
	case "petitioner":
		query = `
			INSERT INTO petitioners (id, email, first_name, last_name, phone, password_hash)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (email) DO NOTHING`
		args = []any{id, acct.Email, acct.FirstName, acct.LastName, acct.Phone, passwordHash}
	case "official":
		query = `
			INSERT INTO officials (id, email, first_name, last_name, phone, department, taluk, district, division)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (email) DO NOTHING`
		args = []any{id, acct.Email, acct.FirstName, acct.LastName, acct.Phone,
			acct.Department, acct.Taluk, acct.District, acct.Division}
	case "admin":
		query = `
			INSERT INTO admins (id, email, first_name, last_name, phone, admin_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (email) DO NOTHING`
		args = []any{id, acct.Email, acct.FirstName, acct.LastName, acct.Phone, acct.AdminID}
	default:
		return false, fmt.Errorf("unknown role %q", acct.Role)
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
