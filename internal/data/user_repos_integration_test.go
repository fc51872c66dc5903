package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
	"github.com/theervu-kaanal/grievance-api/internal/errors"
	"github.com/theervu-kaanal/grievance-api/internal/ports"
	"github.com/theervu-kaanal/grievance-api/internal/testutil"
)

func TestPetitionerRepo_CreateAndFind(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewPetitionerRepo(db)
	ctx := context.Background()

	created, err := repo.CreatePetitioner(ctx, ports.PetitionerRecord{
		ProviderID: "prov-abc",
		Email:      "Asha@Example.com",
		FirstName:  "Asha",
		LastName:   "Raman",
		Phone:      "9876543210",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, domainauth.RolePetitioner, created.Role)

	// Email lookup is case-insensitive.
	found, ok, err := repo.FindByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "prov-abc", found.ProviderID)

	byID, ok, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, found, byID)
}

func TestPetitionerRepo_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewPetitionerRepo(db)
	ctx := context.Background()

	_, err := repo.CreatePetitioner(ctx, ports.PetitionerRecord{Email: "dup@example.com"})
	require.NoError(t, err)

	_, err = repo.CreatePetitioner(ctx, ports.PetitionerRecord{Email: "dup@example.com"})
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestPetitionerRepo_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewPetitionerRepo(db)

	_, ok, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOfficialRepo_JurisdictionFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `
		INSERT INTO officials (id, email, first_name, last_name, department, taluk)
		VALUES ('11111111-1111-1111-1111-111111111111', 'off@example.com', 'Kumar', 'S', 'Health', 'Omalur')`)
	require.NoError(t, err)

	repo := NewOfficialRepo(db)
	found, ok, err := repo.FindByEmail(ctx, "off@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domainauth.RoleOfficial, found.Role)
	assert.Equal(t, "Health", found.Department)
	assert.Equal(t, "Omalur", found.Taluk)
	assert.Empty(t, found.District)
}

func TestAdminRepo_Find(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `
		INSERT INTO admins (id, email, first_name)
		VALUES ('22222222-2222-2222-2222-222222222222', 'root@example.com', 'Admin')`)
	require.NoError(t, err)

	repo := NewAdminRepo(db)
	found, ok, err := repo.FindByID(ctx, "22222222-2222-2222-2222-222222222222")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domainauth.RoleAdmin, found.Role)

	_, ok, err = repo.FindByID(ctx, "33333333-3333-3333-3333-333333333333")
	require.NoError(t, err)
	assert.False(t, ok)
}
