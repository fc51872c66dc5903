package service

import (
	"context"

	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
	"github.com/theervu-kaanal/grievance-api/internal/ports"
)

// CompositeDirectory resolves principals across the per-role user stores.
// Lookups probe constituents in a declared priority order (petitioner,
// official, admin); the first match fixes the principal's role.
type CompositeDirectory struct {
	order  []domainauth.Role
	stores map[domainauth.Role]ports.UserDirectory
}

var _ ports.UserDirectory = (*CompositeDirectory)(nil)

// NewCompositeDirectory constructs the directory over the three role stores.
func NewCompositeDirectory(petitioners, officials, admins ports.UserDirectory) *CompositeDirectory {
	return &CompositeDirectory{
		order: []domainauth.Role{domainauth.RolePetitioner, domainauth.RoleOfficial, domainauth.RoleAdmin},
		stores: map[domainauth.Role]ports.UserDirectory{
			domainauth.RolePetitioner: petitioners,
			domainauth.RoleOfficial:   officials,
			domainauth.RoleAdmin:      admins,
		},
	}
}

// ByRole returns the constituent store for a single role.
func (d *CompositeDirectory) ByRole(role domainauth.Role) (ports.UserDirectory, bool) {
	store, ok := d.stores[role]
	return store, ok
}

// FindByEmail probes the stores in priority order for a matching email.
func (d *CompositeDirectory) FindByEmail(ctx context.Context, email string) (domainauth.Principal, bool, error) {
	for _, role := range d.order {
		p, ok, err := d.stores[role].FindByEmail(ctx, email)
		if err != nil {
			return domainauth.Principal{}, false, err
		}
		if ok {
			return p, true, nil
		}
	}
	return domainauth.Principal{}, false, nil
}

// FindByID probes the stores in priority order for a matching id.
func (d *CompositeDirectory) FindByID(ctx context.Context, id string) (domainauth.Principal, bool, error) {
	for _, role := range d.order {
		p, ok, err := d.stores[role].FindByID(ctx, id)
		if err != nil {
			return domainauth.Principal{}, false, err
		}
		if ok {
			return p, true, nil
		}
	}
	return domainauth.Principal{}, false, nil
}
