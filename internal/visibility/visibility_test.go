package visibility_test

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/hierarchy"
	"github.com/hugh/leadboard/internal/testutil"
	"github.com/hugh/leadboard/internal/visibility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func visibleIDs(t *testing.T, db *gorm.DB, scope visibility.Scope) []uuid.UUID {
	t.Helper()
	var ids []uuid.UUID
	require.NoError(t, scope.Apply(db.Model(&models.Lead{})).Pluck("leads.id", &ids).Error)
	return ids
}

func TestLeadScope_ExampleScenario(t *testing.T) {
	s := testutil.NewTestContext(t)
	db := s.DB
	ctx := testutil.TestContext(t)
	r := visibility.NewResolver(hierarchy.NewGraph(db))

	admin := s.Admin
	manager := testutil.CreateTestUser(t, db, s.Tenant, models.RoleManager, &admin.ID)
	x := testutil.CreateTestAttendant(t, db, s.Tenant.ID, &manager.ID, nil)
	y := testutil.CreateTestAttendant(t, db, s.Tenant.ID, nil, &admin.ID)

	l1 := testutil.CreateTestLead(t, db, s.Tenant.ID, testutil.LeadOpts{AttendantID: &x.ID})
	l2 := testutil.CreateTestLead(t, db, s.Tenant.ID, testutil.LeadOpts{CreatedByID: &admin.ID})
	l3 := testutil.CreateTestLead(t, db, s.Tenant.ID, testutil.LeadOpts{AttendantID: &y.ID})

	scope := func(p auth.Principal) visibility.Scope {
		sc, err := r.LeadScope(ctx, p, visibility.ModeList)
		require.NoError(t, err)
		return sc
	}

	assert.ElementsMatch(t, []uuid.UUID{l1.ID}, visibleIDs(t, db, scope(auth.NewSystemPrincipal(manager))))
	assert.ElementsMatch(t, []uuid.UUID{l1.ID, l2.ID, l3.ID}, visibleIDs(t, db, scope(auth.NewSystemPrincipal(admin))))
	assert.ElementsMatch(t, []uuid.UUID{l1.ID}, visibleIDs(t, db, scope(auth.NewAttendantPrincipal(x))))

	super := &auth.SystemPrincipal{UserID: uuid.New(), Role: models.RoleSuperAdmin, IsSuperAdmin: true}
	assert.Subset(t, visibleIDs(t, db, scope(super)), []uuid.UUID{l1.ID, l2.ID, l3.ID})
}

func TestLeadScope_AttendantSingleAdmitsUnassigned(t *testing.T) {
	s := testutil.NewTestContext(t)
	ctx := testutil.TestContext(t)
	r := visibility.NewResolver(hierarchy.NewGraph(s.DB))
	x := testutil.CreateTestAttendant(t, s.DB, s.Tenant.ID, nil, &s.Admin.ID)
	orphan := testutil.CreateTestLead(t, s.DB, s.Tenant.ID, testutil.LeadOpts{})

	list, err := r.LeadScope(ctx, auth.NewAttendantPrincipal(x), visibility.ModeList)
	require.NoError(t, err)
	single, err := r.LeadScope(ctx, auth.NewAttendantPrincipal(x), visibility.ModeSingle)
	require.NoError(t, err)

	assert.Equal(t, visibility.KindSelf, list.Kind)
	assert.Equal(t, visibility.KindSelfOrUnassigned, single.Kind)
	assert.False(t, list.Allows(orphan))
	assert.True(t, single.Allows(orphan))
	assert.Empty(t, visibleIDs(t, s.DB, list))
	assert.Equal(t, []uuid.UUID{orphan.ID}, visibleIDs(t, s.DB, single))
}

func TestLeadScope_DenyCases(t *testing.T) {
	s := testutil.NewTestContext(t)
	ctx := testutil.TestContext(t)
	r := visibility.NewResolver(hierarchy.NewGraph(s.DB))
	testutil.CreateTestLead(t, s.DB, s.Tenant.ID, testutil.LeadOpts{})

	cases := map[string]auth.Principal{
		"unknown role":         &auth.SystemPrincipal{UserID: uuid.New(), TenantID: s.Tenant.ID, Role: "GUEST"},
		"admin without tenant": &auth.SystemPrincipal{UserID: uuid.New(), Role: models.RoleAdmin},
		"attendant no tenant":  &auth.AttendantPrincipal{AttendantID: uuid.New()},
		"nil principal":        nil,
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			sc, err := r.LeadScope(ctx, p, visibility.ModeSingle)
			require.NoError(t, err)
			assert.Equal(t, visibility.KindDeny, sc.Kind)
			assert.Empty(t, visibleIDs(t, s.DB, sc))
		})
	}
}

// expected restates the role table independently of Scope.
func expected(p auth.Principal, mode visibility.Mode, l *models.Lead, attendantsOfAdmin, managersOfAdmin, attendantsOfManager []uuid.UUID) bool {
	in := func(ids []uuid.UUID, id *uuid.UUID) bool {
		return id != nil && hierarchy.Contains(ids, *id)
	}
	switch p := p.(type) {
	case *auth.SystemPrincipal:
		switch p.Role {
		case models.RoleSuperAdmin:
			return true
		case models.RoleAdmin:
			creators := append([]uuid.UUID{p.UserID}, managersOfAdmin...)
			return l.TenantID == p.TenantID &&
				(in(attendantsOfAdmin, l.AttendantID) || l.AttendantID == nil || in(creators, l.CreatedByID))
		case models.RoleManager:
			return l.TenantID == p.TenantID && in(attendantsOfManager, l.AttendantID)
		}
	case *auth.AttendantPrincipal:
		if l.TenantID != p.TenantID {
			return false
		}
		if mode == visibility.ModeSingle && l.AttendantID == nil {
			return true
		}
		return l.AttendantID != nil && *l.AttendantID == p.AttendantID
	}
	return false
}

func TestLeadScope_CombinatorialOwnership(t *testing.T) {
	s := testutil.NewTestContext(t)
	db := s.DB
	ctx := testutil.TestContext(t)
	r := visibility.NewResolver(hierarchy.NewGraph(db))

	admin := s.Admin
	otherAdmin := testutil.CreateTestUser(t, db, s.Tenant, models.RoleAdmin, nil)
	manager := testutil.CreateTestUser(t, db, s.Tenant, models.RoleManager, &admin.ID)
	otherManager := testutil.CreateTestUser(t, db, s.Tenant, models.RoleManager, &otherAdmin.ID)
	otherTenant := testutil.CreateTestTenant(t, db)
	foreignAdmin := testutil.CreateTestUser(t, db, otherTenant, models.RoleAdmin, nil)

	direct := testutil.CreateTestAttendant(t, db, s.Tenant.ID, nil, &admin.ID)
	viaManager := testutil.CreateTestAttendant(t, db, s.Tenant.ID, &manager.ID, nil)
	otherTeam := testutil.CreateTestAttendant(t, db, s.Tenant.ID, &otherManager.ID, nil)
	loose := testutil.CreateTestAttendant(t, db, s.Tenant.ID, nil, nil)
	foreign := testutil.CreateTestAttendant(t, db, otherTenant.ID, nil, &foreignAdmin.ID)

	owners := []*uuid.UUID{nil, &direct.ID, &viaManager.ID, &otherTeam.ID, &loose.ID, &foreign.ID}
	creators := []*uuid.UUID{nil, &admin.ID, &manager.ID, &otherAdmin.ID, &otherManager.ID, &direct.ID, &foreignAdmin.ID}
	tenants := []uuid.UUID{s.Tenant.ID, otherTenant.ID}

	var leads []*models.Lead
	for _, tenantID := range tenants {
		for _, owner := range owners {
			for _, creator := range creators {
				leads = append(leads, testutil.CreateTestLead(t, db, tenantID, testutil.LeadOpts{
					AttendantID: owner,
					CreatedByID: creator,
				}))
			}
		}
	}

	graph := hierarchy.NewGraph(db)
	attendantsOfAdmin, err := graph.AttendantsOfAdmin(ctx, admin.ID, s.Tenant.ID)
	require.NoError(t, err)
	managersOfAdmin, err := graph.ManagersOf(ctx, admin.ID)
	require.NoError(t, err)
	attendantsOfManager, err := graph.AttendantsOfManager(ctx, manager.ID, s.Tenant.ID)
	require.NoError(t, err)

	principals := []auth.Principal{
		&auth.SystemPrincipal{UserID: uuid.New(), Role: models.RoleSuperAdmin, IsSuperAdmin: true},
		auth.NewSystemPrincipal(admin),
		auth.NewSystemPrincipal(manager),
		auth.NewAttendantPrincipal(direct),
		auth.NewAttendantPrincipal(viaManager),
		auth.NewAttendantPrincipal(loose),
	}

	for _, p := range principals {
		for _, mode := range []visibility.Mode{visibility.ModeList, visibility.ModeSingle} {
			t.Run(fmt.Sprintf("%T/%s/mode=%d", p, p.ID().String()[:8], mode), func(t *testing.T) {
				sc, err := r.LeadScope(ctx, p, mode)
				require.NoError(t, err)

				var want, allowed []uuid.UUID
				for _, l := range leads {
					if expected(p, mode, l, attendantsOfAdmin, managersOfAdmin, attendantsOfManager) {
						want = append(want, l.ID)
					}
					if sc.Allows(l) {
						allowed = append(allowed, l.ID)
					}
				}

				assert.ElementsMatch(t, want, visibleIDs(t, db, sc), "SQL predicate")
				assert.ElementsMatch(t, want, allowed, "in-memory predicate")
			})
		}
	}
}

func TestAttendantScope(t *testing.T) {
	s := testutil.NewTestContext(t)
	db := s.DB
	ctx := testutil.TestContext(t)
	r := visibility.NewResolver(hierarchy.NewGraph(db))

	manager := testutil.CreateTestUser(t, db, s.Tenant, models.RoleManager, &s.Admin.ID)
	otherAdmin := testutil.CreateTestUser(t, db, s.Tenant, models.RoleAdmin, nil)
	direct := testutil.CreateTestAttendant(t, db, s.Tenant.ID, nil, &s.Admin.ID)
	viaManager := testutil.CreateTestAttendant(t, db, s.Tenant.ID, &manager.ID, nil)
	loose := testutil.CreateTestAttendant(t, db, s.Tenant.ID, nil, nil)
	stranger := testutil.CreateTestAttendant(t, db, s.Tenant.ID, nil, &otherAdmin.ID)

	all := []*models.Attendant{direct, viaManager, loose, stranger}

	tests := []struct {
		name string
		p    auth.Principal
		want []uuid.UUID
	}{
		{"admin", auth.NewSystemPrincipal(s.Admin), []uuid.UUID{direct.ID, viaManager.ID, loose.ID}},
		{"manager", auth.NewSystemPrincipal(manager), []uuid.UUID{viaManager.ID}},
		{"attendant", auth.NewAttendantPrincipal(loose), []uuid.UUID{loose.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := r.AttendantScope(ctx, tt.p)
			require.NoError(t, err)

			var ids []uuid.UUID
			require.NoError(t, sc.Apply(db.Model(&models.Attendant{})).Pluck("attendants.id", &ids).Error)
			assert.ElementsMatch(t, tt.want, ids)

			var allowed []uuid.UUID
			for _, a := range all {
				if sc.Allows(a) {
					allowed = append(allowed, a.ID)
				}
			}
			assert.ElementsMatch(t, tt.want, allowed)
		})
	}
}
