package kanban_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/events"
	"github.com/hugh/leadboard/internal/hierarchy"
	"github.com/hugh/leadboard/internal/kanban"
	"github.com/hugh/leadboard/internal/testutil"
	"github.com/hugh/leadboard/internal/visibility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	*testutil.TestSetup
	svc      *kanban.Service
	recorder *events.Recorder
	admin    auth.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := testutil.NewTestContext(t)
	graph := hierarchy.NewGraph(s.DB)
	rec := &events.Recorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		TestSetup: s,
		svc:       kanban.NewService(s.DB, graph, visibility.NewResolver(graph), rec, logger),
		recorder:  rec,
		admin:     auth.NewSystemPrincipal(s.Admin),
	}
}

func (f *fixture) lead(t *testing.T, id uuid.UUID) models.Lead {
	t.Helper()
	var lead models.Lead
	require.NoError(t, f.DB.Unscoped().First(&lead, "id = ?", id).Error)
	return lead
}

func TestClaimLead_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	col := testutil.CreateTestColumn(t, f.DB, f.Tenant.ID, "Inbox", 0)
	lead := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{ColumnID: &col.ID})

	const n = 8
	var attendants []*auth.AttendantPrincipal
	for i := 0; i < n; i++ {
		a := testutil.CreateTestAttendant(t, f.DB, f.Tenant.ID, nil, &f.Admin.ID)
		attendants = append(attendants, auth.NewAttendantPrincipal(a))
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range attendants {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ClaimLead(ctx, attendants[i], lead.ID)
		}(i)
	}
	wg.Wait()

	winners := 0
	var winner uuid.UUID
	for i, err := range errs {
		if err == nil {
			winners++
			winner = attendants[i].AttendantID
			continue
		}
		assert.ErrorIs(t, err, kanban.ErrLeadUnavailable)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	}
	require.Equal(t, 1, winners)

	stored := f.lead(t, lead.ID)
	require.NotNil(t, stored.AttendantID)
	assert.Equal(t, winner, *stored.AttendantID)
	assert.Equal(t, []string{events.LeadClaimed}, f.recorder.Types())
}

func TestClaimLead_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	a := testutil.CreateTestAttendant(t, f.DB, f.Tenant.ID, nil, &f.Admin.ID)
	ap := auth.NewAttendantPrincipal(a)
	lead := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{})

	_, err := f.svc.ClaimLead(ctx, ap, lead.ID)
	require.NoError(t, err)
	_, err = f.svc.ClaimLead(ctx, ap, lead.ID)
	require.NoError(t, err)
	assert.Len(t, f.recorder.Events(), 1)
}

func TestGetLead_AttendantClaimsUnassigned(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	a := testutil.CreateTestAttendant(t, f.DB, f.Tenant.ID, nil, &f.Admin.ID)
	other := testutil.CreateTestAttendant(t, f.DB, f.Tenant.ID, nil, &f.Admin.ID)
	open := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{})
	taken := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{AttendantID: &other.ID})

	got, err := f.svc.GetLead(ctx, auth.NewAttendantPrincipal(a), open.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AttendantID)
	assert.Equal(t, a.ID, *got.AttendantID)

	_, err = f.svc.GetLead(ctx, auth.NewAttendantPrincipal(a), taken.ID)
	assert.ErrorIs(t, err, kanban.ErrLeadNotFound)
}

func TestUpdateLead_AttendantLosesToEarlierClaim(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	a := testutil.CreateTestAttendant(t, f.DB, f.Tenant.ID, nil, &f.Admin.ID)
	b := testutil.CreateTestAttendant(t, f.DB, f.Tenant.ID, nil, &f.Admin.ID)
	lead := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{})

	_, err := f.svc.UpdateLead(ctx, auth.NewAttendantPrincipal(a), lead.ID, kanban.UpdateLeadInput{Notes: testutil.Ptr("called")})
	require.NoError(t, err)

	_, err = f.svc.UpdateLead(ctx, auth.NewAttendantPrincipal(b), lead.ID, kanban.UpdateLeadInput{Notes: testutil.Ptr("mine")})
	assert.ErrorIs(t, err, kanban.ErrLeadUnavailable)

	stored := f.lead(t, lead.ID)
	assert.Equal(t, "called", stored.Notes)
	assert.Equal(t, a.ID, *stored.AttendantID)
}

func TestCreateLead_PlacementAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)

	orphan, err := f.svc.CreateLead(ctx, f.admin, kanban.CreateLeadInput{Name: "Orphan"})
	require.NoError(t, err)
	assert.Nil(t, orphan.ColumnID)
	assert.Equal(t, kanban.DefaultStatus, orphan.Status)

	second := testutil.CreateTestColumn(t, f.DB, f.Tenant.ID, "Qualified", 1)
	first := testutil.CreateTestColumn(t, f.DB, f.Tenant.ID, "Inbox", 0)

	lead, err := f.svc.CreateLead(ctx, f.admin, kanban.CreateLeadInput{Name: " Acme ", Email: "CEO@Acme.io"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, *lead.ColumnID)
	assert.Equal(t, "Inbox", lead.Status)
	assert.Equal(t, "Acme", lead.Name)
	assert.Equal(t, "ceo@acme.io", lead.Email)

	next, err := f.svc.CreateLead(ctx, f.admin, kanban.CreateLeadInput{Name: "Next", ColumnID: &second.ID})
	require.NoError(t, err)
	assert.Equal(t, "Qualified", next.Status)

	require.NoError(t, f.DB.Delete(second).Error)
	_, err = f.svc.CreateLead(ctx, f.admin, kanban.CreateLeadInput{Name: "Late", ColumnID: &second.ID})
	assert.ErrorIs(t, err, kanban.ErrColumnDeleted)

	_, err = f.svc.CreateLead(ctx, f.admin, kanban.CreateLeadInput{Name: "  "})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateLead_AssignmentMustBeReachable(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	manager := testutil.CreateTestUser(t, f.DB, f.Tenant, models.RoleManager, &f.Admin.ID)
	mine := testutil.CreateTestAttendant(t, f.DB, f.Tenant.ID, &manager.ID, nil)
	foreign := testutil.CreateTestAttendant(t, f.DB, f.Tenant.ID, nil, &f.Admin.ID)

	mp := auth.NewSystemPrincipal(manager)
	_, err := f.svc.CreateLead(ctx, mp, kanban.CreateLeadInput{Name: "ok", AttendantID: &mine.ID})
	require.NoError(t, err)

	_, err = f.svc.CreateLead(ctx, mp, kanban.CreateLeadInput{Name: "no", AttendantID: &foreign.ID})
	assert.ErrorIs(t, err, kanban.ErrAttendantUnreachable)
}

func TestMoveLead_StatusMirrorsColumnAcrossMoves(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	a := testutil.CreateTestColumn(t, f.DB, f.Tenant.ID, "Contacted", 0)
	b := testutil.CreateTestColumn(t, f.DB, f.Tenant.ID, "Proposal", 1)
	c := testutil.CreateTestColumn(t, f.DB, f.Tenant.ID, "Won", 2)
	lead := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{ColumnID: &a.ID})

	for _, col := range []*models.Column{b, c, a, c} {
		moved, err := f.svc.MoveLead(ctx, f.admin, lead.ID, kanban.MoveLeadInput{ColumnID: col.ID, Position: testutil.Ptr(3)})
		require.NoError(t, err)
		assert.Equal(t, col.ID, *moved.ColumnID)
		assert.Equal(t, col.Title, moved.Status)
		assert.Equal(t, 3, moved.Position)
	}

	_, err := f.svc.UpdateColumn(ctx, f.admin, c.ID, kanban.UpdateColumnInput{Title: testutil.Ptr("Closed won")})
	require.NoError(t, err)
	assert.Equal(t, "Closed won", f.lead(t, lead.ID).Status)

	assert.Equal(t, []string{events.LeadMoved, events.LeadMoved, events.LeadMoved, events.LeadMoved}, f.recorder.Types())
}

func TestReorder_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	manager := testutil.CreateTestUser(t, f.DB, f.Tenant, models.RoleManager, &f.Admin.ID)
	mine := testutil.CreateTestAttendant(t, f.DB, f.Tenant.ID, &manager.ID, nil)
	todo := testutil.CreateTestColumn(t, f.DB, f.Tenant.ID, "Todo", 0)
	done := testutil.CreateTestColumn(t, f.DB, f.Tenant.ID, "Done", 1)

	visible := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{ColumnID: &todo.ID, AttendantID: &mine.ID})
	hidden := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{ColumnID: &todo.ID, Position: 1})

	mp := auth.NewSystemPrincipal(manager)
	err := f.svc.Reorder(ctx, mp, []kanban.ReorderItem{
		{LeadID: visible.ID, ColumnID: &done.ID, Position: 0},
		{LeadID: hidden.ID, ColumnID: &done.ID, Position: 1},
	})
	assert.ErrorIs(t, err, kanban.ErrLeadNotFound)
	assert.Equal(t, todo.ID, *f.lead(t, visible.ID).ColumnID)
	assert.Equal(t, "Todo", f.lead(t, visible.ID).Status)
	assert.Empty(t, f.recorder.Events())

	err = f.svc.Reorder(ctx, f.admin, []kanban.ReorderItem{
		{LeadID: visible.ID, ColumnID: &done.ID, Position: 1},
		{LeadID: hidden.ID, ColumnID: &done.ID, Position: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, "Done", f.lead(t, visible.ID).Status)
	assert.Equal(t, 1, f.lead(t, visible.ID).Position)
	assert.Equal(t, 0, f.lead(t, hidden.ID).Position)
	assert.Len(t, f.recorder.Events(), 2)
}

func TestReorder_RejectsDeletedColumnAndBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	live := testutil.CreateTestColumn(t, f.DB, f.Tenant.ID, "Live", 0)
	gone := testutil.CreateTestColumn(t, f.DB, f.Tenant.ID, "Gone", 1)
	l1 := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{ColumnID: &live.ID})
	l2 := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{ColumnID: &live.ID, Position: 1})
	require.NoError(t, f.DB.Delete(gone).Error)

	err := f.svc.Reorder(ctx, f.admin, []kanban.ReorderItem{
		{LeadID: l1.ID, ColumnID: &live.ID, Position: 1},
		{LeadID: l2.ID, ColumnID: &gone.ID, Position: 0},
	})
	assert.ErrorIs(t, err, kanban.ErrColumnDeleted)
	assert.Equal(t, 0, f.lead(t, l1.ID).Position)

	cases := map[string][]kanban.ReorderItem{
		"empty":      nil,
		"duplicate":  {{LeadID: l1.ID, ColumnID: &live.ID}, {LeadID: l1.ID}},
		"negative":   {{LeadID: l1.ID, ColumnID: &live.ID, Position: -1}},
		"nil column": {{LeadID: l1.ID, ColumnID: &uuid.Nil}},
		"no lead":    {{ColumnID: &live.ID}},
	}
	for name, items := range cases {
		t.Run(name, func(t *testing.T) {
			err := f.svc.Reorder(ctx, f.admin, items)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestReorder_PositionOnlyKeepsColumn(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	col := testutil.CreateTestColumn(t, f.DB, f.Tenant.ID, "Inbox", 0)
	a := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{ColumnID: &col.ID})
	b := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{ColumnID: &col.ID, Position: 1})
	orphan := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{})
	require.NoError(t, f.DB.Model(&models.Lead{}).Where("id = ?", a.ID).Update("status", "custom").Error)

	err := f.svc.Reorder(ctx, f.admin, []kanban.ReorderItem{
		{LeadID: a.ID, Position: 1},
		{LeadID: b.ID, Position: 0},
		{LeadID: orphan.ID, Position: 5},
	})
	require.NoError(t, err)

	la, lb, lo := f.lead(t, a.ID), f.lead(t, b.ID), f.lead(t, orphan.ID)
	assert.Equal(t, 1, la.Position)
	assert.Equal(t, col.ID, *la.ColumnID)
	assert.Equal(t, "custom", la.Status)
	assert.Equal(t, 0, lb.Position)
	assert.Nil(t, lo.ColumnID)
	assert.Equal(t, 5, lo.Position)
	assert.Empty(t, f.recorder.Events())
}

func TestColumns_CreateReorderRenumber(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)

	a, err := f.svc.CreateColumn(ctx, f.admin, kanban.CreateColumnInput{Title: "A"})
	require.NoError(t, err)
	b, err := f.svc.CreateColumn(ctx, f.admin, kanban.CreateColumnInput{Title: "B"})
	require.NoError(t, err)
	c, err := f.svc.CreateColumn(ctx, f.admin, kanban.CreateColumnInput{Title: "C", Position: testutil.Ptr(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Position)

	titles := func() []string {
		cols, err := f.svc.ListColumns(ctx, f.admin)
		require.NoError(t, err)
		var out []string
		for i, col := range cols {
			assert.Equal(t, i, col.Position)
			out = append(out, col.Title)
		}
		return out
	}
	assert.Equal(t, []string{"C", "A", "B"}, titles())

	ordered, err := f.svc.ReorderColumns(ctx, f.admin, []uuid.UUID{b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, ordered, 3)
	assert.Equal(t, []string{"B", "A", "C"}, titles())

	_, err = f.svc.ReorderColumns(ctx, f.admin, []uuid.UUID{a.ID, uuid.New()})
	assert.ErrorIs(t, err, kanban.ErrColumnNotFound)

	manager := testutil.CreateTestUser(t, f.DB, f.Tenant, models.RoleManager, &f.Admin.ID)
	_, err = f.svc.CreateColumn(ctx, auth.NewSystemPrincipal(manager), kanban.CreateColumnInput{Title: "X"})
	assert.ErrorIs(t, err, kanban.ErrAdminOnly)
}

func TestDeleteColumn_CascadesToActiveLeadsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	col := testutil.CreateTestColumn(t, f.DB, f.Tenant.ID, "Doomed", 0)
	keep := testutil.CreateTestColumn(t, f.DB, f.Tenant.ID, "Keep", 1)
	l1 := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{ColumnID: &col.ID})
	l2 := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{ColumnID: &col.ID, Position: 1})
	trashed := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{ColumnID: &col.ID, Position: 2})
	other := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{ColumnID: &keep.ID})

	require.NoError(t, f.svc.DeleteLead(ctx, f.admin, trashed.ID))
	before := f.lead(t, trashed.ID)

	super := &auth.SystemPrincipal{UserID: uuid.New(), TenantID: f.Tenant.ID, Role: models.RoleSuperAdmin, IsSuperAdmin: true}
	n, err := f.svc.DeleteColumn(ctx, super, col.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	for _, id := range []uuid.UUID{l1.ID, l2.ID} {
		l := f.lead(t, id)
		assert.True(t, l.IsDeleted())
		require.NotNil(t, l.DeletedBy)
		assert.Equal(t, super.UserID, *l.DeletedBy)
	}

	after := f.lead(t, trashed.ID)
	assert.Equal(t, f.Admin.ID, *after.DeletedBy)
	assert.True(t, before.DeletedAt.Time.Equal(after.DeletedAt.Time))
	untouched := f.lead(t, other.ID)
	assert.False(t, untouched.IsDeleted())

	var stored models.Column
	require.NoError(t, f.DB.Unscoped().First(&stored, "id = ?", col.ID).Error)
	assert.True(t, stored.DeletedAt.Valid)
	var kept models.Column
	require.NoError(t, f.DB.First(&kept, "id = ?", keep.ID).Error)
	assert.Equal(t, 0, kept.Position)

	_, err = f.svc.DeleteColumn(ctx, super, col.ID)
	assert.ErrorIs(t, err, kanban.ErrColumnNotFound)
}

func TestDeleteRestore_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	col := testutil.CreateTestColumn(t, f.DB, f.Tenant.ID, "Inbox", 0)
	lead := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{ColumnID: &col.ID})

	require.NoError(t, f.svc.DeleteLead(ctx, f.admin, lead.ID))
	first := f.lead(t, lead.ID)
	require.NoError(t, f.svc.DeleteLead(ctx, f.admin, lead.ID))
	second := f.lead(t, lead.ID)
	assert.True(t, first.DeletedAt.Time.Equal(second.DeletedAt.Time))

	trash, total, err := f.svc.ListDeleted(ctx, f.admin, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, lead.ID, trash[0].ID)

	restored, err := f.svc.RestoreLead(ctx, f.admin, lead.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted())
	assert.Nil(t, restored.DeletedBy)
	assert.Equal(t, col.ID, *restored.ColumnID)

	_, err = f.svc.RestoreLead(ctx, f.admin, lead.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{events.LeadDeleted, events.LeadRestored}, f.recorder.Types())
}

func TestRestoreLead_RehomesWhenColumnIsGone(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	doomed := testutil.CreateTestColumn(t, f.DB, f.Tenant.ID, "Doomed", 0)
	lead := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{ColumnID: &doomed.ID})

	_, err := f.svc.DeleteColumn(ctx, f.admin, doomed.ID)
	require.NoError(t, err)

	restored, err := f.svc.RestoreLead(ctx, f.admin, lead.ID)
	require.NoError(t, err)
	assert.Nil(t, restored.ColumnID)
	assert.Equal(t, kanban.DefaultStatus, restored.Status)

	require.NoError(t, f.svc.DeleteLead(ctx, f.admin, lead.ID))
	home := testutil.CreateTestColumn(t, f.DB, f.Tenant.ID, "Home", 0)
	restored, err = f.svc.RestoreLead(ctx, f.admin, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, home.ID, *restored.ColumnID)
	assert.Equal(t, "Home", restored.Status)
}

func TestTrash_RoleChecks(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	manager := testutil.CreateTestUser(t, f.DB, f.Tenant, models.RoleManager, &f.Admin.ID)
	a := testutil.CreateTestAttendant(t, f.DB, f.Tenant.ID, &manager.ID, nil)
	lead := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{AttendantID: &a.ID})

	err := f.svc.DeleteLead(ctx, auth.NewAttendantPrincipal(a), lead.ID)
	assert.ErrorIs(t, err, kanban.ErrSystemOnly)

	err = f.svc.PurgeLead(ctx, auth.NewSystemPrincipal(manager), lead.ID)
	assert.ErrorIs(t, err, kanban.ErrAdminOnly)

	_, err = f.svc.CreateAttendance(ctx, f.admin, lead.ID, kanban.AttendanceInput{Type: "call"})
	require.NoError(t, err)

	require.NoError(t, f.svc.PurgeLead(ctx, f.admin, lead.ID))
	var count int64
	f.DB.Unscoped().Model(&models.Lead{}).Where("id = ?", lead.ID).Count(&count)
	assert.Zero(t, count)
	f.DB.Unscoped().Model(&models.Attendance{}).Where("lead_id = ?", lead.ID).Count(&count)
	assert.Zero(t, count)
}

func TestAssignLead(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	a := testutil.CreateTestAttendant(t, f.DB, f.Tenant.ID, nil, &f.Admin.ID)
	lead := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{})

	assigned, err := f.svc.AssignLead(ctx, f.admin, lead.ID, &a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, *assigned.AttendantID)

	unassigned, err := f.svc.AssignLead(ctx, f.admin, lead.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, unassigned.AttendantID)

	_, err = f.svc.AssignLead(ctx, auth.NewAttendantPrincipal(a), lead.ID, &a.ID)
	assert.ErrorIs(t, err, kanban.ErrSystemOnly)
}

func TestAttendances(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	a := testutil.CreateTestAttendant(t, f.DB, f.Tenant.ID, nil, &f.Admin.ID)
	ap := auth.NewAttendantPrincipal(a)
	lead := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{})

	item, err := f.svc.CreateAttendance(ctx, ap, lead.ID, kanban.AttendanceInput{Type: "call", Subject: "intro", Tags: []string{"hot"}})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceCompleted, item.Status)
	assert.NotNil(t, item.CompletedAt)
	assert.Equal(t, a.ID, *item.AttendantID)
	assert.JSONEq(t, `["hot"]`, string(item.Tags))

	// Logging an interaction claims the lead.
	assert.Equal(t, a.ID, *f.lead(t, lead.ID).AttendantID)

	list, err := f.svc.ListAttendances(ctx, f.admin, lead.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	updated, err := f.svc.UpdateAttendance(ctx, ap, item.ID, kanban.UpdateAttendanceInput{Outcome: testutil.Ptr("interested")})
	require.NoError(t, err)
	assert.Equal(t, "interested", updated.Outcome)

	outsider := testutil.CreateTestAttendant(t, f.DB, f.Tenant.ID, nil, &f.Admin.ID)
	err = f.svc.DeleteAttendance(ctx, auth.NewAttendantPrincipal(outsider), item.ID)
	assert.ErrorIs(t, err, kanban.ErrAttendanceNotFound)

	require.NoError(t, f.svc.DeleteAttendance(ctx, ap, item.ID))
	var count int64
	f.DB.Unscoped().Model(&models.Attendance{}).Where("id = ?", item.ID).Count(&count)
	assert.Zero(t, count)

	_, err = f.svc.CreateAttendance(ctx, ap, lead.ID, kanban.AttendanceInput{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestAttendances_ViewingClaimsUnassignedLead(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	lead := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{})
	item, err := f.svc.CreateAttendance(ctx, f.admin, lead.ID, kanban.AttendanceInput{Type: "note"})
	require.NoError(t, err)
	require.Nil(t, f.lead(t, lead.ID).AttendantID)

	a := testutil.CreateTestAttendant(t, f.DB, f.Tenant.ID, nil, &f.Admin.ID)
	list, err := f.svc.ListAttendances(ctx, auth.NewAttendantPrincipal(a), lead.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	owner := f.lead(t, lead.ID).AttendantID
	require.NotNil(t, owner)
	assert.Equal(t, a.ID, *owner)

	// Another unassigned lead, reached through one of its records.
	other := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{})
	rec, err := f.svc.CreateAttendance(ctx, f.admin, other.ID, kanban.AttendanceInput{Type: "call"})
	require.NoError(t, err)
	_, err = f.svc.UpdateAttendance(ctx, auth.NewAttendantPrincipal(a), rec.ID, kanban.UpdateAttendanceInput{Outcome: testutil.Ptr("voicemail")})
	require.NoError(t, err)
	owner = f.lead(t, other.ID).AttendantID
	require.NotNil(t, owner)
	assert.Equal(t, a.ID, *owner)

	peer := testutil.CreateTestAttendant(t, f.DB, f.Tenant.ID, nil, &f.Admin.ID)
	_, err = f.svc.ListAttendances(ctx, auth.NewAttendantPrincipal(peer), lead.ID)
	assert.ErrorIs(t, err, kanban.ErrLeadNotFound)
	_, err = f.svc.UpdateAttendance(ctx, auth.NewAttendantPrincipal(peer), item.ID, kanban.UpdateAttendanceInput{})
	assert.ErrorIs(t, err, kanban.ErrAttendanceNotFound)
}

func TestDashboard_MatchesListScope(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	manager := testutil.CreateTestUser(t, f.DB, f.Tenant, models.RoleManager, &f.Admin.ID)
	mine := testutil.CreateTestAttendant(t, f.DB, f.Tenant.ID, &manager.ID, nil)
	col := testutil.CreateTestColumn(t, f.DB, f.Tenant.ID, "Inbox", 0)
	testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{ColumnID: &col.ID, AttendantID: &mine.ID})
	testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{ColumnID: &col.ID})
	testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{})

	for _, p := range []auth.Principal{f.admin, auth.NewSystemPrincipal(manager)} {
		stats, err := f.svc.Dashboard(ctx, p)
		require.NoError(t, err)
		_, total, err := f.svc.ListLeads(ctx, p, kanban.LeadFilter{})
		require.NoError(t, err)
		assert.Equal(t, total, stats.TotalLeads)
	}

	stats, err := f.svc.Dashboard(ctx, f.admin)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalLeads)
	assert.EqualValues(t, 2, stats.UnassignedLeads)
	require.Len(t, stats.ByAttendant, 1)
	assert.EqualValues(t, 1, stats.ByAttendant[0].Count)

	var inbox int64
	for _, c := range stats.ByColumn {
		if c.ColumnID != nil && *c.ColumnID == col.ID {
			inbox = c.Count
		}
	}
	assert.EqualValues(t, 2, inbox)
}

func TestImportLeads_Dedup(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	existing := testutil.CreateTestLead(t, f.DB, f.Tenant.ID, testutil.LeadOpts{})

	res, err := f.svc.ImportLeads(ctx, f.admin, []kanban.CreateLeadInput{
		{Name: "Dup of existing", Email: existing.Email},
		{Name: "Fresh", Email: "fresh@example.com", Phone: "555-0100"},
		{Name: "Same phone", Phone: "555-0100"},
		{Name: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 4, res.Errors[0].Row)
}
