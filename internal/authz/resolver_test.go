package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentraining/portfolio-api/internal/model"
)

// fakeDirectory is an in-memory Directory for resolver tests.
type fakeDirectory struct {
	users       map[uint64]model.User
	assignments map[[2]uint64]bool // (es, eyd) -> active
	schemeAreas map[uint64]uint64
}

func (f *fakeDirectory) GetUser(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (f *fakeDirectory) HasActiveAssignment(_ context.Context, es, eyd uint64) (bool, error) {
	return f.assignments[[2]uint64{es, eyd}], nil
}

func (f *fakeDirectory) SchemeArea(_ context.Context, schemeID uint64) (uint64, error) {
	a, ok := f.schemeAreas[schemeID]
	if !ok {
		return 0, model.ErrNotFound
	}
	return a, nil
}

func ptr(v uint64) *uint64 { return &v }

// fixture: area 1 holds scheme 100 (eyd 10, tpd 40); area 2 holds scheme 200
// (tpd 41). ES 20 is placed in area 1; admin 50 in area 1, admin 51 in area 2.
func newFixture() *fakeDirectory {
	return &fakeDirectory{
		users: map[uint64]model.User{
			10: {ID: 10, Role: model.RoleEYD, SchemeID: ptr(100)},
			11: {ID: 11, Role: model.RoleEYD, SchemeID: ptr(100)},
			20: {ID: 20, Role: model.RoleES, AreaID: ptr(1)},
			21: {ID: 21, Role: model.RoleES, AreaID: ptr(1)},
			40: {ID: 40, Role: model.RoleTPD, SchemeID: ptr(100)},
			41: {ID: 41, Role: model.RoleTPD, SchemeID: ptr(200)},
			50: {ID: 50, Role: model.RoleAdmin, AreaID: ptr(1)},
			51: {ID: 51, Role: model.RoleAdmin, AreaID: ptr(2)},
			60: {ID: 60, Role: model.RoleDean},
			70: {ID: 70, Role: model.RoleSuperuser},
		},
		assignments: map[[2]uint64]bool{{20, 10}: true},
		schemeAreas: map[uint64]uint64{100: 1, 200: 2},
	}
}

func TestDecideAssignmentGating(t *testing.T) {
	dir := newFixture()
	r := NewResolver(dir)
	ctx := context.Background()

	es := dir.users[20]

	s, err := r.Load(ctx, es, 10)
	require.NoError(t, err)
	assert.True(t, Decide(s).CanView, "assigned ES sees the EYD")
	assert.False(t, Decide(s).CanEdit, "ES never edits EYD-authored content")

	// an ES without an assignment sees nothing
	s, err = r.Load(ctx, dir.users[21], 10)
	require.NoError(t, err)
	assert.False(t, Decide(s).CanView)

	// deactivating the assignment revokes access on the next load
	dir.assignments[[2]uint64{20, 10}] = false
	s, err = r.Load(ctx, es, 10)
	require.NoError(t, err)
	assert.False(t, Decide(s).CanView, "revocation takes effect immediately")
}

func TestDecidePerRole(t *testing.T) {
	dir := newFixture()
	r := NewResolver(dir)
	ctx := context.Background()

	tests := []struct {
		name     string
		actorID  uint64
		ownerID  uint64
		wantView bool
		wantEdit bool
	}{
		{"eyd owns own records", 10, 10, true, true},
		{"eyd never sees a peer", 10, 11, false, false},
		{"tpd same area", 40, 10, true, false},
		{"tpd other area", 41, 10, false, false},
		{"admin same area views only", 50, 10, true, false},
		{"admin other area", 51, 10, false, false},
		{"dean views everywhere", 60, 10, true, false},
		{"superuser unrestricted", 70, 10, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := r.Load(ctx, dir.users[tt.actorID], tt.ownerID)
			require.NoError(t, err)
			d := Decide(s)
			assert.Equal(t, tt.wantView, d.CanView, "view")
			assert.Equal(t, tt.wantEdit, d.CanEdit, "edit")
		})
	}
}

func TestDecideFailsClosed(t *testing.T) {
	s := Snapshot{
		Actor: model.User{ID: 99, Role: model.Role("INTRUDER")},
		Owner: model.User{ID: 10, Role: model.RoleEYD},
	}
	d := Decide(s)
	assert.False(t, d.CanView)
	assert.False(t, d.CanEdit)
}

func TestSignOffPredicates(t *testing.T) {
	dir := newFixture()
	r := NewResolver(dir)
	ctx := context.Background()

	s, err := r.Load(ctx, dir.users[20], 10)
	require.NoError(t, err)
	assert.True(t, CanSignOffES(s))
	assert.False(t, CanSignOffTPD(s))

	s, err = r.Load(ctx, dir.users[40], 10)
	require.NoError(t, err)
	assert.True(t, CanSignOffTPD(s), "TPD in the owner's area")
	assert.False(t, CanSignOffES(s))

	s, err = r.Load(ctx, dir.users[41], 10)
	require.NoError(t, err)
	assert.False(t, CanSignOffTPD(s), "TPD outside the owner's area")
}

func TestCanCompleteLearningNeed(t *testing.T) {
	dir := newFixture()
	r := NewResolver(dir)
	ctx := context.Background()

	tests := []struct {
		name    string
		actorID uint64
		want    bool
	}{
		{"assigned es", 20, true},
		{"unassigned es", 21, false},
		{"tpd in area", 40, true},
		{"tpd out of area", 41, false},
		{"owner cannot complete own need", 10, false},
		{"superuser", 70, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := r.Load(ctx, dir.users[tt.actorID], 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, CanCompleteLearningNeed(s))
		})
	}
}

func TestRequireViewDistinguishesNotFound(t *testing.T) {
	dir := newFixture()
	r := NewResolver(dir)
	ctx := context.Background()

	_, err := r.RequireView(ctx, dir.users[21], 10)
	assert.ErrorIs(t, err, model.ErrForbidden, "exists but refused")

	_, err = r.RequireView(ctx, dir.users[21], 9999)
	assert.ErrorIs(t, err, model.ErrNotFound, "truly absent")
}

func TestRequireOwner(t *testing.T) {
	dir := newFixture()
	r := NewResolver(dir)
	ctx := context.Background()

	_, err := r.RequireOwner(ctx, dir.users[10], 10)
	assert.NoError(t, err)

	_, err = r.RequireOwner(ctx, dir.users[10], 11)
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = r.RequireOwner(ctx, dir.users[20], 10)
	assert.ErrorIs(t, err, model.ErrForbidden, "ES is view-only even when assigned")

	_, err = r.RequireOwner(ctx, dir.users[70], 10)
	assert.NoError(t, err, "superuser unrestricted")
}
