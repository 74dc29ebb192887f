package requisition

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcp/internal/core/apperror"
	appctx "pcp/internal/core/context"
	"pcp/internal/core/types"
	"pcp/internal/domain/plan"
	"pcp/internal/domain/planning"
)

type stubPlans struct {
	plan.Repository
	plans map[int64]*plan.Plan
}

func (s *stubPlans) GetByID(_ context.Context, id int64) (*plan.Plan, error) {
	p, ok := s.plans[id]
	if !ok {
		return nil, apperror.NewNotFound("plan", id)
	}
	return p, nil
}

type stubResults struct {
	plan.ResultRepository
	rows []plan.MaterialRequirement
}

func (s *stubResults) ListMaterialRequirements(_ context.Context, _ int64, kind planning.MaterialKind) ([]plan.MaterialRequirement, error) {
	var out []plan.MaterialRequirement
	for _, r := range s.rows {
		if kind == "" || r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, nil
}

type memRepo struct {
	items  map[int64]*Requisition
	nextID int64
}

func (m *memRepo) Create(_ context.Context, r *Requisition) error {
	m.nextID++
	r.ID = m.nextID
	r.CreatedAt = time.Now().UTC()
	m.items[r.ID] = r
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*Requisition, error) {
	r, ok := m.items[id]
	if !ok {
		return nil, apperror.NewNotFound("requisition", id)
	}
	return r, nil
}

func (m *memRepo) ListByPlan(_ context.Context, planID int64) ([]Requisition, error) {
	var out []Requisition
	for _, r := range m.items {
		if r.PlanID == planID {
			out = append(out, *r)
		}
	}
	return out, nil
}

type seqNumerator struct{ n int }

func (s *seqNumerator) Next(_ context.Context, prefix string, period time.Time) (string, error) {
	s.n++
	return fmt.Sprintf("%s-%d-%05d", prefix, period.Year(), s.n), nil
}

type noTx struct{}

func (noTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(status plan.Status) (*Service, *memRepo) {
	repo := &memRepo{items: make(map[int64]*Requisition)}
	plans := &stubPlans{plans: map[int64]*plan.Plan{
		1: {ID: 1, RefYear: 2026, RefWeek: 10, Status: status},
	}}
	results := &stubResults{rows: []plan.MaterialRequirement{
		{MaterialID: 10, MaterialCode: "MP-ACUCAR", Kind: planning.MaterialKindRaw, NetQty: types.MustQty("14"), Unit: "KG"},
		{MaterialID: 11, MaterialCode: "MP-SAL", Kind: planning.MaterialKindRaw, NetQty: types.MustQty("0"), Unit: "KG"},
		{MaterialID: 20, MaterialCode: "EMB-CX", Kind: planning.MaterialKindPackaging, NetQty: types.MustQty("5.7"), Unit: "UN"},
	}}
	svc := NewService(repo, plans, results, &seqNumerator{}, noTx{})
	svc.now = func() time.Time { return time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestService_Create(t *testing.T) {
	svc, repo := newTestService(plan.StatusFrozen)
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{Username: "carla"})

	r, err := svc.Create(ctx, 1, planning.MaterialKindRaw)
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, r.Status)
	assert.Equal(t, "REQ-2026-00001", r.Number)
	assert.Equal(t, "carla", r.CreatedBy)
	require.Len(t, r.Lines, 1, "zero net requirements are not requested")
	assert.Equal(t, int64(10), r.Lines[0].MaterialID)
	assert.True(t, types.MustQty("14").Equal(r.Total()))

	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Same(t, repo.items[r.ID], got)

	list, err := svc.ListByPlan(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_Create_ReleasedPlan(t *testing.T) {
	svc, _ := newTestService(plan.StatusReleased)

	r, err := svc.Create(context.Background(), 1, planning.MaterialKindPackaging)
	require.NoError(t, err)
	require.Len(t, r.Lines, 1)
	assert.Equal(t, "EMB-CX", r.Lines[0].MaterialCode)
}

func TestService_Create_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		status plan.Status
		planID int64
		kind   planning.MaterialKind
		code   string
	}{
		{"draft plan", plan.StatusDraft, 1, planning.MaterialKindRaw, apperror.CodeBusinessRule},
		{"calculating plan", plan.StatusCalculating, 1, planning.MaterialKindRaw, apperror.CodeBusinessRule},
		{"unknown kind", plan.StatusFrozen, 1, "XX", apperror.CodeValidation},
		{"missing plan", plan.StatusFrozen, 42, planning.MaterialKindRaw, apperror.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(tt.status)
			_, err := svc.Create(context.Background(), tt.planID, tt.kind)
			assert.True(t, apperror.IsCode(err, tt.code), "got %v", err)
			assert.Empty(t, repo.items)
		})
	}
}

func TestService_Create_NothingToRequest(t *testing.T) {
	svc, repo := newTestService(plan.StatusFrozen)
	svc.results = &stubResults{rows: []plan.MaterialRequirement{
		{MaterialID: 11, Kind: planning.MaterialKindRaw, NetQty: types.MustQty("0"), Unit: "KG"},
	}}

	_, err := svc.Create(context.Background(), 1, planning.MaterialKindRaw)

	assert.True(t, apperror.IsCode(err, apperror.CodeEmptyRequisition))
	assert.Empty(t, repo.items)
}
