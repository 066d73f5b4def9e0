package divisions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openleague/openleague/internal/platform/httpx"
	"github.com/openleague/openleague/internal/shared"
)

type mockRepository struct {
	divisions map[int64]Division
	nextID    int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{divisions: make(map[int64]Division), nextID: 1}
}

func (m *mockRepository) ListBySeason(ctx context.Context, seasonID int64) ([]Division, error) {
	var out []Division
	for id := int64(1); id < m.nextID; id++ {
		if d, ok := m.divisions[id]; ok && d.SeasonID == seasonID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (Division, error) {
	d, ok := m.divisions[id]
	if !ok {
		return Division{}, ErrNotFound
	}
	return d, nil
}

func (m *mockRepository) Create(ctx context.Context, d Division) (Division, error) {
	d.ID = m.nextID
	m.divisions[d.ID] = d
	m.nextID++
	return d, nil
}

func (m *mockRepository) Update(ctx context.Context, d Division) (Division, error) {
	current, ok := m.divisions[d.ID]
	if !ok {
		return Division{}, ErrNotFound
	}
	d.SeasonID = current.SeasonID
	d.TeamCount = current.TeamCount
	m.divisions[d.ID] = d
	return d, nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.divisions[id]; !ok {
		return ErrNotFound
	}
	delete(m.divisions, id)
	return nil
}

type recordingAudit struct {
	entries []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

func TestCreateDivision(t *testing.T) {
	audit := &recordingAudit{}
	svc := NewService(newMockRepository(), audit)

	division, err := svc.Create(context.Background(), CreateInput{
		SeasonID:   3,
		Name:       " East ",
		SkillLevel: SkillRecreational,
		MaxTeams:   8,
		ActorID:    4,
	})
	require.NoError(t, err)
	assert.Equal(t, "East", division.Name)
	assert.Equal(t, int64(3), division.SeasonID)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "division.create", audit.entries[0].Action)
}

func TestCreateDivisionValidation(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	_, err := svc.Create(context.Background(), CreateInput{SeasonID: 1, Name: "East", SkillLevel: "pro", MaxTeams: 8})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{SeasonID: 1, Name: "East", SkillLevel: SkillCompetitive, MaxTeams: 1})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateDivisionRespectsTeamCount(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	division, err := svc.Create(context.Background(), CreateInput{
		SeasonID:   1,
		Name:       "West",
		SkillLevel: SkillIntermediate,
		MaxTeams:   10,
	})
	require.NoError(t, err)

	stored := repo.divisions[division.ID]
	stored.TeamCount = 6
	repo.divisions[division.ID] = stored

	_, err = svc.Update(context.Background(), UpdateInput{
		ID:         division.ID,
		Name:       "West",
		SkillLevel: SkillIntermediate,
		MaxTeams:   4,
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	updated, err := svc.Update(context.Background(), UpdateInput{
		ID:         division.ID,
		Name:       "West A",
		SkillLevel: SkillCompetitive,
		MaxTeams:   6,
	})
	require.NoError(t, err)
	assert.Equal(t, "West A", updated.Name)
	assert.Equal(t, SkillCompetitive, updated.SkillLevel)
}
