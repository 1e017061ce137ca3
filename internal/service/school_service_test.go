package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/stp-api/internal/models"
)

type mockSchoolRepo struct {
	schools []models.School
	clients []models.Client
}

func (m *mockSchoolRepo) FindByID(ctx context.Context, id string) (*models.School, error) {
	for i := range m.schools {
		if m.schools[i].ID == id {
			return &m.schools[i], nil
		}
	}
	return nil, nil
}

func (m *mockSchoolRepo) List(ctx context.Context) ([]models.School, error) {
	return m.schools, nil
}

func (m *mockSchoolRepo) ListClients(ctx context.Context) ([]models.Client, error) {
	return m.clients, nil
}

func TestSchoolServiceGetNotFound(t *testing.T) {
	svc := NewSchoolService(&mockSchoolRepo{}, zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSchoolServiceList(t *testing.T) {
	svc := NewSchoolService(&mockSchoolRepo{schools: []models.School{{ID: "sc1", Name: "Crestwood College"}}}, zap.NewNop())

	schools, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, schools, 1)
	assert.Equal(t, "Crestwood College", schools[0].Name)
}
