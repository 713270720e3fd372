package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/wfm-time-api/internal/models"
)

type mockEmployeeRepo struct {
	employees   map[int64]models.Employee
	nextID      int64
	deactivated []int64
}

func newMockEmployeeRepo(seed ...models.Employee) *mockEmployeeRepo {
	repo := &mockEmployeeRepo{employees: make(map[int64]models.Employee), nextID: 100}
	for _, e := range seed {
		repo.employees[e.ID] = e
	}
	return repo
}

func (m *mockEmployeeRepo) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error) {
	var out []models.Employee
	for _, e := range m.employees {
		out = append(out, e)
	}
	return out, len(out), nil
}

func (m *mockEmployeeRepo) FindByID(ctx context.Context, id int64) (*models.Employee, error) {
	if e, ok := m.employees[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEmployeeRepo) Create(ctx context.Context, employee *models.Employee) error {
	m.nextID++
	employee.ID = m.nextID
	m.employees[employee.ID] = *employee
	return nil
}

func (m *mockEmployeeRepo) Update(ctx context.Context, employee *models.Employee) error {
	m.employees[employee.ID] = *employee
	return nil
}

func (m *mockEmployeeRepo) Deactivate(ctx context.Context, id int64) error {
	m.deactivated = append(m.deactivated, id)
	if e, ok := m.employees[id]; ok {
		e.Active = false
		m.employees[id] = e
	}
	return nil
}

func TestEmployeeServiceCreate(t *testing.T) {
	repo := newMockEmployeeRepo()
	svc := NewEmployeeService(repo, validator.New(), zap.NewNop())

	employee, err := svc.Create(context.Background(), EmployeeRequest{
		Email:    "mika@example.com",
		FullName: "Mika Vries",
	})
	require.NoError(t, err)
	assert.NotZero(t, employee.ID)
	assert.True(t, employee.Active)
}

func TestEmployeeServiceCreateInvalidEmail(t *testing.T) {
	svc := NewEmployeeService(newMockEmployeeRepo(), validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), EmployeeRequest{Email: "not-an-email", FullName: "Mika Vries"})
	require.Error(t, err)
}

func TestEmployeeServiceUpdatePreservesActiveFlag(t *testing.T) {
	repo := newMockEmployeeRepo(models.Employee{ID: 7, Email: "old@example.com", FullName: "Old Name", Active: false})
	svc := NewEmployeeService(repo, validator.New(), zap.NewNop())

	updated, err := svc.Update(context.Background(), 7, EmployeeRequest{
		Email:    "new@example.com",
		FullName: "New Name",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.False(t, updated.Active)
}

func TestEmployeeServiceGetNotFound(t *testing.T) {
	svc := NewEmployeeService(newMockEmployeeRepo(), validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), 99)
	require.Error(t, err)
}

func TestEmployeeServiceDeactivate(t *testing.T) {
	repo := newMockEmployeeRepo(models.Employee{ID: 7, Email: "mika@example.com", FullName: "Mika Vries", Active: true})
	svc := NewEmployeeService(repo, validator.New(), zap.NewNop())

	require.NoError(t, svc.Deactivate(context.Background(), 7))
	assert.Equal(t, []int64{7}, repo.deactivated)
	assert.False(t, repo.employees[7].Active)
}
