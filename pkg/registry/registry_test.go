package registry_test

import (
	"testing"

	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/aretw0/storewizard/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_OrdersSteps(t *testing.T) {
	r, err := registry.New(
		domain.StepDefinition{ID: 30, Order: 3, Name: "review"},
		domain.StepDefinition{ID: 10, Order: 1, Name: "basics"},
		domain.StepDefinition{ID: 20, Order: 2, Name: "pricing", Optional: true},
	)
	require.NoError(t, err)

	assert.Equal(t, 3, r.StepCount())

	first, ok := r.StepAt(1)
	require.True(t, ok)
	assert.Equal(t, "basics", first.Name)

	_, ok = r.StepAt(0)
	assert.False(t, ok)
	_, ok = r.StepAt(4)
	assert.False(t, ok)

	assert.False(t, r.IsLastStep(2))
	assert.True(t, r.IsLastStep(3))

	byID, ok := r.StepByID(20)
	require.True(t, ok)
	assert.Equal(t, 2, byID.Order)

	required := r.RequiredSteps()
	require.Len(t, required, 2)
	assert.Equal(t, "basics", required[0].Name)
	assert.Equal(t, "review", required[1].Name)
}

func TestNew_RejectsBrokenOrdering(t *testing.T) {
	tests := []struct {
		name  string
		steps []domain.StepDefinition
	}{
		{name: "Empty", steps: nil},
		{name: "Gap", steps: []domain.StepDefinition{{ID: 1, Order: 1}, {ID: 2, Order: 3}}},
		{name: "Starts At Zero", steps: []domain.StepDefinition{{ID: 1, Order: 0}, {ID: 2, Order: 1}}},
		{name: "Duplicate Order", steps: []domain.StepDefinition{{ID: 1, Order: 1}, {ID: 2, Order: 1}}},
		{name: "Duplicate ID", steps: []domain.StepDefinition{{ID: 1, Order: 1}, {ID: 1, Order: 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.New(tt.steps...)
			assert.ErrorIs(t, err, registry.ErrInvalidRegistry)
		})
	}
}

func TestSteps_ReturnsCopy(t *testing.T) {
	r := registry.MustNew(domain.StepDefinition{ID: 1, Order: 1, Name: "only"})
	steps := r.Steps()
	steps[0].Name = "mutated"

	again, _ := r.StepAt(1)
	assert.Equal(t, "only", again.Name)
}
