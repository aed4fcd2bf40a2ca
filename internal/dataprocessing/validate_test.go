package dataprocessing

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldreport/pkg/contracts/domain"
)

func TestInspectRecords(t *testing.T) {
	v := validator.New()
	records := []domain.PriceObservation{
		{Article: "Water", Prix: 2, Contenance: 500, MissionDate: day(2024, 1, 1), RaisonSocial: "A", Adresse: "X"},
		{Article: "", Prix: 2, Contenance: 0, MissionDate: day(2024, 1, 1), RaisonSocial: "A", Adresse: "X"},
	}

	issues := InspectRecords(v, records)
	require.Len(t, issues, 2)
	for _, issue := range issues {
		assert.Equal(t, 1, issue.Index)
	}

	rules := map[string]string{}
	for _, issue := range issues {
		rules[issue.Field] = issue.Rule
	}
	assert.Equal(t, "required", rules["Article"])
	assert.Equal(t, "gt", rules["Contenance"])
}

func TestInspectRecords_Clean(t *testing.T) {
	records := []domain.QuantityObservation{
		{Article: "Milk", Qte: 0, MissionDate: day(2024, 1, 1), RaisonSocial: "A", Adresse: "X"},
	}
	assert.Empty(t, InspectRecords(validator.New(), records))
}
