package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario(t *testing.T) {
	for _, s := range Scenarios() {
		got, err := ParseScenario(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseScenario("interface-field")
	assert.ErrorIs(t, err, ErrUnknownScenario)

	_, err = ParseScenario("trigger_name")
	assert.ErrorIs(t, err, ErrUnknownScenario)
}

func TestScenarioProperties(t *testing.T) {
	assert.Len(t, Scenarios(), 9)
	assert.True(t, ScenarioTriggerNameLinked.Linked())
	assert.False(t, ScenarioTriggerName.Linked())
	assert.True(t, ScenarioTriggerURL.Indexed())
	assert.False(t, ScenarioMapElementLabel.Indexed())
	assert.True(t, ScenarioTriggerDescription.Families().Has(FamilyInventory))
	assert.False(t, ScenarioGraphName.Families().Has(FamilyUserMacro))
	assert.Equal(t, "scenario(99)", Scenario(99).String())
}
