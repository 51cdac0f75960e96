package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFindings_SkipsMalformedEntries(t *testing.T) {
	data := []byte(`[
		{"system_type": "water_heater", "age_years": 8},
		{"system_type": 42, "age_years": 3},
		{"system_type": "roof", "age_years": "12"}
	]`)

	findings := decodeFindings(data)
	require.Len(t, findings, 2)
	assert.Equal(t, "water_heater", findings[0].SystemType)
	assert.Equal(t, float64(8), findings[0].AgeYears)
	assert.Equal(t, "roof", findings[1].SystemType)
	assert.Equal(t, "12", findings[1].AgeYears)
}

func TestDecodeFindings_NonArrayYieldsNothing(t *testing.T) {
	assert.Nil(t, decodeFindings([]byte(`{"system_type": "furnace"}`)))
	assert.Nil(t, decodeFindings([]byte(`not json`)))
	assert.Nil(t, decodeFindings(nil))
}

func TestDecodeFindings_EmptyArray(t *testing.T) {
	assert.Empty(t, decodeFindings([]byte(`[]`)))
}
