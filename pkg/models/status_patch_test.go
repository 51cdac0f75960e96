package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusPatch_AbsentVsNullVsValue(t *testing.T) {
	var patch StatusPatch
	require.NoError(t, json.Unmarshal([]byte(`{"condition": "good", "notes": null}`), &patch))

	// present with value
	assert.True(t, patch.Condition.Set)
	assert.True(t, patch.Condition.Valid)
	assert.Equal(t, ConditionGood, patch.Condition.Value)

	// present as explicit null: clears the override
	assert.True(t, patch.Notes.Set)
	assert.False(t, patch.Notes.Valid)

	// absent: leave stored value alone
	assert.False(t, patch.Recommendation.Set)
	assert.False(t, patch.IsPinned.Set)
}

func TestStatusPatch_IsEmpty(t *testing.T) {
	var patch StatusPatch
	require.NoError(t, json.Unmarshal([]byte(`{}`), &patch))
	assert.True(t, patch.IsEmpty())

	require.NoError(t, json.Unmarshal([]byte(`{"is_pinned": true}`), &patch))
	assert.False(t, patch.IsEmpty())
}

func TestStatusPatch_BoolField(t *testing.T) {
	var patch StatusPatch
	require.NoError(t, json.Unmarshal([]byte(`{"is_hidden": false}`), &patch))
	assert.True(t, patch.IsHidden.Set)
	assert.True(t, patch.IsHidden.Valid)
	assert.False(t, patch.IsHidden.Value)
}

func TestIsValidCondition(t *testing.T) {
	assert.True(t, IsValidCondition(ConditionGood))
	assert.True(t, IsValidCondition(ConditionActionNeeded))
	assert.False(t, IsValidCondition("broken"))
	assert.False(t, IsValidCondition(""))
}

func TestIsValidRecommendation(t *testing.T) {
	assert.True(t, IsValidRecommendation(RecommendationRepair))
	assert.False(t, IsValidRecommendation("demolish"))
}
