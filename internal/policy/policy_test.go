package policy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldPolicies(t *testing.T) {
	t.Run("member flat fields", func(t *testing.T) {
		p := For(EntityMember)
		assert.True(t, p.HasField("email"))
		assert.True(t, p.HasField("date_of_birth"))
		assert.False(t, p.HasField("name"))
		assert.Empty(t, p.JSONFields)
	})

	t.Run("asset walks details", func(t *testing.T) {
		p := For(EntityAsset)
		assert.True(t, p.HasField("serial_number"))
		assert.Equal(t, []string{"details"}, p.JSONFields)
	})

	t.Run("unknown entity gets an empty policy", func(t *testing.T) {
		p := For(EntityType("vehicle"))
		assert.False(t, p.HasField("anything"))
		assert.Empty(t, p.JSONFields)
	})
}

func TestSensitiveKeys(t *testing.T) {
	assert.True(t, IsSensitiveKey("policy_number"))
	assert.True(t, IsSensitiveKey("ssn"))
	assert.False(t, IsSensitiveKey("name"))
	assert.False(t, IsSensitiveKey("POLICY_NUMBER"), "key matching is exact")
}

// mark makes transformed values easy to spot in assertions.
func mark(s string) string { return "<" + s + ">" }

func TestTransformJSON(t *testing.T) {
	t.Run("transforms matching keys at any depth", func(t *testing.T) {
		var payload any
		require.NoError(t, json.Unmarshal([]byte(`{
			"policy_number": "P-123",
			"other": "plain",
			"nested": {"insurance": {"policy_number": "P-456"}, "count": 3}
		}`), &payload))

		got := TransformJSON(payload, mark).(map[string]any)
		assert.Equal(t, "<P-123>", got["policy_number"])
		assert.Equal(t, "plain", got["other"])
		nested := got["nested"].(map[string]any)
		assert.Equal(t, "<P-456>", nested["insurance"].(map[string]any)["policy_number"])
		assert.Equal(t, float64(3), nested["count"])
	})

	t.Run("preserves array order and shape", func(t *testing.T) {
		var payload any
		require.NoError(t, json.Unmarshal([]byte(`{
			"items": [{"serial_number": "a"}, {"serial_number": "b"}, {"note": "c"}]
		}`), &payload))

		got := TransformJSON(payload, mark).(map[string]any)
		items := got["items"].([]any)
		require.Len(t, items, 3)
		assert.Equal(t, "<a>", items[0].(map[string]any)["serial_number"])
		assert.Equal(t, "<b>", items[1].(map[string]any)["serial_number"])
		assert.Equal(t, "c", items[2].(map[string]any)["note"])
	})

	t.Run("sensitive key holding an array transforms its string elements", func(t *testing.T) {
		var payload any
		require.NoError(t, json.Unmarshal([]byte(`{"pin": ["1234", "5678"]}`), &payload))

		got := TransformJSON(payload, mark).(map[string]any)
		assert.Equal(t, []any{"<1234>", "<5678>"}, got["pin"])
	})

	t.Run("non-string sensitive values pass through", func(t *testing.T) {
		var payload any
		require.NoError(t, json.Unmarshal([]byte(`{"pin": 1234, "ssn": null}`), &payload))

		got := TransformJSON(payload, mark).(map[string]any)
		assert.Equal(t, float64(1234), got["pin"])
		assert.Nil(t, got["ssn"])
	})

	t.Run("does not mutate the input", func(t *testing.T) {
		var payload any
		require.NoError(t, json.Unmarshal([]byte(`{"ssn": "123-45-6789"}`), &payload))

		_ = TransformJSON(payload, mark)
		assert.Equal(t, "123-45-6789", payload.(map[string]any)["ssn"])
	})

	t.Run("scalar root passes through", func(t *testing.T) {
		assert.Equal(t, "plain", TransformJSON("plain", mark))
		assert.Nil(t, TransformJSON(nil, mark))
	})
}
