package unit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streampay/sdk-go/core/types"
)

func TestDecodePayload(t *testing.T) {
	t.Run("Invalid UTF-8 stays bytes", func(t *testing.T) {
		raw := []byte{0xff, 0xfe}
		p := types.DecodePayload(raw)
		assert.Equal(t, types.PayloadBytes, p.Kind)
		assert.Equal(t, raw, p.Raw)
		assert.Empty(t, p.Text)
		assert.Nil(t, p.Value)
	})

	t.Run("Plain text", func(t *testing.T) {
		p := types.DecodePayload([]byte("acme:backend"))
		assert.Equal(t, types.PayloadText, p.Kind)
		assert.Equal(t, "acme:backend", p.Text)
		assert.Nil(t, p.Value)
	})

	t.Run("JSON object", func(t *testing.T) {
		p := types.DecodePayload([]byte(`{"plan": "pro", "seats": 3}`))
		assert.Equal(t, types.PayloadJSON, p.Kind)
		assert.Equal(t, map[string]any{"plan": "pro", "seats": float64(3)}, p.Value)
	})

	t.Run("JSON scalar", func(t *testing.T) {
		p := types.DecodePayload([]byte("42"))
		assert.Equal(t, types.PayloadJSON, p.Kind)
		assert.Equal(t, float64(42), p.Value)
		assert.Equal(t, "42", p.Text, "Text survives the JSON upgrade")
	})

	t.Run("Empty payload", func(t *testing.T) {
		// Empty bytes are valid UTF-8 but not valid JSON.
		p := types.DecodePayload(nil)
		assert.Equal(t, types.PayloadText, p.Kind)
		assert.Empty(t, p.Text)
	})
}

func TestEncodePayload(t *testing.T) {
	t.Run("Nil passes through", func(t *testing.T) {
		encoded, err := types.EncodePayload(nil)
		require.NoError(t, err)
		assert.Nil(t, encoded)
	})

	t.Run("Bytes pass through", func(t *testing.T) {
		encoded, err := types.EncodePayload([]byte{0xff})
		require.NoError(t, err)
		assert.Equal(t, []byte{0xff}, encoded)
	})

	t.Run("Strings encode as UTF-8", func(t *testing.T) {
		encoded, err := types.EncodePayload("memo")
		require.NoError(t, err)
		assert.Equal(t, []byte("memo"), encoded)
	})

	t.Run("Structured values marshal to JSON", func(t *testing.T) {
		encoded, err := types.EncodePayload(map[string]any{"plan": "pro"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"plan": "pro"}`, string(encoded))
	})

	t.Run("Round trip", func(t *testing.T) {
		encoded, err := types.EncodePayload(map[string]any{"seats": 3})
		require.NoError(t, err)
		p := types.DecodePayload(encoded)
		assert.Equal(t, types.PayloadJSON, p.Kind)
		assert.Equal(t, map[string]any{"seats": float64(3)}, p.Value)
	})

	t.Run("Unmarshalable values fail", func(t *testing.T) {
		_, err := types.EncodePayload(func() {})
		assert.Error(t, err)
	})
}
