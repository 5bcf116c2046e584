package middleware

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeNestedDocument(t *testing.T) {
	raw := `{
		"client_id": "acme",
		"client_secret": "hunter2",
		"profile": {
			"email": "ops@acme.test",
			"Password": "hunter2",
			"tokens": [
				{"access_token": "abc", "expires_in": 3600}
			]
		},
		"items": ["plain", {"api_key": "xyz"}]
	}`

	var doc any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	sanitized := Sanitize(doc).(map[string]any)

	assert.Equal(t, "acme", sanitized["client_id"])
	assert.Equal(t, RedactionMarker, sanitized["client_secret"])

	profile := sanitized["profile"].(map[string]any)
	assert.Equal(t, "ops@acme.test", profile["email"])
	// Key matching is case-insensitive.
	assert.Equal(t, RedactionMarker, profile["Password"])

	token := profile["tokens"].([]any)[0].(map[string]any)
	assert.Equal(t, RedactionMarker, token["access_token"])
	assert.Equal(t, float64(3600), token["expires_in"])

	items := sanitized["items"].([]any)
	assert.Equal(t, "plain", items[0])
	assert.Equal(t, RedactionMarker, items[1].(map[string]any)["api_key"])
}

func TestSanitizeExactKeyMatchOnly(t *testing.T) {
	doc := map[string]any{
		"password_hint":   "keep",
		"token_type":      "bearer",
		"my_secret_plans": "keep",
		"secret":          "drop",
	}

	sanitized := Sanitize(doc).(map[string]any)
	assert.Equal(t, "keep", sanitized["password_hint"])
	assert.Equal(t, "bearer", sanitized["token_type"])
	assert.Equal(t, "keep", sanitized["my_secret_plans"])
	assert.Equal(t, RedactionMarker, sanitized["secret"])
}

func TestSanitizeScalars(t *testing.T) {
	assert.Equal(t, "plain", Sanitize("plain"))
	assert.Nil(t, Sanitize(nil))
}
