package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerator(t *testing.T) {
	gen := NewGenerator()

	require.NotNil(t, gen)
	require.NotNil(t, gen.reflector)
}

func TestGenerator_Generate(t *testing.T) {
	gen := NewGenerator()

	data, err := gen.Generate()

	require.NoError(t, err)
	require.NotEmpty(t, data)

	// Verify it's valid JSON
	var schema map[string]interface{}
	err = json.Unmarshal(data, &schema)
	require.NoError(t, err)

	// Check required schema fields
	assert.Contains(t, schema, "$schema")
	assert.Contains(t, schema, "title")
	assert.Equal(t, "Gateway Configuration", schema["title"])

	desc, ok := schema["description"].(string)
	require.True(t, ok)
	assert.Contains(t, desc, "admin API")
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Config", "config"},
		{"ServerConfig", "server_config"},
		{"OAuthConfig", "oauth_config"},
		{"CORSConfig", "cors_config"},
		{"TransientTTL", "transient_ttl"},
		{"CacheTTL", "cache_ttl"},
		{"HTTPTimeout", "http_timeout"},
		{"RedirectURI", "redirect_uri"},
		{"ClientID", "client_id"},
		{"TTL", "ttl"},
		{"URL", "url"},
		{"ID", "id"},
		{"CamelCase", "camel_case"},
		{"simpleword", "simpleword"},
		{"XMLParser", "xml_parser"},
		{"JSONData", "json_data"},
		{"myVar", "my_var"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := toSnakeCase(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestConfigTypeNames(t *testing.T) {
	names := configTypeNames()

	require.NotEmpty(t, names)
	assert.Contains(t, names, "Config")
	assert.Contains(t, names, "ServerConfig")
	assert.Contains(t, names, "BrokerConfig")
	assert.Contains(t, names, "SessionConfig")
}

func TestGenerator_PostProcessJSON(t *testing.T) {
	gen := NewGenerator()

	input := `{"$ref": "#/$defs/ServerConfig", "ServerConfig": {}}`
	result := gen.postProcessJSON(input)

	assert.Contains(t, result, "server_config")
	assert.NotContains(t, result, "ServerConfig")
}

func TestGenerator_HasSnakeCaseProperties(t *testing.T) {
	gen := NewGenerator()

	data, err := gen.Generate()
	require.NoError(t, err)

	jsonStr := string(data)

	assert.Contains(t, jsonStr, `"server"`)
	assert.Contains(t, jsonStr, `"broker"`)
	assert.Contains(t, jsonStr, `"session"`)

	// $defs keys are converted to snake_case in postProcessJSON
	assert.NotContains(t, jsonStr, `"Server":`)
	assert.NotContains(t, jsonStr, `"Broker":`)
}

func TestGenerator_DurationPattern(t *testing.T) {
	gen := NewGenerator()

	data, err := gen.Generate()
	require.NoError(t, err)

	jsonStr := string(data)

	assert.Contains(t, jsonStr, `"pattern"`)
	assert.Contains(t, jsonStr, "ns|us|µs|ms|s|m|h")
}

func TestGenerator_HasValidReferences(t *testing.T) {
	gen := NewGenerator()

	data, err := gen.Generate()
	require.NoError(t, err)

	jsonStr := string(data)

	assert.Contains(t, jsonStr, "$ref")
	assert.Regexp(t, `"\$ref":\s*"#/\$defs/`, jsonStr)
}

func BenchmarkGenerator_Generate(b *testing.B) {
	gen := NewGenerator()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		gen.Generate()
	}
}

func BenchmarkToSnakeCase(b *testing.B) {
	inputs := []string{
		"OAuthConfig",
		"SimpleWord",
		"CamelCase",
		"XMLParser",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		toSnakeCase(inputs[i%len(inputs)])
	}
}
