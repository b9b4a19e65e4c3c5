package help

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/gateway/internal/config"
)

type sampleSession struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout" jsonschema:"description=Sliding inactivity timeout.,default=30m"`
	internal    string        `mapstructure:"internal"`
	Skipped     string        `mapstructure:"-"`
	Untagged    string
}

type sampleConfig struct {
	Addr    string        `mapstructure:"addr" jsonschema:"description=Listen address.,default=:8080"`
	Secret  string        `mapstructure:"secret" jsonschema:"description=Shared secret.,required"`
	Origins []string      `mapstructure:"origins" jsonschema:"description=Allowed origins."`
	Session sampleSession `mapstructure:"session"`
}

func TestNewEnvVarExtractor(t *testing.T) {
	e := NewEnvVarExtractor("GATEWAY")
	require.NotNil(t, e)
	assert.Equal(t, "GATEWAY", e.prefix)
}

func TestExtract(t *testing.T) {
	vars := NewEnvVarExtractor("GATEWAY").Extract(sampleConfig{})

	byName := make(map[string]EnvVar, len(vars))
	for _, v := range vars {
		byName[v.Name] = v
	}

	addr, ok := byName["GATEWAY_ADDR"]
	require.True(t, ok)
	assert.Equal(t, "addr", addr.ConfigPath)
	assert.Equal(t, "string", addr.Type)
	assert.Equal(t, "Listen address.", addr.Description)
	assert.Equal(t, ":8080", addr.Default)
	assert.False(t, addr.Required)

	secret, ok := byName["GATEWAY_SECRET"]
	require.True(t, ok)
	assert.True(t, secret.Required)

	origins, ok := byName["GATEWAY_ORIGINS"]
	require.True(t, ok)
	assert.Equal(t, "[]string", origins.Type)

	// Nested sections flatten into dotted paths.
	idle, ok := byName["GATEWAY_SESSION_IDLE_TIMEOUT"]
	require.True(t, ok)
	assert.Equal(t, "session.idle_timeout", idle.ConfigPath)
	assert.Equal(t, "duration", idle.Type)

	// Unexported, dash-tagged, and untagged fields stay hidden.
	assert.NotContains(t, byName, "GATEWAY_SESSION_INTERNAL")
	assert.NotContains(t, byName, "GATEWAY_SESSION_SKIPPED")
	assert.NotContains(t, byName, "GATEWAY_SESSION_UNTAGGED")
}

func TestExtract_Sorted(t *testing.T) {
	vars := NewEnvVarExtractor("GATEWAY").Extract(sampleConfig{})

	for i := 1; i < len(vars); i++ {
		assert.Less(t, vars[i-1].Name, vars[i].Name)
	}
}

func TestExtract_GatewayConfig(t *testing.T) {
	vars := NewEnvVarExtractor("GATEWAY").Extract(config.Config{})
	require.NotEmpty(t, vars)

	byName := make(map[string]EnvVar, len(vars))
	for _, v := range vars {
		byName[v.Name] = v
	}

	addr, ok := byName["GATEWAY_SERVER_ADDR"]
	require.True(t, ok)
	assert.Equal(t, ":8080", addr.Default)

	key, ok := byName["GATEWAY_COOKIES_ENCRYPTION_KEY"]
	require.True(t, ok)
	assert.True(t, key.Required)

	idle, ok := byName["GATEWAY_SESSION_IDLE_TIMEOUT"]
	require.True(t, ok)
	assert.Equal(t, "duration", idle.Type)
	assert.Equal(t, "30m", idle.Default)

	origins, ok := byName["GATEWAY_CORS_ALLOWED_ORIGINS"]
	require.True(t, ok)
	assert.Equal(t, "[]string", origins.Type)

	failures, ok := byName["GATEWAY_BROKER_BREAKER_MAX_FAILURES"]
	require.True(t, ok)
	assert.Equal(t, "uint", failures.Type)
}

func TestEnvName(t *testing.T) {
	e := NewEnvVarExtractor("GATEWAY")

	tests := []struct {
		path string
		want string
	}{
		{"server.addr", "GATEWAY_SERVER_ADDR"},
		{"session.idle_timeout", "GATEWAY_SESSION_IDLE_TIMEOUT"},
		{"cookies.encryption_key", "GATEWAY_COOKIES_ENCRYPTION_KEY"},
		{"simple", "GATEWAY_SIMPLE"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.envName(tt.path))
	}
}

func TestEnvName_NoPrefix(t *testing.T) {
	e := NewEnvVarExtractor("")
	assert.Equal(t, "SERVER_ADDR", e.envName("server.addr"))
}

func TestSchemaValue(t *testing.T) {
	tag := `description=Listen address.,default=:8080,required`

	assert.Equal(t, "Listen address.", schemaValue(tag, "description"))
	assert.Equal(t, ":8080", schemaValue(tag, "default"))
	assert.Empty(t, schemaValue(tag, "example"))
	assert.Empty(t, schemaValue("", "description"))
}

func TestSchemaValue_EscapedComma(t *testing.T) {
	tag := `description=base64\, or hex,default=x`

	assert.Equal(t, "base64, or hex", schemaValue(tag, "description"))
	assert.Equal(t, "x", schemaValue(tag, "default"))
}

func TestTypeName(t *testing.T) {
	vars := NewEnvVarExtractor("").Extract(struct {
		A bool          `mapstructure:"a"`
		B int           `mapstructure:"b"`
		C time.Duration `mapstructure:"c"`
		D string        `mapstructure:"d"`
		E []string      `mapstructure:"e"`
		F float64       `mapstructure:"f"`
		G uint32        `mapstructure:"g"`
	}{})

	types := make(map[string]string, len(vars))
	for _, v := range vars {
		types[v.ConfigPath] = v.Type
	}

	assert.Equal(t, "bool", types["a"])
	assert.Equal(t, "int", types["b"])
	assert.Equal(t, "duration", types["c"])
	assert.Equal(t, "string", types["d"])
	assert.Equal(t, "[]string", types["e"])
	assert.Equal(t, "float", types["f"])
	assert.Equal(t, "uint", types["g"])
}

func TestFormatEnvVarsGrouped(t *testing.T) {
	out := FormatEnvVarsGrouped([]EnvVar{
		{Name: "GATEWAY_SERVER_ADDR", ConfigPath: "server.addr", Type: "string", Description: "Listen address.", Default: ":8080"},
		{Name: "GATEWAY_SERVER_READ_TIMEOUT", ConfigPath: "server.read_timeout", Type: "duration", Default: "10s"},
		{Name: "GATEWAY_OAUTH_CLIENT_ID", ConfigPath: "oauth.client_id", Type: "string", Required: true},
	})

	assert.Contains(t, out, "[Server]")
	assert.Contains(t, out, "[Oauth]")
	assert.Contains(t, out, "GATEWAY_SERVER_ADDR")
	assert.Contains(t, out, "Listen address.")
	assert.Contains(t, out, "Default: :8080")
	assert.Contains(t, out, "Required")

	// Sections appear in first-seen order.
	assert.Less(t, strings.Index(out, "[Server]"), strings.Index(out, "[Oauth]"))
}

func TestFormatEnvVarsGrouped_Empty(t *testing.T) {
	assert.Empty(t, FormatEnvVarsGrouped(nil))
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, "short", wrapText("short", 20))
	assert.Equal(t, "exact", wrapText("exact", 5))

	wrapped := wrapText("one two three four five six", 9)
	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), 9)
	}
	assert.Equal(t, "one two three four five six",
		strings.ReplaceAll(wrapped, "\n", " "))
}
