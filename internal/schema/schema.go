// Package schema provides JSON Schema generation for the gateway
// configuration file.
package schema

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/your-org/gateway/internal/config"
)

// Generator generates the JSON schema for the configuration file.
type Generator struct {
	reflector *jsonschema.Reflector
}

// NewGenerator creates a new schema generator.
func NewGenerator() *Generator {
	r := &jsonschema.Reflector{
		ExpandedStruct: false,
		// Only fields tagged jsonschema:"required" are required; the
		// loader fills everything else with defaults.
		RequiredFromJSONSchemaTags: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(time.Duration(0)) {
				return &jsonschema.Schema{
					Type:        "string",
					Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
					Description: "Duration string (e.g., '30s', '5m', '1h')",
					Examples:    []interface{}{"10s", "5m", "1h", "30s"},
				}
			}
			return nil
		},
	}

	return &Generator{reflector: r}
}

// Generate produces the indented JSON schema for config.Config.
func (g *Generator) Generate() ([]byte, error) {
	schema := g.reflector.Reflect(&config.Config{})
	g.processSchema(schema)

	schema.Title = "Gateway Configuration"
	schema.Description = "Static gateway configuration loaded at startup.\n\n" +
		"Routes, clusters, and route policies are not configured here: they\n" +
		"live in the database and are managed through the admin API."
	schema.ID = "https://github.com/your-org/gateway/schemas/gateway.schema.json"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, err
	}

	return []byte(g.postProcessJSON(string(data))), nil
}

// processSchema recursively processes schema definitions.
func (g *Generator) processSchema(schema *jsonschema.Schema) {
	if schema == nil {
		return
	}

	if schema.Definitions != nil {
		for _, def := range schema.Definitions {
			g.processSchemaProperties(def)
		}
	}

	g.processSchemaProperties(schema)
}

func (g *Generator) processSchemaProperties(schema *jsonschema.Schema) {
	if schema == nil || schema.Properties == nil {
		return
	}

	newProps := jsonschema.NewProperties()
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		key := pair.Key
		value := pair.Value

		snakeKey := toSnakeCase(key)
		newProps.Set(snakeKey, value)

		if value != nil {
			g.processSchemaProperties(value)
		}
	}
	schema.Properties = newProps

	if len(schema.Required) > 0 {
		newRequired := make([]string, len(schema.Required))
		for i, req := range schema.Required {
			newRequired[i] = toSnakeCase(req)
		}
		schema.Required = newRequired
	}
}

// postProcessJSON fixes PascalCase definition references in the JSON.
func (g *Generator) postProcessJSON(jsonStr string) string {
	result := jsonStr

	for _, name := range configTypeNames() {
		snake := toSnakeCase(name)
		result = strings.ReplaceAll(result, `"#/$defs/`+name+`"`, `"#/$defs/`+snake+`"`)
		result = strings.ReplaceAll(result, `"`+name+`":`, `"`+snake+`":`)
	}

	// Logging config lives in an external package.
	result = strings.ReplaceAll(result,
		`"#/$defs/github.com/your-org/gateway/pkg/logger.Config"`,
		`"#/$defs/logger_config"`)
	result = strings.ReplaceAll(result,
		`"github.com/your-org/gateway/pkg/logger.Config":`,
		`"logger_config":`)

	return result
}

func configTypeNames() []string {
	return []string{
		"Config", "ServerConfig", "DatabaseConfig", "RedisConfig",
		"OAuthConfig", "CookieConfig", "SessionConfig", "DiscoveryConfig",
		"BrokerConfig", "CORSConfig", "MetricsConfig", "AuditConfig",
	}
}

// toSnakeCase converts PascalCase/camelCase to snake_case. Initialisms
// like TTL, URL, and ID are handled explicitly.
func toSnakeCase(s string) string {
	special := map[string]string{
		"OAuthConfig":   "oauth_config",
		"CORSConfig":    "cors_config",
		"OAuth":         "oauth",
		"CORS":          "cors",
		"TransientTTL":  "transient_ttl",
		"CacheTTL":      "cache_ttl",
		"HTTPTimeout":   "http_timeout",
		"RedirectURI":   "redirect_uri",
		"ClientID":      "client_id",
		"TTL":           "ttl",
		"URL":           "url",
		"URI":           "uri",
		"ID":            "id",
		"DB":            "db",
	}

	if val, ok := special[s]; ok {
		return val
	}

	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(s[i-1])
			if prev >= 'a' && prev <= 'z' {
				result.WriteByte('_')
			} else if i+1 < len(s) {
				next := rune(s[i+1])
				if next >= 'a' && next <= 'z' && prev >= 'A' && prev <= 'Z' {
					result.WriteByte('_')
				}
			}
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32)
		} else {
			result.WriteRune(r)
		}
	}

	return result.String()
}
