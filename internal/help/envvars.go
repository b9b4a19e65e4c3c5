package help

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
)

// EnvVar documents one configuration knob reachable through the
// environment, e.g. GATEWAY_SESSION_IDLE_TIMEOUT for
// session.idle_timeout.
type EnvVar struct {
	Name        string
	ConfigPath  string
	Type        string
	Description string
	Default     string
	Required    bool
}

// EnvVarExtractor walks a config struct and derives the environment
// variables viper will honor for it. Config paths come from
// mapstructure tags, documentation from jsonschema tags.
type EnvVarExtractor struct {
	prefix string
	vars   []EnvVar
}

// NewEnvVarExtractor creates an extractor for the given prefix.
func NewEnvVarExtractor(prefix string) *EnvVarExtractor {
	return &EnvVarExtractor{prefix: prefix}
}

// Extract returns the environment variables for cfg, sorted by name.
func (e *EnvVarExtractor) Extract(cfg interface{}) []EnvVar {
	e.vars = nil
	e.walk(reflect.TypeOf(cfg), "")

	sort.Slice(e.vars, func(i, j int) bool {
		return e.vars[i].Name < e.vars[j].Name
	})
	return e.vars
}

func (e *EnvVarExtractor) walk(t reflect.Type, path string) {
	if t.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		key := field.Tag.Get("mapstructure")
		if key == "" || key == "-" {
			continue
		}

		configPath := key
		if path != "" {
			configPath = path + "." + key
		}

		// Config sections are plain nested structs; time.Duration and
		// friends are leaves.
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() != "time" {
			e.walk(field.Type, configPath)
			continue
		}

		schema := field.Tag.Get("jsonschema")
		e.vars = append(e.vars, EnvVar{
			Name:        e.envName(configPath),
			ConfigPath:  configPath,
			Type:        typeName(field.Type),
			Description: schemaValue(schema, "description"),
			Default:     schemaValue(schema, "default"),
			Required:    strings.Contains(schema, "required"),
		})
	}
}

// envName maps a config path to its environment variable,
// e.g. cookies.encryption_key -> GATEWAY_COOKIES_ENCRYPTION_KEY.
func (e *EnvVarExtractor) envName(configPath string) string {
	name := strings.ToUpper(strings.ReplaceAll(configPath, ".", "_"))
	if e.prefix == "" {
		return name
	}
	return e.prefix + "_" + name
}

// schemaValue pulls one key=value entry out of a jsonschema tag.
// Escaped commas inside a value are unescaped.
func schemaValue(tag, key string) string {
	pattern := regexp.MustCompile(key + `=((?:\\,|[^,])*)`)
	m := pattern.FindStringSubmatch(tag)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(m[1], `\,`, ","))
}

// typeName renders the type the operator should provide, not the Go
// spelling. Durations use the 30m / 8h notation viper parses.
func typeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Bool:
		return "bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if t.String() == "time.Duration" {
			return "duration"
		}
		return "int"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "uint"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.String:
		return "string"
	case reflect.Slice:
		return "[]" + typeName(t.Elem())
	default:
		return t.String()
	}
}

// FormatEnvVarsGrouped renders variables grouped by their top-level
// config section, in first-seen order.
func FormatEnvVarsGrouped(vars []EnvVar) string {
	if len(vars) == 0 {
		return ""
	}

	groups := make(map[string][]EnvVar)
	var order []string
	for _, v := range vars {
		section := strings.Split(v.ConfigPath, ".")[0]
		if _, seen := groups[section]; !seen {
			order = append(order, section)
		}
		groups[section] = append(groups[section], v)
	}

	var sb strings.Builder
	for _, section := range order {
		title := section
		if title != "" {
			title = strings.ToUpper(title[:1]) + title[1:]
		}
		sb.WriteString(fmt.Sprintf("\n    [%s]\n", title))

		for _, v := range groups[section] {
			sb.WriteString(fmt.Sprintf("      %s\n", v.Name))
			if v.Description != "" {
				for _, line := range strings.Split(wrapText(v.Description, 70), "\n") {
					sb.WriteString(fmt.Sprintf("        %s\n", line))
				}
			}
			if v.Default != "" {
				sb.WriteString(fmt.Sprintf("        Default: %s\n", v.Default))
			}
			if v.Required {
				sb.WriteString("        Required\n")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// wrapText word-wraps text to the given width.
func wrapText(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var sb strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		if i > 0 {
			if lineLen+1+len(word) > width {
				sb.WriteString("\n")
				lineLen = 0
			} else {
				sb.WriteString(" ")
				lineLen++
			}
		}
		sb.WriteString(word)
		lineLen += len(word)
	}
	return sb.String()
}
