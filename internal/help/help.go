package help

import (
	"fmt"
	"strings"
)

// AppInfo contains application metadata.
type AppInfo struct {
	Name        string
	Description string
	Version     string
	BuildTime   string
	GitCommit   string
	DocsURL     string
}

// Generator generates help text for the application.
type Generator struct {
	appInfo      AppInfo
	envVarPrefix string
	envVars      []EnvVar
}

// NewGenerator creates a new help generator.
func NewGenerator(appInfo AppInfo, envVarPrefix string) *Generator {
	return &Generator{
		appInfo:      appInfo,
		envVarPrefix: envVarPrefix,
	}
}

// SetEnvVars sets the environment variables extracted from config.
func (g *Generator) SetEnvVars(vars []EnvVar) {
	g.envVars = vars
}

// ExtractEnvVars extracts environment variables from a config struct.
func (g *Generator) ExtractEnvVars(cfg interface{}) {
	extractor := NewEnvVarExtractor(g.envVarPrefix)
	g.envVars = extractor.Extract(cfg)
}

// PrintVersion prints version information.
func (g *Generator) PrintVersion() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s\n", g.appInfo.Name, g.appInfo.Version))
	sb.WriteString(fmt.Sprintf("  Build time: %s\n", g.appInfo.BuildTime))
	sb.WriteString(fmt.Sprintf("  Git commit: %s\n", g.appInfo.GitCommit))
	return sb.String()
}

// PrintUsage prints basic usage information.
func (g *Generator) PrintUsage() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Usage: %s [OPTIONS]\n\n", g.appInfo.Name))
	sb.WriteString(fmt.Sprintf("%s\n\n", g.appInfo.Description))
	sb.WriteString("Options:\n")
	sb.WriteString("  See below for available flags.\n\n")
	sb.WriteString("Use --help for detailed configuration documentation\n")
	return sb.String()
}

// PrintEnvVars prints only the environment variables documentation.
func (g *Generator) PrintEnvVars() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("\n%s - Environment Variables\n", strings.ToUpper(g.appInfo.Name)))
	sb.WriteString(strings.Repeat("=", 80) + "\n\n")

	sb.WriteString(fmt.Sprintf("Prefix: %s\n", g.envVarPrefix))
	sb.WriteString(fmt.Sprintf("Total variables: %d\n\n", len(g.envVars)))

	sb.WriteString("Pattern: " + g.envVarPrefix + "_<SECTION>_<KEY>\n\n")

	sb.WriteString("Notes:\n")
	sb.WriteString("  - All keys are converted to UPPER_SNAKE_CASE\n")
	sb.WriteString("  - Nested keys use underscore as separator\n")
	sb.WriteString("  - Boolean values: true, false, 1, 0\n")
	sb.WriteString("  - Duration values: 10s, 5m, 1h, 100ms\n\n")

	sb.WriteString(strings.Repeat("-", 80) + "\n")

	if len(g.envVars) > 0 {
		sb.WriteString(FormatEnvVarsGrouped(g.envVars))
	}

	return sb.String()
}

// PrintExtendedHelp prints detailed help with all configuration options.
func (g *Generator) PrintExtendedHelp() string {
	var sb strings.Builder

	sb.WriteString(g.header())
	sb.WriteString("\n")

	sb.WriteString("DESCRIPTION\n")
	sb.WriteString(fmt.Sprintf("    %s\n\n", g.appInfo.Description))

	sb.WriteString("USAGE\n")
	sb.WriteString(fmt.Sprintf("    %s [OPTIONS]\n\n", g.appInfo.Name))

	sb.WriteString("OPTIONS\n")
	sb.WriteString(g.optionsSection())
	sb.WriteString("\n")

	sb.WriteString(g.separator())

	sb.WriteString("CONFIGURATION METHODS\n\n")
	sb.WriteString(g.configMethodsSection())
	sb.WriteString("\n")

	sb.WriteString(g.separator())

	sb.WriteString("ENVIRONMENT VARIABLES\n\n")
	sb.WriteString("    Pattern: " + g.envVarPrefix + "_<SECTION>_<KEY>\n\n")
	sb.WriteString("    Notes:\n")
	sb.WriteString("    - All keys are converted to UPPER_SNAKE_CASE\n")
	sb.WriteString("    - Nested keys use underscore as separator\n")
	sb.WriteString("    - Boolean values: true, false, 1, 0\n")
	sb.WriteString("    - Duration values: 10s, 5m, 1h, 100ms\n\n")
	sb.WriteString(fmt.Sprintf("    Use --help-env to see all %d environment variables with descriptions.\n\n", len(g.envVars)))

	sb.WriteString(g.separator())

	sb.WriteString("SECRETS MANAGEMENT\n\n")
	sb.WriteString(g.secretsSection())
	sb.WriteString("\n")

	sb.WriteString(g.separator())

	sb.WriteString("REQUEST SURFACES\n\n")
	sb.WriteString(g.surfacesSection())
	sb.WriteString("\n")

	sb.WriteString(g.separator())

	sb.WriteString("ROUTE SECURITY TYPES\n\n")
	sb.WriteString(g.securityTypesSection())
	sb.WriteString("\n")

	sb.WriteString(g.separator())

	sb.WriteString("JSON SCHEMA GENERATION\n\n")
	sb.WriteString(g.schemaGenerationSection())
	sb.WriteString("\n")

	sb.WriteString(g.separator())

	sb.WriteString("EXAMPLES\n\n")
	sb.WriteString(g.examplesSection())
	sb.WriteString("\n")

	sb.WriteString(g.separator())

	sb.WriteString("FILES\n\n")
	sb.WriteString(g.filesSection())
	sb.WriteString("\n")

	sb.WriteString("SIGNALS\n\n")
	sb.WriteString("    SIGTERM, SIGINT           Graceful shutdown (configurable timeout)\n\n")

	sb.WriteString("HEALTH ENDPOINTS\n\n")
	sb.WriteString("    GET /health               Overall health status\n")
	sb.WriteString("    GET /ready                Readiness probe\n")
	sb.WriteString("    GET /metrics              Prometheus metrics\n\n")

	sb.WriteString(g.separator())

	sb.WriteString("VERSION\n")
	sb.WriteString(fmt.Sprintf("    %s (%s)\n", g.appInfo.Version, g.appInfo.GitCommit))
	sb.WriteString(fmt.Sprintf("    Built: %s\n\n", g.appInfo.BuildTime))

	sb.WriteString("DOCUMENTATION\n")
	sb.WriteString(fmt.Sprintf("    %s\n\n", g.appInfo.DocsURL))

	return sb.String()
}

// header generates the header box.
func (g *Generator) header() string {
	width := 80
	title := strings.ToUpper(g.appInfo.Name)
	subtitle := g.appInfo.Description

	if len(subtitle) > width-4 {
		subtitle = subtitle[:width-7] + "..."
	}

	var sb strings.Builder
	sb.WriteString("\n")

	sb.WriteString("+" + strings.Repeat("-", width-2) + "+\n")

	titlePadding := (width - 2 - len(title)) / 2
	sb.WriteString("|" + strings.Repeat(" ", titlePadding) + title + strings.Repeat(" ", width-2-titlePadding-len(title)) + "|\n")

	subtitlePadding := (width - 2 - len(subtitle)) / 2
	sb.WriteString("|" + strings.Repeat(" ", subtitlePadding) + subtitle + strings.Repeat(" ", width-2-subtitlePadding-len(subtitle)) + "|\n")

	sb.WriteString("+" + strings.Repeat("-", width-2) + "+\n")

	return sb.String()
}

// separator generates a section separator line.
func (g *Generator) separator() string {
	return strings.Repeat("-", 80) + "\n\n"
}

// optionsSection generates the options section.
func (g *Generator) optionsSection() string {
	return `    --config <path>       Path to YAML configuration file
    --version             Show version information
    --help, -h            Show this help message
    --help-env            Show all environment variables with descriptions
`
}

// configMethodsSection generates the configuration methods section.
func (g *Generator) configMethodsSection() string {
	return fmt.Sprintf(`    Configuration can be provided through multiple sources (in order of priority):

    1. ENVIRONMENT VARIABLES
       Override config file values.

       Pattern: %s_<SECTION>_<KEY>

       Examples:
         %s_SERVER_ADDR=:8080
         %s_OAUTH_CLIENT_ID=gateway
         %s_SESSION_IDLE_TIMEOUT=30m
         %s_REDIS_ENABLED=true
         %s_LOGGING_LEVEL=debug

    2. CONFIGURATION FILE (YAML)
       Base configuration.

       Default paths searched:
         ./gateway.yaml
         ./configs/gateway.yaml
         /etc/gateway/gateway.yaml

    Routes, clusters, and route policies are not part of this file:
    they live in the database and are managed through the admin API.
`, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix)
}

// surfacesSection describes the listener's request surfaces.
func (g *Generator) surfacesSection() string {
	return `    1. AUTH SURFACE (/oauth/*)
       Browser-facing login endpoints. The authorization code flow runs
       server-side; the browser only ever holds an encrypted session cookie.

       Endpoints:
         POST /oauth/login/start   - Begin the authorization code flow
         GET  /oauth/callback      - IdP redirect target
         POST /oauth/login/end     - SPA-driven flow completion
         GET  /oauth/isloggedin    - Session status
         POST /oauth/logout        - Revoke the session

    2. ADMIN SURFACE (/admin/*)
       Management API protected by basic auth against stored client
       credentials. Routing table mutations reload the snapshot in place.

    3. PROXY SURFACE (everything else)
       Requests with a valid session are forwarded to the matched
       upstream with a brokered or session token attached.

       Flow: Browser -> Gateway -> Upstream
`
}

// securityTypesSection describes the per-route credential strategies.
func (g *Generator) securityTypesSection() string {
	return `    session           Forward the user's own IdP access token.
    client_credentials  Broker a service token via the client_credentials grant.
    token_exchange    Broker a delegation token via RFC 8693 token exchange.
    self_signed       Mint a locally signed HS256 token (broker.signing_key).
    none              Forward without credentials.

    The security type is set per route through the admin API.
`
}

// schemaGenerationSection generates the JSON schema generation section.
func (g *Generator) schemaGenerationSection() string {
	return `    Generate the JSON schema for IDE autocomplete and validation:

    go run ./cmd/schemagen > configs/gateway.schema.json

    Use in YAML files (VS Code, JetBrains):
    # yaml-language-server: $schema=./gateway.schema.json
`
}

// examplesSection generates the examples section.
func (g *Generator) examplesSection() string {
	return fmt.Sprintf(`    # Start with config file
    %s --config /etc/gateway/gateway.yaml

    # Override with environment variables
    %s_SERVER_ADDR=:9090 \
    %s_LOGGING_LEVEL=debug \
    %s --config gateway.yaml

    # Docker with environment variables
    docker run -e %s_OAUTH_CLIENT_ID=gateway \
               -e %s_OAUTH_ISSUER=https://idp.example.com/realms/main \
               %s:latest
`, g.appInfo.Name, g.envVarPrefix, g.envVarPrefix, g.appInfo.Name,
		g.envVarPrefix, g.envVarPrefix, g.appInfo.Name)
}

// filesSection generates the files section.
func (g *Generator) filesSection() string {
	return `    /etc/gateway/gateway.yaml Default configuration file
    gateway.db                Default SQLite database (routes, users, sessions)
`
}

// secretsSection generates the secrets management section.
func (g *Generator) secretsSection() string {
	return fmt.Sprintf(`    NEVER store secrets in configuration files! Use environment variables instead.

    SENSITIVE ENVIRONMENT VARIABLES:

      %s_COOKIES_ENCRYPTION_KEY   32-byte AES key for cookie encryption
      %s_OAUTH_CLIENT_SECRET      OAuth client secret (confidential clients)
      %s_BROKER_SIGNING_KEY       HS256 secret for self-signed upstream tokens
      %s_REDIS_PASSWORD           Redis password for the token cache

    SECURITY BEST PRACTICES:

    1. Use Kubernetes secrets mounted as env vars:
       env:
         - name: %s_COOKIES_ENCRYPTION_KEY
           valueFrom:
             secretKeyRef:
               name: gateway-secrets
               key: cookie-key

    2. Use HashiCorp Vault or similar secret managers

    3. Rotate secrets regularly and monitor for unauthorized access
`, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix)
}
