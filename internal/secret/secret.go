// Package secret resolves credential values that may be given inline, through
// environment variables, or as secretref:<provider>:<ref> references.
package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// RefPrefix marks a value as a secret reference.
const RefPrefix = "secretref:"

// Provider resolves secrets by reference string. Implementations must not
// log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// Resolver resolves configuration values using registered providers.
type Resolver struct {
	providers map[string]Provider
}

// NewResolver creates a resolver with the given providers.
func NewResolver(providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider)}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// NewDefaultResolver returns a resolver with the env and file providers.
func NewDefaultResolver() *Resolver {
	return NewResolver(EnvProvider{}, FileProvider{})
}

// Resolve expands ${VAR} references in value and, if the result is a secret
// reference, resolves it through its provider. Empty resolved secrets are errors.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}

	providerName, ref, ok := ParseRef(expanded)
	if !ok {
		if strings.HasPrefix(expanded, RefPrefix) {
			return "", fmt.Errorf("malformed secret reference, expected %s<provider>:<ref>", RefPrefix)
		}
		return expanded, nil
	}

	provider, ok := r.providers[providerName]
	if !ok {
		return "", fmt.Errorf("secret provider %q is not registered", providerName)
	}
	resolved, err := provider.Resolve(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("resolve %s secret: %w", providerName, err)
	}
	if resolved == "" {
		return "", fmt.Errorf("secret provider %q returned empty value", providerName)
	}
	return resolved, nil
}

// IsRef reports whether value is a secret reference.
func IsRef(value string) bool {
	_, _, ok := ParseRef(value)
	return ok
}

// ParseRef splits secretref:<provider>:<ref>.
func ParseRef(value string) (provider, ref string, ok bool) {
	if !strings.HasPrefix(value, RefPrefix) {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(value, RefPrefix), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands $VAR and ${VAR}. A ${VAR} naming an unset variable
// is an error. $$ emits a literal $.
func ExpandEnvStrict(s string) (string, error) {
	const dollar = "\x00MSP_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollar)

	var missing []string
	seen := make(map[string]bool)
	for _, match := range envVarPattern.FindAllStringSubmatch(s, -1) {
		key := match[1]
		if _, ok := os.LookupEnv(key); !ok && !seen[key] {
			seen[key] = true
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	s = os.ExpandEnv(s)
	return strings.ReplaceAll(s, dollar, "$"), nil
}

// EnvProvider reads secrets from environment variables: secretref:env:NAME.
type EnvProvider struct{}

// Name implements Provider.
func (EnvProvider) Name() string { return "env" }

// Resolve implements Provider.
func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("environment variable %s is not set", ref)
	}
	return v, nil
}

// FileProvider reads secrets from files, trimming surrounding whitespace:
// secretref:file:/run/secrets/n9e_token.
type FileProvider struct{}

// Name implements Provider.
func (FileProvider) Name() string { return "file" }

// Resolve implements Provider.
func (FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	data, err := os.ReadFile(ref)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("secret file %s does not exist", ref)
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
