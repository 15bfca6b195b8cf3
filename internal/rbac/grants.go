package rbac

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

//go:embed grants.yaml
var defaultGrantsYAML []byte

// Grants maps role -> resource -> "action:scope" -> attribute list.
type Grants map[string]map[string]map[string][]string

type grantsFile struct {
	Grants Grants `yaml:"grants"`
}

// DefaultGrants returns the grant table compiled into the binary.
func DefaultGrants() (Grants, error) {
	var f grantsFile
	if err := cleanenv.ParseYAML(bytes.NewReader(defaultGrantsYAML), &f); err != nil {
		return nil, fmt.Errorf("failed to parse embedded grants: %w", err)
	}
	if err := f.Grants.Validate(); err != nil {
		return nil, err
	}
	return f.Grants, nil
}

// LoadGrantsFile reads a grant table from a YAML file.
func LoadGrantsFile(path string) (Grants, error) {
	var f grantsFile
	if err := cleanenv.ReadConfig(path, &f); err != nil {
		return nil, fmt.Errorf("failed to read grants file %s: %w", path, err)
	}
	if err := f.Grants.Validate(); err != nil {
		return nil, fmt.Errorf("grants file %s: %w", path, err)
	}
	return f.Grants, nil
}

// Validate checks that every key is a known action:scope pair and that no attribute is blank.
func (g Grants) Validate() error {
	if len(g) == 0 {
		return fmt.Errorf("grant table is empty")
	}
	for role, resources := range g {
		for resource, actions := range resources {
			for key, attrs := range actions {
				if _, _, err := splitActionScope(key); err != nil {
					return fmt.Errorf("role %q resource %q: %w", role, resource, err)
				}
				for _, attr := range attrs {
					name := strings.TrimPrefix(attr, negationPrefix)
					if strings.TrimSpace(name) == "" {
						return fmt.Errorf("role %q resource %q %s: blank attribute", role, resource, key)
					}
				}
			}
		}
	}
	return nil
}

func splitActionScope(key string) (string, string, error) {
	action, scope, ok := strings.Cut(key, ":")
	if !ok {
		return "", "", fmt.Errorf("grant key %q is not action:scope", key)
	}
	switch action {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete:
	default:
		return "", "", fmt.Errorf("unknown action %q", action)
	}
	if scope != ScopeOwn && scope != ScopeAny {
		return "", "", fmt.Errorf("unknown scope %q", scope)
	}
	return action, scope, nil
}
