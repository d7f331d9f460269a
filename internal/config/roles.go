package config

import "fmt"

// Role is an abstract crew responsibility, decoupled from the provider
// that backs it.
type Role string

const (
	RoleArchitect Role = "architect"
	RoleDeveloper Role = "developer"
	RoleTester    Role = "tester"
)

// AllRoles lists all crew roles in pipeline order.
var AllRoles = []Role{RoleArchitect, RoleDeveloper, RoleTester}

// ValidProviders lists all supported model providers.
var ValidProviders = []string{"openai", "google", "anthropic"}

func isValidProvider(name string) bool {
	for _, p := range ValidProviders {
		if name == p {
			return true
		}
	}
	return false
}

// ProviderProfile is the resolved backend for one role.
type ProviderProfile struct {
	Provider string
	Model    string
	APIKey   string
}

// String renders the profile without the key, for display and logs.
func (p ProviderProfile) String() string {
	return fmt.Sprintf("%s (Model: %s)", p.Provider, p.Model)
}

// RoleProvider resolves a role to its provider profile. Pure lookup
// over the loaded configuration; it never touches the environment.
func (c *Config) RoleProvider(role Role) (ProviderProfile, error) {
	var providerName string
	switch role {
	case RoleArchitect:
		providerName = c.Roles.Architect
	case RoleDeveloper:
		providerName = c.Roles.Developer
	case RoleTester:
		providerName = c.Roles.Tester
	default:
		return ProviderProfile{}, fmt.Errorf("unknown role: %s", role)
	}

	switch providerName {
	case "openai":
		return ProviderProfile{
			Provider: "openai",
			Model:    c.Providers.OpenAI.Model,
			APIKey:   c.Providers.OpenAI.APIKey,
		}, nil
	case "google":
		return ProviderProfile{
			Provider: "google",
			Model:    c.Providers.Google.Model,
			APIKey:   c.Providers.Google.APIKey,
		}, nil
	case "anthropic":
		return ProviderProfile{
			Provider: "anthropic",
			Model:    c.Providers.Anthropic.Model,
			APIKey:   c.Providers.Anthropic.APIKey,
		}, nil
	default:
		return ProviderProfile{}, fmt.Errorf("invalid provider for role %s: %q (valid: %v)",
			role, providerName, ValidProviders)
	}
}

// RoleAssignments resolves every role in pipeline order, for display.
func (c *Config) RoleAssignments() ([]RoleAssignment, error) {
	assignments := make([]RoleAssignment, 0, len(AllRoles))
	for _, role := range AllRoles {
		profile, err := c.RoleProvider(role)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, RoleAssignment{Role: role, Profile: profile})
	}
	return assignments, nil
}

// RoleAssignment pairs a role with its resolved provider.
type RoleAssignment struct {
	Role    Role
	Profile ProviderProfile
}
