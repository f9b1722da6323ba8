package config

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	k8svalidation "k8s.io/apimachinery/pkg/util/validation"

	"github.com/imamik/fluxtenancy/internal/provisioning"
	"github.com/imamik/fluxtenancy/internal/util/naming"
)

// ErrNoTenants is returned when the tenant list is empty and AllowEmptyTenants is not set.
var ErrNoTenants = errors.New("at least one tenant is required")

// githubLogin matches GitHub user and organization names.
var githubLogin = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9]|-[a-zA-Z0-9]){0,38}$`)

// Validate checks the configuration before any remote call.
// Malformed names wrap provisioning.ErrInvalidIdentifier; names that would
// derive the same resource twice wrap provisioning.ErrNameCollision.
func (c *Config) Validate() error {
	if err := c.validateIdentifiers(); err != nil {
		return fmt.Errorf("%w: %w", provisioning.ErrInvalidIdentifier, err)
	}

	if !c.AllowEmptyTenants && len(c.Tenants) == 0 {
		return ErrNoTenants
	}

	if err := validation.ValidateStruct(c,
		validation.Field(&c.AdoptPolicy, validation.In(AdoptManaged, AdoptAlways, AdoptNever)),
		nestedFields(&c.GitOps,
			validation.Field(&c.GitOps.Branch, validation.Required),
			validation.Field(&c.GitOps.Namespace, validation.Required, validation.By(dnsLabel)),
			validation.Field(&c.GitOps.SyncTargetPath, validation.Required, validation.By(relativePath)),
			validation.Field(&c.GitOps.BootstrapPath, validation.Required, validation.By(relativePath)),
		),
	); err != nil {
		return err
	}

	if err := c.validateUniqueness(); err != nil {
		return fmt.Errorf("%w: %w", provisioning.ErrNameCollision, err)
	}

	return nil
}

func (c *Config) validateIdentifiers() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Owner,
			validation.Required.Error("owner is required (set owner or "+EnvGitHubOwner+")"),
			validation.Match(githubLogin).Error("must be a valid GitHub user or organization name"),
		),
		validation.Field(&c.Tenants),
	)
}

// Validate implements validation.Validatable.
func (t Tenant) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Name, validation.Required, validation.By(dnsLabel)),
		validation.Field(&t.Namespaces),
		validation.Field(&t.GitHubTeams),
	)
}

// Validate implements validation.Validatable.
func (n NamespaceRef) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Name, validation.Required, validation.By(dnsLabel)),
	)
}

// Validate implements validation.Validatable.
func (r TeamRef) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.By(dnsLabel)),
	)
}

func (c *Config) validateUniqueness() error {
	tenants := map[string]int{}
	owners := map[string]string{}
	var problems []string

	for _, t := range c.Tenants {
		tenants[t.Name]++
		if t.Name == naming.AdminRepository {
			problems = append(problems, fmt.Sprintf("tenant name %q is reserved for the admin repository", t.Name))
		}

		if dup := duplicates(t.TeamNames()); len(dup) > 0 {
			problems = append(problems, fmt.Sprintf("tenant %q lists teams more than once [%s]", t.Name, strings.Join(dup, ",")))
		}

		seen := map[string]bool{}
		for _, ns := range t.NamespaceNames() {
			if seen[ns] {
				problems = append(problems, fmt.Sprintf("tenant %q lists namespace %q more than once", t.Name, ns))
				continue
			}
			seen[ns] = true
			if other, ok := owners[ns]; ok && other != t.Name {
				problems = append(problems, fmt.Sprintf("namespace %q is claimed by tenants %q and %q", ns, other, t.Name))
				continue
			}
			owners[ns] = t.Name
		}
	}

	var dup []string
	for name, n := range tenants {
		if n > 1 {
			dup = append(dup, name)
		}
	}
	if len(dup) > 0 {
		sort.Strings(dup)
		problems = append([]string{fmt.Sprintf("duplicate tenants are not allowed [%s]", strings.Join(dup, ","))}, problems...)
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func duplicates(values []string) []string {
	counts := map[string]int{}
	for _, v := range values {
		counts[v]++
	}
	var dup []string
	for v, n := range counts {
		if n > 1 {
			dup = append(dup, v)
		}
	}
	sort.Strings(dup)
	return dup
}

func dnsLabel(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if errs := k8svalidation.IsDNS1123Label(s); len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func relativePath(value interface{}) error {
	s, _ := value.(string)
	if strings.HasPrefix(s, "/") {
		return errors.New("must be relative to the repository root")
	}
	if strings.Contains(s, "..") {
		return errors.New("must not contain '..'")
	}
	return nil
}

// nestedFields validates fields of an embedded struct in place.
// https://github.com/go-ozzo/ozzo-validation/issues/136
func nestedFields(target interface{}, fieldRules ...*validation.FieldRules) *validation.FieldRules {
	return validation.Field(target, validation.By(func(interface{}) error {
		return validation.ValidateStruct(target, fieldRules...)
	}))
}
