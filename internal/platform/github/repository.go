package github

import (
	"context"
	"fmt"
	"strings"

	gh "github.com/google/go-github/github"

	"github.com/imamik/fluxtenancy/internal/provisioning"
)

// CreateRepository returns the existing repository when the adopt policy allows it,
// and creates it otherwise.
func (c *Client) CreateRepository(ctx context.Context, spec RepositorySpec) (*Repository, provisioning.Outcome, error) {
	existing, resp, err := c.getRepository(ctx, spec.Name)
	switch {
	case err == nil:
		return c.adopt(existing, spec)
	case !isNotFound(resp):
		return nil, provisioning.OutcomeFailed, fmt.Errorf("failed to get repository %s/%s: %w", c.owner, spec.Name, err)
	}

	isOrg, err := c.ownerIsOrg(ctx)
	if err != nil {
		return nil, provisioning.OutcomeFailed, err
	}
	org := ""
	if isOrg {
		org = c.owner
	}

	description := spec.Description
	if description == "" {
		description = ManagedMarker
	} else if !strings.Contains(description, ManagedMarker) {
		description += " (" + ManagedMarker + ")"
	}

	created, _, err := c.gh.Repositories.Create(ctx, org, &gh.Repository{
		Name:        gh.String(spec.Name),
		Description: gh.String(description),
		Private:     gh.Bool(spec.Private),
		AutoInit:    gh.Bool(spec.AutoInit),
	})
	if err != nil {
		return nil, provisioning.OutcomeFailed, fmt.Errorf("failed to create repository %s/%s: %w", c.owner, spec.Name, err)
	}
	return toRepository(created), provisioning.OutcomeCreated, nil
}

func (c *Client) adopt(existing *gh.Repository, spec RepositorySpec) (*Repository, provisioning.Outcome, error) {
	managed := strings.Contains(existing.GetDescription(), ManagedMarker)

	switch {
	case c.policy == AdoptAlways && !managed:
		return toRepository(existing), provisioning.OutcomeAdopted, nil
	case c.policy != AdoptNever && managed:
		return toRepository(existing), provisioning.OutcomeUnchanged, nil
	default:
		return nil, provisioning.OutcomeFailed, fmt.Errorf("%w: repository %s/%s (adopt policy %q)",
			provisioning.ErrAlreadyExists, c.owner, spec.Name, c.policy)
	}
}

// SetDefaultBranch makes branch the repository's default branch.
func (c *Client) SetDefaultBranch(ctx context.Context, repo, branch string) (provisioning.Outcome, error) {
	current, _, err := c.getRepository(ctx, repo)
	if err != nil {
		return provisioning.OutcomeFailed, fmt.Errorf("failed to get repository %s/%s: %w", c.owner, repo, err)
	}
	if current.GetDefaultBranch() == branch {
		return provisioning.OutcomeUnchanged, nil
	}

	_, err = c.call(ctx, func(ctx context.Context) (*gh.Response, error) {
		_, resp, err := c.gh.Repositories.Edit(ctx, c.owner, repo, &gh.Repository{
			Name:          gh.String(repo),
			DefaultBranch: gh.String(branch),
		})
		return resp, err
	})
	if err != nil {
		return provisioning.OutcomeFailed, fmt.Errorf("failed to set default branch of %s/%s to %s: %w", c.owner, repo, branch, err)
	}
	return provisioning.OutcomeUpdated, nil
}

func (c *Client) getRepository(ctx context.Context, name string) (*gh.Repository, *gh.Response, error) {
	var repo *gh.Repository
	resp, err := c.call(ctx, func(ctx context.Context) (*gh.Response, error) {
		var resp *gh.Response
		var err error
		repo, resp, err = c.gh.Repositories.Get(ctx, c.owner, name)
		return resp, err
	})
	return repo, resp, err
}
