package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/github"

	"github.com/imamik/fluxtenancy/internal/provisioning"
)

// GrantTeamAccess gives team the permission on repo. The team is matched by slug, then by name.
func (c *Client) GrantTeamAccess(ctx context.Context, repo, team, permission string) (provisioning.Outcome, error) {
	t, err := c.findTeam(ctx, team)
	if err != nil {
		return provisioning.OutcomeFailed, err
	}

	var current *gh.Repository
	resp, err := c.call(ctx, func(ctx context.Context) (*gh.Response, error) {
		var resp *gh.Response
		var err error
		current, resp, err = c.gh.Teams.IsTeamRepo(ctx, t.GetID(), c.owner, repo)
		return resp, err
	})
	switch {
	case err == nil:
		if current.GetPermissions()[permission] {
			return provisioning.OutcomeUnchanged, nil
		}
	case !isNotFound(resp):
		return provisioning.OutcomeFailed, fmt.Errorf("failed to check team %s access to %s/%s: %w", team, c.owner, repo, err)
	}

	_, err = c.call(ctx, func(ctx context.Context) (*gh.Response, error) {
		return c.gh.Teams.AddTeamRepo(ctx, t.GetID(), c.owner, repo, &gh.TeamAddTeamRepoOptions{
			Permission: permission,
		})
	})
	if err != nil {
		return provisioning.OutcomeFailed, fmt.Errorf("failed to grant team %s %s access to %s/%s: %w", team, permission, c.owner, repo, err)
	}

	if current != nil {
		return provisioning.OutcomeUpdated, nil
	}
	return provisioning.OutcomeCreated, nil
}

func (c *Client) findTeam(ctx context.Context, name string) (*gh.Team, error) {
	isOrg, err := c.ownerIsOrg(ctx)
	if err != nil {
		return nil, err
	}
	if !isOrg {
		return nil, fmt.Errorf("%w: %s is a user account and has no teams", provisioning.ErrTeamNotFound, c.owner)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.teams == nil {
		teams := make(map[string]*gh.Team)
		opt := &gh.ListOptions{PerPage: 100}
		for {
			var page []*gh.Team
			resp, err := c.call(ctx, func(ctx context.Context) (*gh.Response, error) {
				var resp *gh.Response
				var err error
				page, resp, err = c.gh.Teams.ListTeams(ctx, c.owner, opt)
				return resp, err
			})
			if err != nil {
				return nil, fmt.Errorf("failed to list teams of %s: %w", c.owner, err)
			}
			for _, t := range page {
				teams[t.GetSlug()] = t
			}
			if resp == nil || resp.NextPage == 0 {
				break
			}
			opt.Page = resp.NextPage
		}
		c.teams = teams
	}

	if t, ok := c.teams[name]; ok {
		return t, nil
	}
	for _, t := range c.teams {
		if t.GetName() == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s in organization %s", provisioning.ErrTeamNotFound, name, c.owner)
}
