package github

import (
	"context"
	"fmt"
	"strings"

	gh "github.com/google/go-github/github"

	"github.com/imamik/fluxtenancy/internal/provisioning"
)

// AddDeployKey registers spec on repo. A key with the same material and access
// is reused. Other keys with the same title are removed so the repository keeps
// one key per title, and so is the same material registered with other access,
// since GitHub accepts a key only once per repository.
func (c *Client) AddDeployKey(ctx context.Context, repo string, spec DeployKeySpec) (*DeployKey, provisioning.Outcome, error) {
	keys, err := c.listKeys(ctx, repo)
	if err != nil {
		return nil, provisioning.OutcomeFailed, err
	}

	want := keyMaterial(spec.PublicKey)
	var match *gh.Key
	var stale []*gh.Key
	for _, k := range keys {
		sameMaterial := keyMaterial(k.GetKey()) == want
		switch {
		case sameMaterial && k.GetReadOnly() == spec.ReadOnly && match == nil:
			match = k
		case sameMaterial, k.GetTitle() == spec.Title:
			stale = append(stale, k)
		}
	}

	for _, k := range stale {
		_, err := c.call(ctx, func(ctx context.Context) (*gh.Response, error) {
			return c.gh.Repositories.DeleteKey(ctx, c.owner, repo, k.GetID())
		})
		if err != nil {
			return nil, provisioning.OutcomeFailed, fmt.Errorf("failed to delete stale deploy key %d on %s/%s: %w", k.GetID(), c.owner, repo, err)
		}
	}

	if match != nil {
		outcome := provisioning.OutcomeUnchanged
		if len(stale) > 0 {
			outcome = provisioning.OutcomeUpdated
		}
		return toDeployKey(match), outcome, nil
	}

	created, _, err := c.gh.Repositories.CreateKey(ctx, c.owner, repo, &gh.Key{
		Title:    gh.String(spec.Title),
		Key:      gh.String(strings.TrimSpace(spec.PublicKey)),
		ReadOnly: gh.Bool(spec.ReadOnly),
	})
	if err != nil {
		return nil, provisioning.OutcomeFailed, fmt.Errorf("failed to add deploy key to %s/%s: %w", c.owner, repo, err)
	}
	return toDeployKey(created), provisioning.OutcomeCreated, nil
}

func (c *Client) listKeys(ctx context.Context, repo string) ([]*gh.Key, error) {
	var all []*gh.Key
	opt := &gh.ListOptions{PerPage: 100}
	for {
		var keys []*gh.Key
		resp, err := c.call(ctx, func(ctx context.Context) (*gh.Response, error) {
			var resp *gh.Response
			var err error
			keys, resp, err = c.gh.Repositories.ListKeys(ctx, c.owner, repo, opt)
			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list deploy keys of %s/%s: %w", c.owner, repo, err)
		}
		all = append(all, keys...)
		if resp == nil || resp.NextPage == 0 {
			return all, nil
		}
		opt.Page = resp.NextPage
	}
}

// keyMaterial strips the comment from an authorized_keys line.
func keyMaterial(key string) string {
	fields := strings.Fields(key)
	if len(fields) < 2 {
		return strings.TrimSpace(key)
	}
	return fields[0] + " " + fields[1]
}

func toDeployKey(k *gh.Key) *DeployKey {
	return &DeployKey{
		ID:       k.GetID(),
		Title:    k.GetTitle(),
		Key:      k.GetKey(),
		ReadOnly: k.GetReadOnly(),
	}
}
