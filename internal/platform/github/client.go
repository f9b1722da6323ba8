package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	gh "github.com/google/go-github/github"
	"golang.org/x/oauth2"

	"github.com/imamik/fluxtenancy/internal/provisioning"
	"github.com/imamik/fluxtenancy/internal/util/retry"
)

// ManagedMarker is written into the description of every repository fluxtenancy creates.
const ManagedMarker = "Managed by fluxtenancy"

// AdoptPolicy controls whether existing repositories are taken over.
type AdoptPolicy string

// Adopt policies.
const (
	AdoptManaged AdoptPolicy = "managed"
	AdoptAlways  AdoptPolicy = "always"
	AdoptNever   AdoptPolicy = "never"
)

// Repository is the handle of a workspace repository.
type Repository struct {
	Name          string
	FullName      string
	Private       bool
	DefaultBranch string
	SSHURL        string
}

// DeployKey is a repository deploy key.
type DeployKey struct {
	ID       int64
	Title    string
	Key      string
	ReadOnly bool
}

// RepositorySpec describes a repository to create.
type RepositorySpec struct {
	Name        string
	Description string
	Private     bool
	AutoInit    bool
}

// DeployKeySpec describes a deploy key to register.
type DeployKeySpec struct {
	Title     string
	PublicKey string
	ReadOnly  bool
}

// SourceHost is the source-hosting capability used by tenant provisioning.
type SourceHost interface {
	Owner() string
	CreateRepository(ctx context.Context, spec RepositorySpec) (*Repository, provisioning.Outcome, error)
	SetDefaultBranch(ctx context.Context, repo, branch string) (provisioning.Outcome, error)
	AddDeployKey(ctx context.Context, repo string, spec DeployKeySpec) (*DeployKey, provisioning.Outcome, error)
	GrantTeamAccess(ctx context.Context, repo, team, permission string) (provisioning.Outcome, error)
}

// Client implements SourceHost against the GitHub REST API.
type Client struct {
	gh     *gh.Client
	owner  string
	policy AdoptPolicy
	retry  []retry.Option

	mu    sync.Mutex
	isOrg *bool
	teams map[string]*gh.Team
}

var _ SourceHost = (*Client)(nil)

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("invalid GitHub base URL: %w", err)
		}
		c.gh.BaseURL = u
		return nil
	}
}

// WithAdoptPolicy sets how existing repositories are handled. The default is AdoptManaged.
func WithAdoptPolicy(p AdoptPolicy) Option {
	return func(c *Client) error {
		c.policy = p
		return nil
	}
}

// WithRetry overrides the backoff used for server errors and secondary rate limits.
func WithRetry(opts ...retry.Option) Option {
	return func(c *Client) error {
		c.retry = opts
		return nil
	}
}

// NewClient creates a GitHub client authenticated with token and operating on owner.
func NewClient(ctx context.Context, token, owner string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("GitHub token is required")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})

	c := &Client{
		gh:     gh.NewClient(oauth2.NewClient(ctx, ts)),
		owner:  owner,
		policy: AdoptManaged,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Owner returns the organization or user the client operates on.
func (c *Client) Owner() string {
	return c.owner
}

// ownerIsOrg reports whether the owner is an organization. The answer is cached.
func (c *Client) ownerIsOrg(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isOrg != nil {
		return *c.isOrg, nil
	}

	resp, err := c.call(ctx, func(ctx context.Context) (*gh.Response, error) {
		_, resp, err := c.gh.Organizations.Get(ctx, c.owner)
		return resp, err
	})
	isOrg := true
	if err != nil {
		if !isNotFound(resp) {
			return false, fmt.Errorf("failed to look up owner %s: %w", c.owner, err)
		}
		isOrg = false
	}
	c.isOrg = &isOrg
	return isOrg, nil
}

// call runs an idempotent request, retrying server errors and secondary rate limits.
// Creating requests are not passed through call since a lost response would repeat them.
func (c *Client) call(ctx context.Context, req func(ctx context.Context) (*gh.Response, error)) (*gh.Response, error) {
	var resp *gh.Response
	transient := func(err error) bool {
		var abuse *gh.AbuseRateLimitError
		if errors.As(err, &abuse) {
			return true
		}
		return resp != nil && resp.StatusCode >= http.StatusInternalServerError
	}

	opts := append([]retry.Option{retry.WithRetryIf(transient)}, c.retry...)
	err := retry.Do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = req(ctx)
		return err
	}, opts...)
	return resp, err
}

func isNotFound(resp *gh.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

func toRepository(r *gh.Repository) *Repository {
	return &Repository{
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Private:       r.GetPrivate(),
		DefaultBranch: r.GetDefaultBranch(),
		SSHURL:        r.GetSSHURL(),
	}
}
