package testing

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/imamik/fluxtenancy/internal/platform/github"
	"github.com/imamik/fluxtenancy/internal/provisioning"
)

type fakeRepo struct {
	repo    github.Repository
	managed bool
	keys    []github.DeployKey
	grants  map[string]string
}

// FakeSourceHost is an in-memory github.SourceHost.
type FakeSourceHost struct {
	owner  string
	policy github.AdoptPolicy

	mu     sync.Mutex
	repos  map[string]*fakeRepo
	teams  map[string]bool
	nextID int64
	fail   map[string]error
	calls  []string
}

var _ github.SourceHost = (*FakeSourceHost)(nil)

// NewFakeSourceHost creates a fake owner with the given existing teams.
func NewFakeSourceHost(owner string, teams ...string) *FakeSourceHost {
	f := &FakeSourceHost{
		owner:  owner,
		policy: github.AdoptManaged,
		repos:  make(map[string]*fakeRepo),
		teams:  make(map[string]bool),
		fail:   make(map[string]error),
	}
	for _, t := range teams {
		f.teams[t] = true
	}
	return f
}

// SetAdoptPolicy changes how pre-existing repositories are treated.
func (f *FakeSourceHost) SetAdoptPolicy(p github.AdoptPolicy) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policy = p
}

// SeedRepository adds a repository that existed before the run.
func (f *FakeSourceHost) SeedRepository(name string, managed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repos[name] = &fakeRepo{
		repo:    f.newRepository(name),
		managed: managed,
		grants:  make(map[string]string),
	}
}

// FailOn makes the operation op ("repository", "branch", "deploy-key", "team")
// fail with err for the named repository.
func (f *FakeSourceHost) FailOn(op, repo string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op+"/"+repo] = err
}

// Repository returns a copy of the stored repository.
func (f *FakeSourceHost) Repository(name string) (github.Repository, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.repos[name]
	if !ok {
		return github.Repository{}, false
	}
	return r.repo, true
}

// DeleteRepository removes a repository, as if deleted outside the run.
func (f *FakeSourceHost) DeleteRepository(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.repos, name)
}

// DeployKeys returns the deploy keys registered on a repository.
func (f *FakeSourceHost) DeployKeys(repo string) []github.DeployKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.repos[repo]
	if !ok {
		return nil
	}
	return slices.Clone(r.keys)
}

// Permission returns the permission granted to team on repo.
func (f *FakeSourceHost) Permission(repo, team string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.repos[repo]
	if !ok {
		return ""
	}
	return r.grants[team]
}

// Calls returns every operation in call order, formatted "op/repo".
func (f *FakeSourceHost) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// Owner implements github.SourceHost.
func (f *FakeSourceHost) Owner() string {
	return f.owner
}

// CreateRepository implements github.SourceHost.
func (f *FakeSourceHost) CreateRepository(_ context.Context, spec github.RepositorySpec) (*github.Repository, provisioning.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("repository", spec.Name); err != nil {
		return nil, provisioning.OutcomeFailed, err
	}

	if existing, ok := f.repos[spec.Name]; ok {
		repo := existing.repo
		switch {
		case f.policy == github.AdoptNever:
		case existing.managed:
			return &repo, provisioning.OutcomeUnchanged, nil
		case f.policy == github.AdoptAlways:
			existing.managed = true
			return &repo, provisioning.OutcomeAdopted, nil
		}
		return nil, provisioning.OutcomeFailed, fmt.Errorf("%w: repository %s/%s", provisioning.ErrAlreadyExists, f.owner, spec.Name)
	}

	r := &fakeRepo{repo: f.newRepository(spec.Name), managed: true, grants: make(map[string]string)}
	r.repo.Private = spec.Private
	f.repos[spec.Name] = r
	repo := r.repo
	return &repo, provisioning.OutcomeCreated, nil
}

// SetDefaultBranch implements github.SourceHost.
func (f *FakeSourceHost) SetDefaultBranch(_ context.Context, repo, branch string) (provisioning.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("branch", repo); err != nil {
		return provisioning.OutcomeFailed, err
	}
	r, ok := f.repos[repo]
	if !ok {
		return provisioning.OutcomeFailed, fmt.Errorf("repository %s not found", repo)
	}
	if r.repo.DefaultBranch == branch {
		return provisioning.OutcomeUnchanged, nil
	}
	r.repo.DefaultBranch = branch
	return provisioning.OutcomeUpdated, nil
}

// AddDeployKey implements github.SourceHost.
func (f *FakeSourceHost) AddDeployKey(_ context.Context, repo string, spec github.DeployKeySpec) (*github.DeployKey, provisioning.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("deploy-key", repo); err != nil {
		return nil, provisioning.OutcomeFailed, err
	}
	r, ok := f.repos[repo]
	if !ok {
		return nil, provisioning.OutcomeFailed, fmt.Errorf("repository %s not found", repo)
	}

	for _, k := range r.keys {
		if k.Key == spec.PublicKey && k.ReadOnly == spec.ReadOnly {
			key := k
			return &key, provisioning.OutcomeUnchanged, nil
		}
	}

	r.keys = slices.DeleteFunc(r.keys, func(k github.DeployKey) bool {
		return k.Title == spec.Title || k.Key == spec.PublicKey
	})
	f.nextID++
	key := github.DeployKey{ID: f.nextID, Title: spec.Title, Key: spec.PublicKey, ReadOnly: spec.ReadOnly}
	r.keys = append(r.keys, key)
	return &key, provisioning.OutcomeCreated, nil
}

// GrantTeamAccess implements github.SourceHost.
func (f *FakeSourceHost) GrantTeamAccess(_ context.Context, repo, team, permission string) (provisioning.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("team", repo); err != nil {
		return provisioning.OutcomeFailed, err
	}
	if !f.teams[team] {
		return provisioning.OutcomeFailed, fmt.Errorf("%w: %s/%s", provisioning.ErrTeamNotFound, f.owner, team)
	}
	r, ok := f.repos[repo]
	if !ok {
		return provisioning.OutcomeFailed, fmt.Errorf("repository %s not found", repo)
	}
	switch current := r.grants[team]; current {
	case permission:
		return provisioning.OutcomeUnchanged, nil
	case "":
		r.grants[team] = permission
		return provisioning.OutcomeCreated, nil
	default:
		r.grants[team] = permission
		return provisioning.OutcomeUpdated, nil
	}
}

func (f *FakeSourceHost) record(op, repo string) error {
	key := op + "/" + repo
	f.calls = append(f.calls, key)
	return f.fail[key]
}

func (f *FakeSourceHost) newRepository(name string) github.Repository {
	return github.Repository{
		Name:          name,
		FullName:      f.owner + "/" + name,
		Private:       true,
		DefaultBranch: "main",
		SSHURL:        fmt.Sprintf("git@github.com:%s/%s.git", f.owner, name),
	}
}
