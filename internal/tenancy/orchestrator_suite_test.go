package tenancy_test

import (
	"context"
	"errors"
	"slices"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/imamik/fluxtenancy/internal/config"
	"github.com/imamik/fluxtenancy/internal/k8s"
	"github.com/imamik/fluxtenancy/internal/platform/github"
	"github.com/imamik/fluxtenancy/internal/provisioning"
	"github.com/imamik/fluxtenancy/internal/tenancy"
	fx "github.com/imamik/fluxtenancy/internal/testing"
)

var _ = Describe("Orchestrator", func() {
	var (
		ctx     context.Context
		fixture *fx.Fixture
		cfg     *config.Config
	)

	apply := func() *tenancy.Result {
		o, err := tenancy.NewOrchestrator(cfg, testDeps(fixture))
		Expect(err).NotTo(HaveOccurred())
		result, _ := o.Apply(ctx)
		Expect(result).NotTo(BeNil())
		Expect(result.Report).NotTo(BeNil())
		return result
	}

	outcomeOf := func(r *tenancy.Result, id provisioning.ID) provisioning.Outcome {
		res, ok := r.Report.Result(id)
		Expect(ok).To(BeTrue(), "no result for %s", id)
		return res.Outcome
	}

	scopeNodes := func(r *tenancy.Result, scope string) []provisioning.NodeResult {
		var out []provisioning.NodeResult
		for _, res := range r.Report.Results {
			if res.Scope == scope {
				out = append(out, res)
			}
		}
		return out
	}

	BeforeEach(func() {
		ctx = context.Background()
		fixture = fx.NewFixture("foot-org", "ai-admins", "data-admins")
		cfg = fx.NewConfigBuilder().
			WithTenant("ai-team", []string{"ai"}, []string{"ai-admins"}).
			WithTenant("data-team", []string{"data", "warehouse"}, []string{"data-admins"}).
			Build()
	})

	Context("with a clean environment", func() {
		It("provisions the system before any tenant resource", func() {
			apply()

			calls := fixture.Source.Calls()
			adminRepo := slices.Index(calls, "repository/workspace-admin")
			Expect(adminRepo).To(BeNumerically(">=", 0))
			for i, call := range calls {
				if strings.HasSuffix(call, "-workspace") {
					Expect(i).To(BeNumerically(">", adminRepo), "%s ran before the admin repository", call)
				}
			}

			clusterCalls := fixture.Cluster.Calls()
			bootstrapSync := slices.Index(clusterCalls, "manifests/GitRepository/flux-system/flux-system")
			Expect(bootstrapSync).To(BeNumerically(">=", 0))
			Expect(slices.Index(clusterCalls, "namespace/ai")).To(BeNumerically(">", bootstrapSync))
		})

		It("writes each sync binding after its credentials secret", func() {
			apply()

			calls := fixture.Cluster.Calls()
			for _, tenant := range []string{"ai-team", "data-team"} {
				secret := slices.Index(calls, "secret/flux-system/"+tenant+"-flux-secret")
				sync := slices.Index(calls, "manifests/GitRepository/flux-system/"+tenant+"-automation")
				Expect(secret).To(BeNumerically(">=", 0))
				Expect(sync).To(BeNumerically(">", secret))
			}
		})

		It("binds every team as admin in every tenant namespace", func() {
			apply()

			for _, ns := range []string{"data", "warehouse"} {
				rb, ok := fixture.Cluster.RoleBinding(ns, "data-admins-admin")
				Expect(ok).To(BeTrue())
				Expect(rb.ClusterRole).To(Equal("admin"))
				Expect(rb.Group).To(Equal("data-admins"))
			}
			_, ok := fixture.Cluster.RoleBinding("ai", "data-admins-admin")
			Expect(ok).To(BeFalse(), "bindings stay within the tenant's own namespaces")
		})

		It("reports nothing created on a second apply", func() {
			first := apply()
			Expect(first.Report.Err()).NotTo(HaveOccurred())

			second := apply()
			Expect(second.Report.Err()).NotTo(HaveOccurred())
			Expect(second.Report.Counts()).NotTo(HaveKey(provisioning.OutcomeCreated))
			for _, res := range second.Report.Results {
				Expect(res.Outcome).To(BeElementOf(
					provisioning.OutcomeUnchanged,
					provisioning.OutcomeAdopted,
					provisioning.OutcomeReady,
				), "%s", res.ID)
			}
		})
	})

	Context("when the tenant system fails", func() {
		BeforeEach(func() {
			fixture.Source.FailOn("repository", "workspace-admin", errors.New("rate limited"))
		})

		It("skips every tenant resource", func() {
			result := apply()

			Expect(outcomeOf(result, "workspace-admin-repository")).To(Equal(provisioning.OutcomeFailed))
			Expect(outcomeOf(result, "workspace-admin-component")).To(Equal(provisioning.OutcomeSkipped))
			for _, tenant := range []string{"ai-team", "data-team"} {
				for _, res := range scopeNodes(result, tenant) {
					Expect(res.Outcome).To(Equal(provisioning.OutcomeSkipped), "%s", res.ID)
					Expect(res.Err()).To(MatchError(provisioning.ErrDependencyNotReady))
				}
			}
			Expect(result.TenantRepositories).To(BeEmpty())

			var resErr *provisioning.ResourceError
			Expect(errors.As(result.Report.Err(), &resErr)).To(BeTrue())
			Expect(resErr.Scope).To(Equal("workspace-admin"))
			Expect(resErr.ID).To(Equal(provisioning.ID("workspace-admin-repository")))
		})
	})

	Context("when one tenant fails", func() {
		BeforeEach(func() {
			fixture.Source.SeedRepository("ai-team-workspace", false)
		})

		It("refuses a foreign repository and leaves other tenants alone", func() {
			result := apply()

			Expect(outcomeOf(result, "ai-team-repository")).To(Equal(provisioning.OutcomeFailed))
			Expect(result.Report.Err()).To(MatchError(provisioning.ErrAlreadyExists))
			for _, id := range []provisioning.ID{
				"ai-team-repository-deploy-key",
				"ai-team-branch-default",
				"ai-team-team-repository-ai-admins",
				"ai-team-flux-sync",
				"ai-team-component",
			} {
				Expect(outcomeOf(result, id)).To(Equal(provisioning.OutcomeSkipped), "%s", id)
			}
			Expect(outcomeOf(result, "ai-team-namespace-ai")).To(Equal(provisioning.OutcomeCreated))

			Expect(result.Report.ScopeSucceeded("ai-team")).To(BeFalse())
			Expect(result.Report.ScopeSucceeded("data-team")).To(BeTrue())
			Expect(result.TenantRepositories).To(HaveKey("data-team"))
		})

		It("adopts the repository when the policy allows it", func() {
			fixture.Source.SetAdoptPolicy(github.AdoptAlways)
			result := apply()

			Expect(result.Report.Err()).NotTo(HaveOccurred())
			Expect(outcomeOf(result, "ai-team-repository")).To(Equal(provisioning.OutcomeAdopted))
		})
	})

	Context("when a team does not exist", func() {
		BeforeEach(func() {
			cfg = fx.NewConfigBuilder().
				WithTenant("ai-team", []string{"ai"}, []string{"ghosts"}).
				Build()
		})

		It("fails only the team grant", func() {
			result := apply()

			Expect(outcomeOf(result, "ai-team-team-repository-ghosts")).To(Equal(provisioning.OutcomeFailed))
			Expect(result.Report.Err()).To(MatchError(provisioning.ErrTeamNotFound))
			Expect(outcomeOf(result, "ai-team-flux-sync")).To(Equal(provisioning.OutcomeCreated))
			Expect(outcomeOf(result, "ai-team-component")).To(Equal(provisioning.OutcomeSkipped))
		})
	})

	Context("when a namespace belongs to another tenant", func() {
		BeforeEach(func() {
			fixture.Cluster.SeedNamespace("ai", map[string]string{k8s.LabelTenant: "someone-else"})
		})

		It("fails the namespace and skips its bindings", func() {
			result := apply()

			Expect(outcomeOf(result, "ai-team-namespace-ai")).To(Equal(provisioning.OutcomeFailed))
			Expect(outcomeOf(result, "ai-team-ai-cluster-role-binding-ai-admins")).To(Equal(provisioning.OutcomeSkipped))
			Expect(result.Report.Err()).To(MatchError(provisioning.ErrNamespaceConflict))
			Expect(result.Report.ScopeSucceeded("data-team")).To(BeTrue())
		})
	})

	Context("when an unlabelled namespace already exists", func() {
		BeforeEach(func() {
			fixture.Cluster.SeedNamespace("warehouse", map[string]string{"team": "data"})
		})

		It("adopts it for the tenant", func() {
			result := apply()

			Expect(outcomeOf(result, "data-team-namespace-warehouse")).To(Equal(provisioning.OutcomeAdopted))
			labels, _ := fixture.Cluster.Namespace("warehouse")
			Expect(labels).To(HaveKeyWithValue(k8s.LabelTenant, "data-team"))
			Expect(labels).To(HaveKeyWithValue("team", "data"))
		})
	})

	Context("when the context is cancelled", func() {
		It("skips everything", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			ctx = cancelled

			result := apply()
			Expect(result.Report.Counts()).To(HaveLen(1))
			Expect(result.Report.Counts()).To(HaveKey(provisioning.OutcomeSkipped))
			Expect(fixture.Source.Calls()).To(BeEmpty())
		})
	})
})
