package handlers

import (
	"context"
	"fmt"

	"github.com/xlab/treeprint"
	"sigs.k8s.io/yaml"

	"github.com/imamik/fluxtenancy/internal/provisioning"
	"github.com/imamik/fluxtenancy/internal/tenancy"
)

// describePlan declares the graph without remote clients (for testing injection).
var describePlan = tenancy.DescribePlan

type planNode struct {
	ID        provisioning.ID   `json:"id"`
	Kind      string            `json:"kind"`
	Level     int               `json:"level"`
	DependsOn []provisioning.ID `json:"dependsOn,omitempty"`
}

type planScope struct {
	Scope     string     `json:"scope"`
	Resources []planNode `json:"resources"`
}

// Plan prints the resources apply would manage, grouped by scope.
func Plan(_ context.Context, configPath string, asYAML bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	plan, err := describePlan(cfg)
	if err != nil {
		return err
	}

	scopes := groupByScope(plan.Graph)
	if asYAML {
		data, err := yaml.Marshal(scopes)
		if err != nil {
			return fmt.Errorf("failed to marshal plan: %w", err)
		}
		_, err = stdout.Write(data)
		return err
	}

	fmt.Fprint(stdout, renderPlanTree(cfg.Owner, scopes).String())
	fmt.Fprintf(stdout, "\n%d resources in %d scopes\n", plan.Graph.Len(), len(scopes))
	return nil
}

func groupByScope(g *provisioning.Graph) []planScope {
	index := make(map[string]int)
	var scopes []planScope
	for _, n := range g.Nodes() {
		i, ok := index[n.Scope]
		if !ok {
			i = len(scopes)
			index[n.Scope] = i
			scopes = append(scopes, planScope{Scope: n.Scope})
		}
		scopes[i].Resources = append(scopes[i].Resources, planNode{
			ID:        n.ID,
			Kind:      n.Kind,
			Level:     n.Level,
			DependsOn: n.DependsOn,
		})
	}
	return scopes
}

func renderPlanTree(owner string, scopes []planScope) treeprint.Tree {
	tree := treeprint.NewWithRoot(owner)
	for _, s := range scopes {
		branch := tree.AddMetaBranch(len(s.Resources), s.Scope)
		for _, n := range s.Resources {
			if len(n.DependsOn) == 0 {
				branch.AddMetaNode(n.Kind, string(n.ID))
				continue
			}
			node := branch.AddMetaBranch(n.Kind, string(n.ID))
			for _, dep := range n.DependsOn {
				node.AddNode("after " + string(dep))
			}
		}
	}
	return tree
}
