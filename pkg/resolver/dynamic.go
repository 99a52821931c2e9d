package resolver

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/hcloud-lb/robotlb/pkg/lberror"
)

// Dynamic resolves targets by tracking the location of the Service's pods:
// it lists pods matching spec.selector, collects the nodes they're
// scheduled on, and returns those nodes.
type Dynamic struct {
	Client client.Client
}

var _ Resolver = &Dynamic{}

// Resolve implements Resolver.
func (d *Dynamic) Resolve(ctx context.Context, svc *corev1.Service) ([]corev1.Node, error) {
	if len(svc.Spec.Selector) == 0 {
		return nil, lberror.MissingPrecondition("service %s/%s has no selector", svc.Namespace, svc.Name)
	}

	var pods corev1.PodList
	if err := d.Client.List(ctx, &pods, client.InNamespace(svc.Namespace), client.MatchingLabels(svc.Spec.Selector)); err != nil {
		return nil, lberror.Upstream(err)
	}

	nodeNames := map[string]struct{}{}
	for _, pod := range pods.Items {
		if pod.Spec.NodeName != "" {
			nodeNames[pod.Spec.NodeName] = struct{}{}
		}
	}

	var allNodes corev1.NodeList
	if err := d.Client.List(ctx, &allNodes); err != nil {
		return nil, lberror.Upstream(err)
	}

	nodes := make([]corev1.Node, 0, len(nodeNames))
	for _, n := range allNodes.Items {
		if _, found := nodeNames[n.Name]; found {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}
