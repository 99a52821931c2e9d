package resolver

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/hcloud-lb/robotlb/pkg/consts"
	"github.com/hcloud-lb/robotlb/pkg/labelfilter"
	"github.com/hcloud-lb/robotlb/pkg/lberror"
)

// Static resolves targets from the node-selector annotation: every node
// whose labels satisfy the parsed filter is a target, regardless of where
// the Service's pods actually run.
type Static struct {
	Client client.Client
}

var _ Resolver = &Static{}

// Resolve implements Resolver.
func (s *Static) Resolve(ctx context.Context, svc *corev1.Service) ([]corev1.Node, error) {
	expr, ok := svc.Annotations[consts.NodeSelectorAnnotation]
	if !ok {
		return nil, lberror.MissingPrecondition("service %s/%s has no %s annotation", svc.Namespace, svc.Name, consts.NodeSelectorAnnotation)
	}

	filter, err := labelfilter.Parse(expr)
	if err != nil {
		return nil, err
	}

	var allNodes corev1.NodeList
	if err := s.Client.List(ctx, &allNodes); err != nil {
		return nil, lberror.Upstream(err)
	}

	nodes := make([]corev1.Node, 0, len(allNodes.Items))
	for _, n := range allNodes.Items {
		if filter.Matches(n.Labels) {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}
