// Package resolver turns a Service into the set of cluster Nodes that back
// its pods, via one of two strategies chosen by OperatorConfig.
package resolver

import (
	"context"

	corev1 "k8s.io/api/core/v1"
)

// Resolver maps a Service onto the Nodes its load balancer should target.
type Resolver interface {
	Resolve(ctx context.Context, svc *corev1.Service) ([]corev1.Node, error)
}

// AddressType selects which Node address family feeds the target set.
type AddressType string

const (
	// AddressTypeInternal selects corev1.NodeInternalIP, used whenever a
	// private network is attached to the load balancer.
	AddressTypeInternal AddressType = corev1.NodeInternalIP
	// AddressTypeExternal selects corev1.NodeExternalIP, the default when no
	// private network is configured.
	AddressTypeExternal AddressType = corev1.NodeExternalIP
)

// Addresses extracts the first address of typ from each node, skipping nodes
// that don't have one. Order follows the input slice.
func Addresses(nodes []corev1.Node, typ AddressType) []string {
	addrs := make([]string, 0, len(nodes))
	for _, n := range nodes {
		for _, a := range n.Status.Addresses {
			if a.Type == corev1.NodeAddressType(typ) {
				addrs = append(addrs, a.Address)
				break
			}
		}
	}
	return addrs
}
