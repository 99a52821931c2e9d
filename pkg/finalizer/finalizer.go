// Package finalizer manages the controller's finalizer on a Service via a JSON merge patch.
package finalizer

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/hcloud-lb/robotlb/pkg/consts"
)

// Has reports whether svc already carries the controller's finalizer.
func Has(svc *corev1.Service) bool {
	for _, f := range svc.Finalizers {
		if f == consts.FinalizerName {
			return true
		}
	}
	return false
}

// Add merge-patches svc so that metadata.finalizers holds only the
// controller's finalizer, matching the original reconciler's patch body. A
// no-op if already present.
func Add(ctx context.Context, c client.Client, svc *corev1.Service) error {
	if Has(svc) {
		return nil
	}
	patch := client.MergeFrom(svc.DeepCopy())
	svc.Finalizers = []string{consts.FinalizerName}
	return c.Patch(ctx, svc, patch)
}

// Remove merge-patches svc to drop the controller's finalizer. A no-op if
// already absent.
func Remove(ctx context.Context, c client.Client, svc *corev1.Service) error {
	if !Has(svc) {
		return nil
	}
	patch := client.MergeFrom(svc.DeepCopy())
	kept := make([]string, 0, len(svc.Finalizers))
	for _, f := range svc.Finalizers {
		if f != consts.FinalizerName {
			kept = append(kept, f)
		}
	}
	svc.Finalizers = kept
	return c.Patch(ctx, svc, patch)
}
