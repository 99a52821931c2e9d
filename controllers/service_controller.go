// Package controllers implements the Service controller and its supporting metrics.
package controllers

import (
	"context"
	"net"
	"time"

	"github.com/go-logr/logr"
	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/client-go/tools/record"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/hcloud-lb/robotlb/pkg/config"
	"github.com/hcloud-lb/robotlb/pkg/finalizer"
	"github.com/hcloud-lb/robotlb/pkg/hcloudclient"
	"github.com/hcloud-lb/robotlb/pkg/lberror"
	"github.com/hcloud-lb/robotlb/pkg/loadbalancer"
	"github.com/hcloud-lb/robotlb/pkg/resolver"
)

// requeueInterval is the fixed interval every successful or failed
// reconciliation (other than a skip or a completed deletion) is requeued after. The controller does
// its own local retry pacing rather than leaning on controller-runtime's
// exponential backoff, so a single misconfigured Service never drowns out
// the others.
const requeueInterval = 30 * time.Second

// ServiceReconciler materializes Service objects of type LoadBalancer as
// HCloud load balancers.
type ServiceReconciler struct {
	client.Client
	Config              *config.OperatorConfig
	HCloudClientFactory hcloudclient.Factory
	Recorder            record.EventRecorder
}

//+kubebuilder:rbac:groups="",resources=services,verbs=get;list;watch;update;patch
//+kubebuilder:rbac:groups="",resources=services/status,verbs=get;update;patch
//+kubebuilder:rbac:groups="",resources=pods,verbs=get;list;watch
//+kubebuilder:rbac:groups="",resources=nodes,verbs=get;list;watch
//+kubebuilder:rbac:groups="",resources=events,verbs=create;patch

// Reconcile implements the control loop for a single Service.
func (r *ServiceReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	start := time.Now()
	log := ctrl.LoggerFrom(ctx)

	var svc corev1.Service
	if err := r.Get(ctx, req.NamespacedName, &svc); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		log.Error(err, "fetching service failed")
		return ctrl.Result{RequeueAfter: requeueInterval}, nil
	}

	log = log.WithValues("service", klog.KObj(&svc))
	ctx = ctrl.LoggerInto(ctx, log)

	result, err := r.reconcile(ctx, &svc)
	kind := lberror.KindOf(err)

	switch {
	case err == nil:
		recordReconcile("success", time.Since(start).Seconds())
		return result, nil
	case kind == lberror.KindSkip:
		log.V(1).Info("skipping service", "reason", err.Error())
		recordReconcile("skip", time.Since(start).Seconds())
		return ctrl.Result{}, nil
	default:
		log.Error(err, "reconciliation failed")
		recordReconcile(kind.String(), time.Since(start).Seconds())
		return ctrl.Result{RequeueAfter: requeueInterval}, nil
	}
}

func (r *ServiceReconciler) reconcile(ctx context.Context, svc *corev1.Service) (ctrl.Result, error) {
	log := ctrl.LoggerFrom(ctx)

	if svc.Spec.Type != corev1.ServiceTypeLoadBalancer {
		return ctrl.Result{}, lberror.Skip("service %s/%s is not of type LoadBalancer", svc.Namespace, svc.Name)
	}

	desired, err := loadbalancer.FromService(svc, r.Config)
	if err != nil {
		return ctrl.Result{}, err
	}

	hc := r.HCloudClientFactory.NewClient(r.Config.HCloudToken)
	defer hc.Close()

	if !svc.DeletionTimestamp.IsZero() {
		return r.reconcileDelete(ctx, svc, desired, hc)
	}

	if !finalizer.Has(svc) {
		if err := finalizer.Add(ctx, r.Client, svc); err != nil {
			return ctrl.Result{}, lberror.Upstream(err)
		}
	}

	if err := r.resolveTargets(ctx, svc, desired); err != nil {
		return ctrl.Result{}, err
	}
	resolvePorts(svc, desired, log)

	observed, err := desired.Reconcile(ctx, hc)
	if err != nil {
		recordHCloudAPICall("reconcile", lberror.KindOf(err).String())
		return ctrl.Result{}, err
	}
	recordHCloudAPICall("reconcile", "success")

	if err := r.patchIngress(ctx, svc, observed); err != nil {
		return ctrl.Result{}, lberror.Upstream(err)
	}

	return ctrl.Result{RequeueAfter: requeueInterval}, nil
}

func (r *ServiceReconciler) reconcileDelete(ctx context.Context, svc *corev1.Service, desired *loadbalancer.DesiredLoadBalancer, hc hcloudclient.Client) (ctrl.Result, error) {
	if !finalizer.Has(svc) {
		return ctrl.Result{}, nil
	}

	if err := desired.Cleanup(ctx, hc); err != nil {
		recordHCloudAPICall("cleanup", lberror.KindOf(err).String())
		return ctrl.Result{}, err
	}
	recordHCloudAPICall("cleanup", "success")
	r.Recorder.Eventf(svc, corev1.EventTypeNormal, "LoadBalancerDeleted", "deleted HCloud load balancer %q", desired.Name)

	if err := finalizer.Remove(ctx, r.Client, svc); err != nil {
		return ctrl.Result{}, lberror.Upstream(err)
	}

	return ctrl.Result{}, nil
}

// targetResolver chooses the dynamic or static resolution strategy per the
// operator's configuration.
func (r *ServiceReconciler) targetResolver() resolver.Resolver {
	if r.Config.DynamicNodeSelector {
		return &resolver.Dynamic{Client: r.Client}
	}
	return &resolver.Static{Client: r.Client}
}

// resolveTargets fills desired.Targets with the IPv4 addresses of the nodes
// backing svc, using InternalIP when a private network is attached and
// ExternalIP otherwise. IPv6 addresses are dropped: HCloud targets are
// IPv4-only.
func (r *ServiceReconciler) resolveTargets(ctx context.Context, svc *corev1.Service, desired *loadbalancer.DesiredLoadBalancer) error {
	nodes, err := r.targetResolver().Resolve(ctx, svc)
	if err != nil {
		return err
	}

	addrType := resolver.AddressTypeExternal
	if desired.NetworkName != "" {
		addrType = resolver.AddressTypeInternal
	}

	for _, addr := range resolver.Addresses(nodes, addrType) {
		ip := net.ParseIP(addr)
		if ip != nil && ip.To4() != nil {
			desired.Targets = append(desired.Targets, addr)
		}
	}
	return nil
}

// resolvePorts implements the "Resolve ports" reconciler step: every TCP
// port with a nodePort becomes a desired service; everything else is
// skipped (logged for the missing-nodePort case).
func resolvePorts(svc *corev1.Service, desired *loadbalancer.DesiredLoadBalancer, log logr.Logger) {
	for _, port := range svc.Spec.Ports {
		protocol := port.Protocol
		if protocol == "" {
			protocol = corev1.ProtocolTCP
		}
		if protocol != corev1.ProtocolTCP {
			continue
		}
		if port.NodePort == 0 {
			log.Info("service port has no nodePort, skipping", "port", port.Port)
			continue
		}
		desired.AddService(port.Port, port.NodePort)
	}
}

func (r *ServiceReconciler) patchIngress(ctx context.Context, svc *corev1.Service, observed *hcloud.LoadBalancer) error {
	var ingress []corev1.LoadBalancerIngress
	if observed.PublicNet.IPv4.IP != nil {
		ingress = append(ingress, corev1.LoadBalancerIngress{
			IP:     observed.PublicNet.IPv4.IP.String(),
			IPMode: ptr.To(corev1.LoadBalancerIPModeVIP),
		})
	}
	if r.Config.IPv6Ingress && observed.PublicNet.IPv6.IP != nil {
		ingress = append(ingress, corev1.LoadBalancerIngress{
			IP:     observed.PublicNet.IPv6.IP.String(),
			IPMode: ptr.To(corev1.LoadBalancerIPModeVIP),
		})
	}
	if len(ingress) == 0 {
		return nil
	}

	patch := client.MergeFrom(svc.DeepCopy())
	svc.Status.LoadBalancer.Ingress = ingress
	return r.Status().Patch(ctx, svc, patch)
}

// SetupWithManager registers the controller with mgr.
func (r *ServiceReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&corev1.Service{}).
		Complete(r)
}
