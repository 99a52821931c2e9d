// Package loadbalancer models the desired state of a single HCloud load
// balancer and converges it against the observed HCloud state.
package loadbalancer

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	kerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/hcloud-lb/robotlb/pkg/config"
	"github.com/hcloud-lb/robotlb/pkg/consts"
	"github.com/hcloud-lb/robotlb/pkg/hcloudclient"
	"github.com/hcloud-lb/robotlb/pkg/lberror"
)

// Algorithm names, as accepted in the lb-algorithm annotation and DEFAULT_LB_ALGORITHM.
const (
	AlgorithmRoundRobin       = "round-robin"
	AlgorithmLeastConnections = "least-connections"
)

// DesiredLoadBalancer is the in-memory desired state built from a Service,
// its annotations and the operator defaults. It is built fresh for every
// reconciliation and discarded afterward.
type DesiredLoadBalancer struct {
	Name string

	// Services maps listen_port to destination_port. Populated by the
	// reconciler's port-resolution step, not by FromService.
	Services map[int32]int32
	// Targets holds the desired IPv4 target addresses. Populated by the
	// reconciler's target-resolution step, not by FromService.
	Targets []string

	PrivateIP string

	CheckInterval int32
	Timeout       int32
	Retries       int32
	ProxyMode     bool

	Location     string
	BalancerType string
	Algorithm    string
	NetworkName  string
}

// FromService builds a DesiredLoadBalancer from a Service, resolving every
// tunable from its annotation if present, else the operator-wide default.
// Services and Targets are left empty: the reconciler fills them in once it
// has resolved ports and target nodes.
func FromService(svc *corev1.Service, cfg *config.OperatorConfig) (*DesiredLoadBalancer, error) {
	ann := svc.Annotations

	retries, err := annotationInt32(ann, consts.LBRetriesAnnotation, int32(cfg.DefaultLBRetries))
	if err != nil {
		return nil, err
	}
	timeout, err := annotationInt32(ann, consts.LBTimeoutAnnotation, int32(cfg.DefaultLBTimeout))
	if err != nil {
		return nil, err
	}
	interval, err := annotationInt32(ann, consts.LBCheckIntervalAnnotation, int32(cfg.DefaultLBInterval))
	if err != nil {
		return nil, err
	}
	proxyMode, err := annotationBool(ann, consts.LBProxyModeAnnotation, cfg.DefaultLBProxyModeEnabled)
	if err != nil {
		return nil, err
	}

	algorithm := stringOr(ann[consts.LBAlgorithmAnnotation], cfg.DefaultLBAlgorithm)
	if _, err := algorithmType(algorithm); err != nil {
		return nil, err
	}

	networkName := stringOr(ann[consts.LBNetworkAnnotation], cfg.DefaultNetwork)
	name := stringOr(ann[consts.LBNameAnnotation], svc.Name)

	return &DesiredLoadBalancer{
		Name:          name,
		Services:      map[int32]int32{},
		PrivateIP:     ann[consts.LBPrivateIPAnnotation],
		CheckInterval: interval,
		Timeout:       timeout,
		Retries:       retries,
		ProxyMode:     proxyMode,
		Location:      stringOr(ann[consts.LBLocationAnnotation], cfg.DefaultLBLocation),
		BalancerType:  stringOr(ann[consts.LBBalancerTypeAnnotation], cfg.DefaultLBType),
		Algorithm:     algorithm,
		NetworkName:   networkName,
	}, nil
}

// AddService registers a listen_port -> destination_port mapping.
func (d *DesiredLoadBalancer) AddService(listenPort, destinationPort int32) {
	d.Services[listenPort] = destinationPort
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func annotationInt32(ann map[string]string, key string, def int32) (int32, error) {
	v, ok := ann[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, lberror.InvalidInputf("annotation %s=%q: %v", key, v, err)
	}
	return int32(n), nil
}

func annotationBool(ann map[string]string, key string, def bool) (bool, error) {
	v, ok := ann[key]
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, lberror.InvalidInputf("annotation %s=%q: %v", key, v, err)
	}
	return b, nil
}

func algorithmType(s string) (hcloud.LoadBalancerAlgorithmType, error) {
	switch s {
	case AlgorithmRoundRobin:
		return hcloud.LoadBalancerAlgorithmTypeRoundRobin, nil
	case AlgorithmLeastConnections:
		return hcloud.LoadBalancerAlgorithmTypeLeastConnections, nil
	default:
		return "", lberror.InvalidInputf("unknown load balancer algorithm %q", s)
	}
}

func wrapUpstream(err error, msg string) error {
	if err == nil {
		return nil
	}
	return lberror.Upstream(errors.Wrap(err, msg))
}

// Reconcile converges the HCloud load balancer named d.Name toward this
// desired state and returns the load balancer as observed before any of the
// sub-steps ran, except for its algorithm, which reconcileAlgorithm updates in
// place. That's safe because none of the sub-steps touch public_net, the only
// part of the observed object the caller needs afterward.
func (d *DesiredLoadBalancer) Reconcile(ctx context.Context, c hcloudclient.Client) (*hcloud.LoadBalancer, error) {
	observed, err := d.getOrCreate(ctx, c)
	if err != nil {
		return nil, err
	}

	if err := d.reconcileAlgorithm(ctx, c, observed); err != nil {
		return nil, err
	}
	if err := d.reconcileType(ctx, c, observed); err != nil {
		return nil, err
	}
	if err := d.reconcileNetwork(ctx, c, observed); err != nil {
		return nil, err
	}
	if err := d.reconcileServices(ctx, c, observed); err != nil {
		return nil, err
	}
	if err := d.reconcileTargets(ctx, c, observed); err != nil {
		return nil, err
	}

	return observed, nil
}

func (d *DesiredLoadBalancer) getOrCreate(ctx context.Context, c hcloudclient.Client) (*hcloud.LoadBalancer, error) {
	lbs, err := c.ListLoadBalancers(ctx, hcloud.LoadBalancerListOpts{Name: d.Name})
	if err != nil {
		return nil, wrapUpstream(err, "listing load balancers")
	}
	if len(lbs) > 1 {
		return nil, lberror.Skip("multiple load balancers named %q", d.Name)
	}
	if len(lbs) == 1 {
		return lbs[0], nil
	}

	algo, err := algorithmType(d.Algorithm)
	if err != nil {
		return nil, err
	}

	created, err := c.CreateLoadBalancer(ctx, hcloud.LoadBalancerCreateOpts{
		Name:             d.Name,
		Algorithm:        &hcloud.LoadBalancerAlgorithm{Type: algo},
		LoadBalancerType: &hcloud.LoadBalancerType{Name: d.BalancerType},
		Location:         &hcloud.Location{Name: d.Location},
		PublicInterface:  hcloud.Ptr(true),
	})
	if err != nil {
		return nil, wrapUpstream(err, "creating load balancer")
	}
	return created, nil
}

func (d *DesiredLoadBalancer) reconcileAlgorithm(ctx context.Context, c hcloudclient.Client, observed *hcloud.LoadBalancer) error {
	want, err := algorithmType(d.Algorithm)
	if err != nil {
		return err
	}
	if observed.Algorithm.Type == want {
		return nil
	}
	if err := c.ChangeLoadBalancerAlgorithm(ctx, observed, hcloud.LoadBalancerChangeAlgorithmOpts{Type: want}); err != nil {
		return wrapUpstream(err, "changing load balancer algorithm")
	}
	observed.Algorithm.Type = want
	return nil
}

func (d *DesiredLoadBalancer) reconcileType(ctx context.Context, c hcloudclient.Client, observed *hcloud.LoadBalancer) error {
	if observed.LoadBalancerType != nil && observed.LoadBalancerType.Name == d.BalancerType {
		return nil
	}
	if err := c.ChangeLoadBalancerType(ctx, observed, hcloud.LoadBalancerChangeTypeOpts{
		LoadBalancerType: &hcloud.LoadBalancerType{Name: d.BalancerType},
	}); err != nil {
		return wrapUpstream(err, "changing load balancer type")
	}
	return nil
}

// resolveNetwork implements get_network: resolves d.NetworkName to the single
// matching HCloud network, or nil if no network is configured.
func (d *DesiredLoadBalancer) resolveNetwork(ctx context.Context, c hcloudclient.Client) (*hcloud.Network, error) {
	if d.NetworkName == "" {
		return nil, nil
	}
	networks, err := c.ListNetworks(ctx, hcloud.NetworkListOpts{Name: d.NetworkName})
	if err != nil {
		return nil, wrapUpstream(err, "listing networks")
	}
	if len(networks) == 0 {
		return nil, lberror.MissingPrecondition("no network named %q", d.NetworkName)
	}
	if len(networks) > 1 {
		return nil, lberror.MissingPrecondition("multiple networks named %q", d.NetworkName)
	}
	return networks[0], nil
}

func (d *DesiredLoadBalancer) reconcileNetwork(ctx context.Context, c hcloudclient.Client, observed *hcloud.LoadBalancer) error {
	if d.NetworkName == "" && len(observed.PrivateNet) == 0 {
		return nil
	}

	network, err := d.resolveNetwork(ctx, c)
	if err != nil {
		return err
	}

	var errs []error
	satisfactory := false
	for _, pn := range observed.PrivateNet {
		if d.privateNetSatisfactory(pn, network) {
			satisfactory = true
			continue
		}
		if err := c.DetachLoadBalancerFromNetwork(ctx, observed, hcloud.LoadBalancerDetachFromNetworkOpts{Network: pn.Network}); err != nil {
			errs = append(errs, wrapUpstream(err, "detaching load balancer from network"))
		}
	}

	if !satisfactory && network != nil {
		opts := hcloud.LoadBalancerAttachToNetworkOpts{Network: network}
		if d.PrivateIP != "" {
			opts.IP = net.ParseIP(d.PrivateIP)
		}
		if err := c.AttachLoadBalancerToNetwork(ctx, observed, opts); err != nil {
			errs = append(errs, wrapUpstream(err, "attaching load balancer to network"))
		}
	}

	return kerrors.NewAggregate(errs)
}

func (d *DesiredLoadBalancer) privateNetSatisfactory(pn hcloud.LoadBalancerPrivateNet, desired *hcloud.Network) bool {
	if desired == nil || pn.Network == nil || pn.Network.ID != desired.ID {
		return false
	}
	if d.PrivateIP != "" && pn.IP.String() != d.PrivateIP {
		return false
	}
	return true
}

func (d *DesiredLoadBalancer) reconcileServices(ctx context.Context, c hcloudclient.Client, observed *hcloud.LoadBalancer) error {
	var errs []error

	observedPorts := make(map[int32]struct{}, len(observed.Services))
	for _, svc := range observed.Services {
		listenPort := int32(svc.ListenPort)
		observedPorts[listenPort] = struct{}{}

		destPort, wanted := d.Services[listenPort]
		switch {
		case !wanted:
			if err := c.DeleteServiceFromLoadBalancer(ctx, observed, svc.ListenPort); err != nil {
				errs = append(errs, wrapUpstream(err, "deleting load balancer service"))
			}
		case !d.serviceMatches(svc, destPort):
			if err := c.UpdateServiceOnLoadBalancer(ctx, observed, svc.ListenPort, d.serviceUpdateOpts(destPort)); err != nil {
				errs = append(errs, wrapUpstream(err, "updating load balancer service"))
			}
		}
	}

	for listenPort, destPort := range d.Services {
		if _, exists := observedPorts[listenPort]; exists {
			continue
		}
		if err := c.AddServiceToLoadBalancer(ctx, observed, d.serviceOpts(listenPort, destPort)); err != nil {
			errs = append(errs, wrapUpstream(err, "adding load balancer service"))
		}
	}

	return kerrors.NewAggregate(errs)
}

// serviceMatches reports whether an observed service already satisfies the
// desired configuration for destPort, so that reconcileServices can leave it
// untouched instead of issuing an update.
func (d *DesiredLoadBalancer) serviceMatches(svc hcloud.LoadBalancerService, destPort int32) bool {
	hc := svc.HealthCheck
	return svc.Protocol == hcloud.LoadBalancerServiceProtocolTCP &&
		int32(svc.DestinationPort) == destPort &&
		svc.Proxyprotocol == d.ProxyMode &&
		hc.Protocol == hcloud.LoadBalancerServiceProtocolTCP &&
		int32(hc.Port) == destPort &&
		int32(hc.Interval/time.Second) == d.CheckInterval &&
		int32(hc.Retries) == d.Retries &&
		int32(hc.Timeout/time.Second) == d.Timeout
}

func (d *DesiredLoadBalancer) serviceOpts(listenPort, destPort int32) hcloud.LoadBalancerAddServiceOpts {
	return hcloud.LoadBalancerAddServiceOpts{
		Protocol:        hcloud.LoadBalancerServiceProtocolTCP,
		ListenPort:      hcloud.Ptr(int(listenPort)),
		DestinationPort: hcloud.Ptr(int(destPort)),
		Proxyprotocol:   hcloud.Ptr(d.ProxyMode),
		HealthCheck: &hcloud.LoadBalancerAddServiceOptsHealthCheck{
			Protocol: hcloud.LoadBalancerServiceProtocolTCP,
			Port:     hcloud.Ptr(int(destPort)),
			Interval: hcloud.Ptr(time.Duration(d.CheckInterval) * time.Second),
			Timeout:  hcloud.Ptr(time.Duration(d.Timeout) * time.Second),
			Retries:  hcloud.Ptr(int(d.Retries)),
		},
	}
}

func (d *DesiredLoadBalancer) serviceUpdateOpts(destPort int32) hcloud.LoadBalancerUpdateServiceOpts {
	return hcloud.LoadBalancerUpdateServiceOpts{
		Protocol:        hcloud.LoadBalancerServiceProtocolTCP,
		DestinationPort: hcloud.Ptr(int(destPort)),
		Proxyprotocol:   hcloud.Ptr(d.ProxyMode),
		HealthCheck: &hcloud.LoadBalancerUpdateServiceOptsHealthCheck{
			Protocol: hcloud.LoadBalancerServiceProtocolTCP,
			Port:     hcloud.Ptr(int(destPort)),
			Interval: hcloud.Ptr(time.Duration(d.CheckInterval) * time.Second),
			Timeout:  hcloud.Ptr(time.Duration(d.Timeout) * time.Second),
			Retries:  hcloud.Ptr(int(d.Retries)),
		},
	}
}

func (d *DesiredLoadBalancer) reconcileTargets(ctx context.Context, c hcloudclient.Client, observed *hcloud.LoadBalancer) error {
	var errs []error

	observedIPs := make(map[string]struct{}, len(observed.Targets))
	for _, t := range observed.Targets {
		if t.IP == nil {
			continue
		}
		observedIPs[t.IP.IP] = struct{}{}
		if !d.hasTarget(t.IP.IP) {
			if err := c.DeleteIPTargetOfLoadBalancer(ctx, observed, net.ParseIP(t.IP.IP)); err != nil {
				errs = append(errs, wrapUpstream(err, "removing load balancer target"))
			}
		}
	}

	for _, ip := range d.Targets {
		if _, exists := observedIPs[ip]; exists {
			continue
		}
		if err := c.AddIPTargetToLoadBalancer(ctx, hcloud.LoadBalancerAddIPTargetOpts{IP: net.ParseIP(ip)}, observed); err != nil {
			errs = append(errs, wrapUpstream(err, "adding load balancer target"))
		}
	}

	return kerrors.NewAggregate(errs)
}

func (d *DesiredLoadBalancer) hasTarget(ip string) bool {
	for _, t := range d.Targets {
		if t == ip {
			return true
		}
	}
	return false
}

// Cleanup tears down the HCloud load balancer named d.Name: its services,
// its targets, then the load balancer itself. It is idempotent: a missing
// load balancer is treated as already cleaned up.
func (d *DesiredLoadBalancer) Cleanup(ctx context.Context, c hcloudclient.Client) error {
	lbs, err := c.ListLoadBalancers(ctx, hcloud.LoadBalancerListOpts{Name: d.Name})
	if err != nil {
		return wrapUpstream(err, "listing load balancers")
	}
	if len(lbs) == 0 {
		return nil
	}
	lb := lbs[0]

	var errs []error
	for _, svc := range lb.Services {
		if err := c.DeleteServiceFromLoadBalancer(ctx, lb, svc.ListenPort); err != nil {
			errs = append(errs, wrapUpstream(err, "deleting load balancer service"))
		}
	}
	for _, t := range lb.Targets {
		if t.IP == nil {
			continue
		}
		if err := c.DeleteIPTargetOfLoadBalancer(ctx, lb, net.ParseIP(t.IP.IP)); err != nil {
			errs = append(errs, wrapUpstream(err, "removing load balancer target"))
		}
	}
	if err := kerrors.NewAggregate(errs); err != nil {
		return err
	}

	if err := c.DeleteLoadBalancer(ctx, lb.ID); err != nil {
		return wrapUpstream(err, "deleting load balancer")
	}
	return nil
}
