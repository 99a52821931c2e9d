/*
Copyright 2022 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package fake implements an in-memory hcloudclient.Client for black-box tests.
package fake

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/hcloud-lb/robotlb/pkg/hcloudclient"
)

type loadBalancerCache struct {
	idMap   map[int64]*hcloud.LoadBalancer
	nameMap map[string]struct{}
}

type networkCache struct {
	idMap   map[int64]*hcloud.Network
	nameMap map[string]struct{}
}

type cacheHCloudClient struct {
	mu                    sync.Mutex
	loadBalancerCache     loadBalancerCache
	networkCache          networkCache
	loadBalancerIDCounter int64
	networkIDCounter      int64
}

var cacheHCloudClientInstance = newCache()

func newCache() *cacheHCloudClient {
	return &cacheHCloudClient{
		loadBalancerCache: loadBalancerCache{
			idMap:   make(map[int64]*hcloud.LoadBalancer),
			nameMap: make(map[string]struct{}),
		},
		networkCache: networkCache{
			idMap:   make(map[int64]*hcloud.Network),
			nameMap: make(map[string]struct{}),
		},
	}
}

type cacheHCloudClientFactory struct{}

// NewHCloudClientFactory returns a Factory producing fake, in-memory Clients.
func NewHCloudClientFactory() hcloudclient.Factory {
	return &cacheHCloudClientFactory{}
}

var _ hcloudclient.Factory = &cacheHCloudClientFactory{}

// NewClient returns the shared fake client instance, regardless of token.
func (f *cacheHCloudClientFactory) NewClient(string) hcloudclient.Client {
	return cacheHCloudClientInstance
}

// SeedNetwork registers a network directly in the cache, for tests that need
// a pre-existing network to attach a load balancer to.
func SeedNetwork(n *hcloud.Network) {
	cacheHCloudClientInstance.mu.Lock()
	defer cacheHCloudClientInstance.mu.Unlock()
	cacheHCloudClientInstance.networkCache.idMap[n.ID] = n
	cacheHCloudClientInstance.networkCache.nameMap[n.Name] = struct{}{}
}

var _ hcloudclient.Client = &cacheHCloudClient{}

// Close resets all in-memory state, so each test starts from a clean slate.
func (c *cacheHCloudClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loadBalancerCache = loadBalancerCache{
		idMap:   make(map[int64]*hcloud.LoadBalancer),
		nameMap: make(map[string]struct{}),
	}
	c.networkCache = networkCache{
		idMap:   make(map[int64]*hcloud.Network),
		nameMap: make(map[string]struct{}),
	}
	c.loadBalancerIDCounter = 0
	c.networkIDCounter = 0
}

func labelSelectorMatches(selector string, labels map[string]string) (bool, error) {
	if selector == "" {
		return true, nil
	}
	for _, clause := range strings.Split(selector, ",") {
		clause = strings.TrimSpace(clause)
		switch {
		case strings.Contains(clause, "!="):
			parts := strings.SplitN(clause, "!=", 2)
			if labels[parts[0]] == parts[1] {
				return false, nil
			}
		case strings.Contains(clause, "="):
			parts := strings.SplitN(clause, "=", 2)
			if labels[parts[0]] != parts[1] {
				return false, nil
			}
		case strings.HasPrefix(clause, "!"):
			if _, found := labels[strings.TrimPrefix(clause, "!")]; found {
				return false, nil
			}
		default:
			if _, found := labels[clause]; !found {
				return false, nil
			}
		}
	}
	return true, nil
}

func (c *cacheHCloudClient) CreateLoadBalancer(_ context.Context, opts hcloud.LoadBalancerCreateOpts) (*hcloud.LoadBalancer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, found := c.loadBalancerCache.nameMap[opts.Name]; found {
		return nil, fmt.Errorf("failed to create lb: already exists")
	}

	c.loadBalancerIDCounter++
	lb := &hcloud.LoadBalancer{
		ID:               c.loadBalancerIDCounter,
		Name:             opts.Name,
		Labels:           opts.Labels,
		Algorithm:        *opts.Algorithm,
		LoadBalancerType: opts.LoadBalancerType,
		Location:         opts.Location,
		PublicNet: hcloud.LoadBalancerPublicNet{
			IPv4: hcloud.LoadBalancerPublicNetIPv4{IP: net.ParseIP("1.2.3.4")},
			IPv6: hcloud.LoadBalancerPublicNetIPv6{IP: net.ParseIP("2001:db8::1")},
		},
	}

	c.loadBalancerCache.idMap[lb.ID] = lb
	c.loadBalancerCache.nameMap[lb.Name] = struct{}{}
	return lb, nil
}

func (c *cacheHCloudClient) DeleteLoadBalancer(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lb, found := c.loadBalancerCache.idMap[id]
	if !found {
		return hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "not found"}
	}
	delete(c.loadBalancerCache.nameMap, lb.Name)
	delete(c.loadBalancerCache.idMap, id)
	return nil
}

func (c *cacheHCloudClient) ListLoadBalancers(_ context.Context, opts hcloud.LoadBalancerListOpts) ([]*hcloud.LoadBalancer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lbs := make([]*hcloud.LoadBalancer, 0, len(c.loadBalancerCache.idMap))
	for _, lb := range c.loadBalancerCache.idMap {
		if opts.Name != "" && lb.Name != opts.Name {
			continue
		}
		ok, err := labelSelectorMatches(opts.LabelSelector, lb.Labels)
		if err != nil {
			return nil, err
		}
		if ok {
			lbs = append(lbs, lb)
		}
	}
	return lbs, nil
}

func (c *cacheHCloudClient) AttachLoadBalancerToNetwork(_ context.Context, lb *hcloud.LoadBalancer, opts hcloud.LoadBalancerAttachToNetworkOpts) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, found := c.loadBalancerCache.idMap[lb.ID]
	if !found {
		return hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "not found"}
	}
	network, found := c.networkCache.idMap[opts.Network.ID]
	if !found {
		return hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "not found"}
	}
	for _, pn := range current.PrivateNet {
		if pn.Network.ID == network.ID {
			return hcloud.Error{Code: hcloud.ErrorCodeLoadBalancerAlreadyAttached, Message: "already attached"}
		}
	}

	ip := net.ParseIP("10.0.0.2")
	if opts.IP != nil {
		ip = opts.IP
	}
	current.PrivateNet = append(current.PrivateNet, hcloud.LoadBalancerPrivateNet{Network: network, IP: ip})
	return nil
}

func (c *cacheHCloudClient) DetachLoadBalancerFromNetwork(_ context.Context, lb *hcloud.LoadBalancer, opts hcloud.LoadBalancerDetachFromNetworkOpts) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, found := c.loadBalancerCache.idMap[lb.ID]
	if !found {
		return hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "not found"}
	}
	for i, pn := range current.PrivateNet {
		if pn.Network.ID == opts.Network.ID {
			current.PrivateNet = append(current.PrivateNet[:i], current.PrivateNet[i+1:]...)
			return nil
		}
	}
	return hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "not attached"}
}

func (c *cacheHCloudClient) ChangeLoadBalancerType(_ context.Context, lb *hcloud.LoadBalancer, opts hcloud.LoadBalancerChangeTypeOpts) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, found := c.loadBalancerCache.idMap[lb.ID]
	if !found {
		return hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "not found"}
	}
	current.LoadBalancerType = opts.LoadBalancerType
	return nil
}

func (c *cacheHCloudClient) ChangeLoadBalancerAlgorithm(_ context.Context, lb *hcloud.LoadBalancer, opts hcloud.LoadBalancerChangeAlgorithmOpts) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, found := c.loadBalancerCache.idMap[lb.ID]
	if !found {
		return hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "not found"}
	}
	current.Algorithm.Type = opts.Type
	return nil
}

func (c *cacheHCloudClient) AddIPTargetToLoadBalancer(_ context.Context, opts hcloud.LoadBalancerAddIPTargetOpts, lb *hcloud.LoadBalancer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, found := c.loadBalancerCache.idMap[lb.ID]
	if !found {
		return hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "not found"}
	}
	for _, t := range current.Targets {
		if t.Type == hcloud.LoadBalancerTargetTypeIP && t.IP.IP == opts.IP.String() {
			return hcloud.Error{Code: hcloud.ErrorCodeServerAlreadyAdded, Message: "already added"}
		}
	}
	current.Targets = append(current.Targets, hcloud.LoadBalancerTarget{
		Type: hcloud.LoadBalancerTargetTypeIP,
		IP:   &hcloud.LoadBalancerTargetIP{IP: opts.IP.String()},
	})
	return nil
}

func (c *cacheHCloudClient) DeleteIPTargetOfLoadBalancer(_ context.Context, lb *hcloud.LoadBalancer, ip net.IP) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, found := c.loadBalancerCache.idMap[lb.ID]
	if !found {
		return hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "not found"}
	}
	for i, t := range current.Targets {
		if t.Type == hcloud.LoadBalancerTargetTypeIP && t.IP.IP == ip.String() {
			current.Targets[i] = current.Targets[len(current.Targets)-1]
			current.Targets = current.Targets[:len(current.Targets)-1]
			return nil
		}
	}
	return hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "not found"}
}

func (c *cacheHCloudClient) AddServiceToLoadBalancer(_ context.Context, lb *hcloud.LoadBalancer, opts hcloud.LoadBalancerAddServiceOpts) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, found := c.loadBalancerCache.idMap[lb.ID]
	if !found {
		return hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "not found"}
	}
	if opts.ListenPort == nil || *opts.ListenPort == 0 {
		return fmt.Errorf("cannot add service with listenPort 0")
	}
	for _, s := range current.Services {
		if s.ListenPort == *opts.ListenPort {
			return fmt.Errorf("already added")
		}
	}

	svc := hcloud.LoadBalancerService{ListenPort: *opts.ListenPort}
	if opts.DestinationPort != nil {
		svc.DestinationPort = *opts.DestinationPort
	}
	if opts.Protocol != "" {
		svc.Protocol = opts.Protocol
	}
	if opts.Proxyprotocol != nil {
		svc.Proxyprotocol = *opts.Proxyprotocol
	}
	if opts.HealthCheck != nil {
		svc.HealthCheck = hcloud.LoadBalancerServiceHealthCheck{
			Protocol: opts.HealthCheck.Protocol,
			Port:     intOrZero(opts.HealthCheck.Port),
			Interval: durationOrZero(opts.HealthCheck.Interval),
			Retries:  intOrZero(opts.HealthCheck.Retries),
			Timeout:  durationOrZero(opts.HealthCheck.Timeout),
		}
	}
	current.Services = append(current.Services, svc)
	return nil
}

func (c *cacheHCloudClient) DeleteServiceFromLoadBalancer(_ context.Context, lb *hcloud.LoadBalancer, listenPort int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, found := c.loadBalancerCache.idMap[lb.ID]
	if !found {
		return hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "not found"}
	}
	for i, s := range current.Services {
		if s.ListenPort == listenPort {
			current.Services[i] = current.Services[len(current.Services)-1]
			current.Services = current.Services[:len(current.Services)-1]
			return nil
		}
	}
	return hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "not found"}
}

func (c *cacheHCloudClient) UpdateServiceOnLoadBalancer(_ context.Context, lb *hcloud.LoadBalancer, listenPort int, opts hcloud.LoadBalancerUpdateServiceOpts) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, found := c.loadBalancerCache.idMap[lb.ID]
	if !found {
		return hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "not found"}
	}
	for i, s := range current.Services {
		if s.ListenPort != listenPort {
			continue
		}
		if opts.DestinationPort != nil {
			s.DestinationPort = *opts.DestinationPort
		}
		if opts.Protocol != "" {
			s.Protocol = opts.Protocol
		}
		if opts.Proxyprotocol != nil {
			s.Proxyprotocol = *opts.Proxyprotocol
		}
		if opts.HealthCheck != nil {
			s.HealthCheck = hcloud.LoadBalancerServiceHealthCheck{
				Protocol: opts.HealthCheck.Protocol,
				Port:     intOrZero(opts.HealthCheck.Port),
				Interval: durationOrZero(opts.HealthCheck.Interval),
				Retries:  intOrZero(opts.HealthCheck.Retries),
				Timeout:  durationOrZero(opts.HealthCheck.Timeout),
			}
		}
		current.Services[i] = s
		return nil
	}
	return hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "not found"}
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func durationOrZero(p *time.Duration) time.Duration {
	if p == nil {
		return 0
	}
	return *p
}

func (c *cacheHCloudClient) GetNetwork(_ context.Context, id int64) (*hcloud.Network, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, found := c.networkCache.idMap[id]
	if !found {
		return nil, hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "not found"}
	}
	return n, nil
}

func (c *cacheHCloudClient) ListNetworks(_ context.Context, opts hcloud.NetworkListOpts) ([]*hcloud.Network, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	networks := make([]*hcloud.Network, 0, len(c.networkCache.idMap))
	for _, n := range c.networkCache.idMap {
		if opts.Name != "" && n.Name != opts.Name {
			continue
		}
		ok, err := labelSelectorMatches(opts.LabelSelector, n.Labels)
		if err != nil {
			return nil, err
		}
		if ok {
			networks = append(networks, n)
		}
	}
	return networks, nil
}
