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

// Package hcloudclient defines and implements the interface for talking to the Hetzner Cloud API.
package hcloudclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"runtime/debug"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/hcloud-lb/robotlb/pkg/version"
)

const errStringUnauthorized = "(unauthorized)"

// ErrUnauthorized means that the API call is unauthorized.
var ErrUnauthorized = fmt.Errorf("unauthorized")

// Client collects the hcloud API calls used by the load balancer controller.
//
// It deliberately covers only the LoadBalancer and Network surface: this
// controller never creates servers, SSH keys or placement groups, it only
// adds node IP addresses as targets.
type Client interface {
	Close()

	CreateLoadBalancer(context.Context, hcloud.LoadBalancerCreateOpts) (*hcloud.LoadBalancer, error)
	DeleteLoadBalancer(context.Context, int64) error
	ListLoadBalancers(context.Context, hcloud.LoadBalancerListOpts) ([]*hcloud.LoadBalancer, error)

	AttachLoadBalancerToNetwork(context.Context, *hcloud.LoadBalancer, hcloud.LoadBalancerAttachToNetworkOpts) error
	DetachLoadBalancerFromNetwork(context.Context, *hcloud.LoadBalancer, hcloud.LoadBalancerDetachFromNetworkOpts) error
	ChangeLoadBalancerType(context.Context, *hcloud.LoadBalancer, hcloud.LoadBalancerChangeTypeOpts) error
	ChangeLoadBalancerAlgorithm(context.Context, *hcloud.LoadBalancer, hcloud.LoadBalancerChangeAlgorithmOpts) error

	// Targets are always IP targets: this controller never adds a node as a
	// server-ID target, only as the IP address HCloud should forward to.
	AddIPTargetToLoadBalancer(context.Context, hcloud.LoadBalancerAddIPTargetOpts, *hcloud.LoadBalancer) error
	DeleteIPTargetOfLoadBalancer(context.Context, *hcloud.LoadBalancer, net.IP) error

	AddServiceToLoadBalancer(context.Context, *hcloud.LoadBalancer, hcloud.LoadBalancerAddServiceOpts) error
	DeleteServiceFromLoadBalancer(context.Context, *hcloud.LoadBalancer, int) error
	UpdateServiceOnLoadBalancer(context.Context, *hcloud.LoadBalancer, int, hcloud.LoadBalancerUpdateServiceOpts) error

	GetNetwork(context.Context, int64) (*hcloud.Network, error)
	ListNetworks(context.Context, hcloud.NetworkListOpts) ([]*hcloud.Network, error)
}

// Factory creates new Client objects bound to a single API token.
type Factory interface {
	NewClient(hcloudToken string) Client
}

// LoggingTransport wraps an http.RoundTripper to log every hcloud API call.
type LoggingTransport struct {
	roundTripper http.RoundTripper
	hcloudToken  string
}

var replaceHex = regexp.MustCompile(`0x[0123456789abcdef]+`)

// RoundTrip logs every hcloud API call: failures at info level, successful
// calls at V(1).
func (lt *LoggingTransport) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	stack := replaceHex.ReplaceAllString(string(debug.Stack()), "0xX")
	resp, err = lt.roundTripper.RoundTrip(req)
	token := lt.hcloudToken[:5] + "..."
	logger := ctrl.LoggerFrom(req.Context()).WithName("hcloud-api")
	if err != nil {
		logger.Info("hcloud API call failed", "err", err, "method", req.Method, "url", req.URL, "hcloud_token", token, "stack", stack)
		return resp, err
	}
	logger.V(1).Info("hcloud API called", "statusCode", resp.StatusCode, "method", req.Method, "url", req.URL, "hcloud_token", token, "stack", stack)
	return resp, nil
}

// DebugAPICalls enables per-request logging of outgoing hcloud API calls.
var DebugAPICalls bool

type factory struct{}

var _ Factory = &factory{}

// NewFactory returns the production Client factory, backed by the real hcloud API.
func NewFactory() Factory {
	return &factory{}
}

// NewClient builds an hcloud client authenticated with hcloudToken.
func (f *factory) NewClient(hcloudToken string) Client {
	httpClient := &http.Client{}
	if DebugAPICalls {
		httpClient = &http.Client{
			Transport: &LoggingTransport{
				roundTripper: http.DefaultTransport,
				hcloudToken:  hcloudToken,
			},
		}
	}
	return &realClient{client: hcloud.NewClient(
		hcloud.WithToken(hcloudToken),
		hcloud.WithApplication("robotlb", version.Get()),
		hcloud.WithHTTPClient(httpClient),
	)}
}

var _ Client = &realClient{}

type realClient struct {
	client *hcloud.Client
}

func (c *realClient) Close() {}

func wrapUnauthorized(err error) error {
	if err != nil && strings.Contains(err.Error(), errStringUnauthorized) {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return err
}

func (c *realClient) CreateLoadBalancer(ctx context.Context, opts hcloud.LoadBalancerCreateOpts) (*hcloud.LoadBalancer, error) {
	res, _, err := c.client.LoadBalancer.Create(ctx, opts)
	return res.LoadBalancer, wrapUnauthorized(err)
}

func (c *realClient) DeleteLoadBalancer(ctx context.Context, id int64) error {
	_, err := c.client.LoadBalancer.Delete(ctx, &hcloud.LoadBalancer{ID: id})
	return err
}

func (c *realClient) ListLoadBalancers(ctx context.Context, opts hcloud.LoadBalancerListOpts) ([]*hcloud.LoadBalancer, error) {
	resp, err := c.client.LoadBalancer.AllWithOpts(ctx, opts)
	return resp, wrapUnauthorized(err)
}

func (c *realClient) AttachLoadBalancerToNetwork(ctx context.Context, lb *hcloud.LoadBalancer, opts hcloud.LoadBalancerAttachToNetworkOpts) error {
	_, _, err := c.client.LoadBalancer.AttachToNetwork(ctx, lb, opts)
	return wrapUnauthorized(err)
}

func (c *realClient) DetachLoadBalancerFromNetwork(ctx context.Context, lb *hcloud.LoadBalancer, opts hcloud.LoadBalancerDetachFromNetworkOpts) error {
	_, _, err := c.client.LoadBalancer.DetachFromNetwork(ctx, lb, opts)
	return wrapUnauthorized(err)
}

func (c *realClient) ChangeLoadBalancerType(ctx context.Context, lb *hcloud.LoadBalancer, opts hcloud.LoadBalancerChangeTypeOpts) error {
	_, _, err := c.client.LoadBalancer.ChangeType(ctx, lb, opts)
	return wrapUnauthorized(err)
}

func (c *realClient) ChangeLoadBalancerAlgorithm(ctx context.Context, lb *hcloud.LoadBalancer, opts hcloud.LoadBalancerChangeAlgorithmOpts) error {
	_, _, err := c.client.LoadBalancer.ChangeAlgorithm(ctx, lb, opts)
	return wrapUnauthorized(err)
}

func (c *realClient) AddIPTargetToLoadBalancer(ctx context.Context, opts hcloud.LoadBalancerAddIPTargetOpts, lb *hcloud.LoadBalancer) error {
	_, _, err := c.client.LoadBalancer.AddIPTarget(ctx, lb, opts)
	return wrapUnauthorized(err)
}

func (c *realClient) DeleteIPTargetOfLoadBalancer(ctx context.Context, lb *hcloud.LoadBalancer, ip net.IP) error {
	_, _, err := c.client.LoadBalancer.RemoveIPTarget(ctx, lb, ip)
	return wrapUnauthorized(err)
}

func (c *realClient) AddServiceToLoadBalancer(ctx context.Context, lb *hcloud.LoadBalancer, opts hcloud.LoadBalancerAddServiceOpts) error {
	_, _, err := c.client.LoadBalancer.AddService(ctx, lb, opts)
	return wrapUnauthorized(err)
}

func (c *realClient) DeleteServiceFromLoadBalancer(ctx context.Context, lb *hcloud.LoadBalancer, listenPort int) error {
	_, _, err := c.client.LoadBalancer.DeleteService(ctx, lb, listenPort)
	return wrapUnauthorized(err)
}

func (c *realClient) UpdateServiceOnLoadBalancer(ctx context.Context, lb *hcloud.LoadBalancer, listenPort int, opts hcloud.LoadBalancerUpdateServiceOpts) error {
	_, _, err := c.client.LoadBalancer.UpdateService(ctx, lb, listenPort, opts)
	return wrapUnauthorized(err)
}

func (c *realClient) GetNetwork(ctx context.Context, id int64) (*hcloud.Network, error) {
	res, _, err := c.client.Network.GetByID(ctx, id)
	return res, wrapUnauthorized(err)
}

func (c *realClient) ListNetworks(ctx context.Context, opts hcloud.NetworkListOpts) ([]*hcloud.Network, error) {
	resp, err := c.client.Network.AllWithOpts(ctx, opts)
	return resp, wrapUnauthorized(err)
}

