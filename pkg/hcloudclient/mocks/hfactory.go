// Package mocks implements mockery-generated mocks of hcloudclient.Client.
package mocks

import "github.com/hcloud-lb/robotlb/pkg/hcloudclient"

type hcloudFactory struct {
	client *Client
}

// NewHcloudFactory wraps a mock Client in a hcloudclient.Factory returning it regardless of token.
func NewHcloudFactory(client *Client) hcloudclient.Factory {
	return &hcloudFactory{client: client}
}

var _ hcloudclient.Factory = &hcloudFactory{}

func (f *hcloudFactory) NewClient(_ string) hcloudclient.Client {
	return f.client
}
