/*
Copyright 2019 Alexander Eldeib.
*/

package virtualnetworks

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/services/network/mgmt/2019-04-01/network"

	"github.com/alexeldeib/dspm-netconfig/pkg/config"
)

const expand string = ""

type Client struct {
	factory  factoryFunc
	internal network.VirtualNetworksClient
	config   *config.Config
}

type factoryFunc func(subscriptionID string) network.VirtualNetworksClient

// New returns a new client able to authenticate to multiple Azure subscriptions using the provided configuration.
func New(configuration *config.Config) *Client {
	return NewWithFactory(configuration, func(subscriptionID string) network.VirtualNetworksClient {
		return network.NewVirtualNetworksClientWithBaseURI(configuration.BaseURI(), subscriptionID)
	})
}

// NewWithFactory returns an interface which can authorize the configured client to many subscriptions.
// It uses the factory argument to instantiate new clients for a specific subscription.
// This can be used to stub Azure client for testing.
func NewWithFactory(configuration *config.Config, factory factoryFunc) *Client {
	return &Client{
		config:  configuration,
		factory: factory,
	}
}

// ForSubscription authorizes the client for a given subscription
func (c *Client) ForSubscription(subID string) error {
	c.internal = c.factory(subID)
	return c.config.AuthorizeClient(&c.internal.Client)
}

// List returns every virtual network of a resource group, subnets included.
func (c *Client) List(ctx context.Context, group string) ([]network.VirtualNetwork, error) {
	var networks []network.VirtualNetwork
	iter, err := c.internal.ListComplete(ctx, group)
	if err != nil {
		return nil, err
	}
	for iter.NotDone() {
		networks = append(networks, iter.Value())
		if err := iter.NextWithContext(ctx); err != nil {
			return nil, err
		}
	}
	return networks, nil
}

// Get returns a virtual network.
func (c *Client) Get(ctx context.Context, group, name string) (network.VirtualNetwork, error) {
	return c.internal.Get(ctx, group, name, expand)
}

// CreateOrUpdate persists the complete network definition and waits for the operation to finish.
// Subnets missing from the definition are deleted by the provider.
func (c *Client) CreateOrUpdate(ctx context.Context, group, name string, remote network.VirtualNetwork) (network.VirtualNetwork, error) {
	future, err := c.internal.CreateOrUpdate(ctx, group, name, remote)
	if err != nil {
		return network.VirtualNetwork{}, err
	}
	if err := future.WaitForCompletionRef(ctx, c.internal.Client); err != nil {
		return network.VirtualNetwork{}, err
	}
	return future.Result(c.internal)
}
