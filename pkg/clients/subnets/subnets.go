/*
Copyright 2019 Alexander Eldeib.
*/

package subnets

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/services/network/mgmt/2019-04-01/network"

	"github.com/alexeldeib/dspm-netconfig/pkg/config"
)

const expand string = ""

type Client struct {
	factory  factoryFunc
	internal network.SubnetsClient
	config   *config.Config
}

type factoryFunc func(subscriptionID string) network.SubnetsClient

// New returns a new client able to authenticate to multiple Azure subscriptions using the provided configuration.
func New(configuration *config.Config) *Client {
	return NewWithFactory(configuration, func(subscriptionID string) network.SubnetsClient {
		return network.NewSubnetsClientWithBaseURI(configuration.BaseURI(), subscriptionID)
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

// Get returns a subnet.
func (c *Client) Get(ctx context.Context, group, vnet, name string) (network.Subnet, error) {
	return c.internal.Get(ctx, group, vnet, name, expand)
}

// CreateOrUpdate persists a subnet and waits for the operation to finish.
func (c *Client) CreateOrUpdate(ctx context.Context, group, vnet, name string, remote network.Subnet) (network.Subnet, error) {
	future, err := c.internal.CreateOrUpdate(ctx, group, vnet, name, remote)
	if err != nil {
		return network.Subnet{}, err
	}
	if err := future.WaitForCompletionRef(ctx, c.internal.Client); err != nil {
		return network.Subnet{}, err
	}
	return future.Result(c.internal)
}
