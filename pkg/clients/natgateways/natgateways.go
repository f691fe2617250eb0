/*
Copyright 2019 Alexander Eldeib.
*/

package natgateways

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/services/network/mgmt/2019-04-01/network"

	"github.com/alexeldeib/dspm-netconfig/pkg/config"
)

type Client struct {
	factory  factoryFunc
	internal network.NatGatewaysClient
	config   *config.Config
}

type factoryFunc func(subscriptionID string) network.NatGatewaysClient

// New returns a new client able to authenticate to multiple Azure subscriptions using the provided configuration.
func New(configuration *config.Config) *Client {
	return NewWithFactory(configuration, func(subscriptionID string) network.NatGatewaysClient {
		return network.NewNatGatewaysClientWithBaseURI(configuration.BaseURI(), subscriptionID)
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

// List returns the NAT gateways of a resource group.
func (c *Client) List(ctx context.Context, group string) ([]network.NatGateway, error) {
	var gateways []network.NatGateway
	iter, err := c.internal.ListComplete(ctx, group)
	if err != nil {
		return nil, err
	}
	for iter.NotDone() {
		gateways = append(gateways, iter.Value())
		if err := iter.NextWithContext(ctx); err != nil {
			return nil, err
		}
	}
	return gateways, nil
}
