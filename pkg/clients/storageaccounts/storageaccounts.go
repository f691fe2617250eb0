/*
Copyright 2019 Alexander Eldeib.
*/

package storageaccounts

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/services/storage/mgmt/2019-04-01/storage"

	"github.com/alexeldeib/dspm-netconfig/pkg/config"
)

type Client struct {
	factory  factoryFunc
	internal storage.AccountsClient
	config   *config.Config
}

type factoryFunc func(subscriptionID string) storage.AccountsClient

// New returns a new client able to authenticate to multiple Azure subscriptions using the provided configuration.
func New(configuration *config.Config) *Client {
	return NewWithFactory(configuration, func(subscriptionID string) storage.AccountsClient {
		return storage.NewAccountsClientWithBaseURI(configuration.BaseURI(), subscriptionID)
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

// List returns the storage accounts of a resource group.
func (c *Client) List(ctx context.Context, group string) ([]storage.Account, error) {
	result, err := c.internal.ListByResourceGroup(ctx, group)
	if err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, nil
	}
	return *result.Value, nil
}

// Get returns a storage account with its current network rules.
func (c *Client) Get(ctx context.Context, group, name string) (storage.Account, error) {
	return c.internal.GetProperties(ctx, group, name, "")
}

// Update patches a storage account. Properties missing from the parameters are left untouched.
func (c *Client) Update(ctx context.Context, group, name string, parameters storage.AccountUpdateParameters) (storage.Account, error) {
	return c.internal.Update(ctx, group, name, parameters)
}
