/*
Copyright 2019 Alexander Eldeib.
*/

package resourcegroups

import (
	"context"
	"net/http"
	"net/http/httputil"

	"github.com/Azure/azure-sdk-for-go/services/resources/mgmt/2019-05-01/resources"
	"github.com/Azure/go-autorest/autorest"
	"github.com/go-logr/logr"

	"github.com/alexeldeib/dspm-netconfig/pkg/config"
)

type Client struct {
	factory  factoryFunc
	internal resources.GroupsClient
	config   *config.Config
	log      logr.Logger
}

type factoryFunc func(subscriptionID string) resources.GroupsClient

// New returns a new client able to authenticate to multiple Azure subscriptions using the provided configuration.
func New(configuration *config.Config) *Client {
	return NewWithFactory(configuration, func(subscriptionID string) resources.GroupsClient {
		return resources.NewGroupsClientWithBaseURI(configuration.BaseURI(), subscriptionID)
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

// WithDebug dumps every request and response of this client to the logger.
func (c *Client) WithDebug(log logr.Logger) *Client {
	c.log = log
	return c
}

// ForSubscription authorizes the client for a given subscription
func (c *Client) ForSubscription(subID string) error {
	c.internal = c.factory(subID)
	if c.log != nil {
		c.internal.RequestInspector = LogRequest(c.log)
		c.internal.ResponseInspector = LogResponse(c.log)
	}
	return c.config.AuthorizeClient(&c.internal.Client)
}

// List returns every resource group of the subscription.
func (c *Client) List(ctx context.Context) ([]resources.Group, error) {
	var groups []resources.Group
	iter, err := c.internal.ListComplete(ctx, "", nil)
	if err != nil {
		return nil, err
	}
	for iter.NotDone() {
		groups = append(groups, iter.Value())
		if err := iter.NextWithContext(ctx); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func LogRequest(log logr.Logger) autorest.PrepareDecorator {
	return func(p autorest.Preparer) autorest.Preparer {
		return autorest.PreparerFunc(func(r *http.Request) (*http.Request, error) {
			r, err := p.Prepare(r)
			if err != nil {
				log.Error(err, "failed to prepare request")
				return r, err
			}
			dump, _ := httputil.DumpRequestOut(r, false)
			log.V(1).Info("request", "dump", string(dump))
			return r, err
		})
	}
}

func LogResponse(log logr.Logger) autorest.RespondDecorator {
	return func(p autorest.Responder) autorest.Responder {
		return autorest.ResponderFunc(func(r *http.Response) error {
			err := p.Respond(r)
			if err != nil {
				log.Error(err, "failed to handle response")
			}
			dump, _ := httputil.DumpResponse(r, true)
			log.V(1).Info("response", "dump", string(dump))
			return err
		})
	}
}
