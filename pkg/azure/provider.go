/*
Copyright 2019 Alexander Eldeib.
*/

package azure

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/network/mgmt/2019-04-01/network"
	"github.com/Azure/azure-sdk-for-go/services/resources/mgmt/2019-05-01/resources"
	"github.com/Azure/azure-sdk-for-go/services/storage/mgmt/2019-04-01/storage"
	"github.com/davecgh/go-spew/spew"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/alexeldeib/dspm-netconfig/pkg/backup"
	"github.com/alexeldeib/dspm-netconfig/pkg/clients/clientutil"
	"github.com/alexeldeib/dspm-netconfig/pkg/clients/natgateways"
	"github.com/alexeldeib/dspm-netconfig/pkg/clients/resourcegroups"
	"github.com/alexeldeib/dspm-netconfig/pkg/clients/storageaccounts"
	"github.com/alexeldeib/dspm-netconfig/pkg/clients/subnets"
	"github.com/alexeldeib/dspm-netconfig/pkg/clients/virtualnetworks"
	"github.com/alexeldeib/dspm-netconfig/pkg/config"
	"github.com/alexeldeib/dspm-netconfig/pkg/convert"
	"github.com/alexeldeib/dspm-netconfig/pkg/inventory"
	"github.com/alexeldeib/dspm-netconfig/pkg/reconcilers"
)

const retryInterval = 2 * time.Second

type groupsClient interface {
	List(ctx context.Context) ([]resources.Group, error)
}

type networksClient interface {
	List(ctx context.Context, group string) ([]network.VirtualNetwork, error)
	Get(ctx context.Context, group, name string) (network.VirtualNetwork, error)
	CreateOrUpdate(ctx context.Context, group, name string, remote network.VirtualNetwork) (network.VirtualNetwork, error)
}

type subnetsClient interface {
	Get(ctx context.Context, group, vnet, name string) (network.Subnet, error)
	CreateOrUpdate(ctx context.Context, group, vnet, name string, remote network.Subnet) (network.Subnet, error)
}

type gatewaysClient interface {
	List(ctx context.Context, group string) ([]network.NatGateway, error)
}

type accountsClient interface {
	List(ctx context.Context, group string) ([]storage.Account, error)
	Get(ctx context.Context, group, name string) (storage.Account, error)
	Update(ctx context.Context, group, name string, parameters storage.AccountUpdateParameters) (storage.Account, error)
}

// Provider reads and writes Azure resources on behalf of the reconcilers.
// Every call is bounded by a timeout and retried on throttling or server errors.
type Provider struct {
	groups   groupsClient
	networks networksClient
	subnets  subnetsClient
	gateways gatewaysClient
	accounts accountsClient
	timeout  time.Duration
	backoff  wait.Backoff
	log      logr.Logger
}

var (
	_ inventory.Lister        = &Provider{}
	_ reconcilers.Applier     = &Provider{}
	_ backup.DefinitionSource = &Provider{}
)

// New authorizes one client per resource type for the configured subscription.
// With debug set, resource group requests and responses are dumped to the logger.
func New(configuration *config.Config, log logr.Logger, debug bool) (*Provider, error) {
	groups := resourcegroups.New(configuration)
	if debug {
		groups.WithDebug(log.WithName("http"))
	}
	networks := virtualnetworks.New(configuration)
	subnetClient := subnets.New(configuration)
	gateways := natgateways.New(configuration)
	accounts := storageaccounts.New(configuration)

	sub := configuration.SubscriptionID()
	for _, client := range []interface{ ForSubscription(string) error }{groups, networks, subnetClient, gateways, accounts} {
		if err := client.ForSubscription(sub); err != nil {
			return nil, errors.Wrap(err, "failed to authorize azure client")
		}
	}

	return &Provider{
		groups:   groups,
		networks: networks,
		subnets:  subnetClient,
		gateways: gateways,
		accounts: accounts,
		timeout:  configuration.RequestTimeout(),
		backoff:  clientutil.Backoff(configuration.MaxRetries(), retryInterval),
		log:      log,
	}, nil
}

// call bounds a single provider interaction. Each attempt gets its own timeout.
func (p *Provider) call(ctx context.Context, log logr.Logger, fn func(context.Context) error) error {
	return clientutil.Retry(ctx, p.backoff, log, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return fn(ctx)
	})
}

func (p *Provider) ListResourceGroups(ctx context.Context) ([]inventory.ResourceGroup, error) {
	var remote []resources.Group
	err := p.call(ctx, p.log, func(ctx context.Context) (err error) {
		remote, err = p.groups.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	groups := make([]inventory.ResourceGroup, 0, len(remote))
	for _, group := range remote {
		groups = append(groups, convert.ResourceGroup(group))
	}
	return groups, nil
}

func (p *Provider) ListNetworks(ctx context.Context, group string) ([]inventory.Network, error) {
	var remote []network.VirtualNetwork
	err := p.call(ctx, p.log.WithValues("resourceGroup", group), func(ctx context.Context) (err error) {
		remote, err = p.networks.List(ctx, group)
		return err
	})
	if err != nil {
		return nil, err
	}
	networks := make([]inventory.Network, 0, len(remote))
	for _, vnet := range remote {
		networks = append(networks, convert.VirtualNetwork(group, vnet))
	}
	return networks, nil
}

func (p *Provider) ListStorageAccounts(ctx context.Context, group string) ([]inventory.StorageAccount, error) {
	var remote []storage.Account
	err := p.call(ctx, p.log.WithValues("resourceGroup", group), func(ctx context.Context) (err error) {
		remote, err = p.accounts.List(ctx, group)
		return err
	})
	if err != nil {
		return nil, err
	}
	accounts := make([]inventory.StorageAccount, 0, len(remote))
	for _, account := range remote {
		accounts = append(accounts, convert.StorageAccount(group, account))
	}
	return accounts, nil
}

func (p *Provider) ListNatGateways(ctx context.Context, group string) ([]inventory.NatGateway, error) {
	var remote []network.NatGateway
	err := p.call(ctx, p.log.WithValues("resourceGroup", group), func(ctx context.Context) (err error) {
		remote, err = p.gateways.List(ctx, group)
		return err
	})
	if err != nil {
		return nil, err
	}
	gateways := make([]inventory.NatGateway, 0, len(remote))
	for _, gateway := range remote {
		gateways = append(gateways, convert.NatGateway(gateway))
	}
	return gateways, nil
}

// UpdateSubnet writes the managed subnet on top of its live definition. Nothing is written when it already matches.
func (p *Provider) UpdateSubnet(ctx context.Context, vnet inventory.Network, update reconcilers.SubnetUpdate) error {
	log := p.log.WithValues("network", vnet.Name, "subnet", update.Name)

	var remote network.Subnet
	err := p.call(ctx, log, func(ctx context.Context) (err error) {
		remote, err = p.subnets.Get(ctx, vnet.ResourceGroup, vnet.Name, update.Name)
		return err
	})
	if clientutil.IsNotFound(err) {
		return errors.Errorf("subnet %s no longer exists in network %s", update.Name, vnet.Name)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to get subnet %s", update.Name)
	}

	spec := subnets.NewSpecWithRemote(&remote)
	desired := inventory.Subnet{
		Name:             update.Name,
		AddressPrefix:    update.AddressPrefix,
		ServiceEndpoints: update.ServiceEndpoints,
		SecurityGroupID:  update.SecurityGroupID,
	}
	if !spec.NeedsUpdate(desired) {
		log.V(1).Info("subnet already up to date")
		return nil
	}

	spec.Set(
		subnets.Address(update.AddressPrefix),
		subnets.ServiceEndpoints(update.ServiceEndpoints...),
		subnets.SecurityGroup(update.SecurityGroupID),
	)
	return p.call(ctx, log, func(ctx context.Context) error {
		_, err := p.subnets.CreateOrUpdate(ctx, vnet.ResourceGroup, vnet.Name, update.Name, spec.Build())
		return err
	})
}

// UpdateStorageFirewall patches only the network rules of the account. Nothing is written when they already match.
func (p *Provider) UpdateStorageFirewall(ctx context.Context, account inventory.StorageAccount, rules inventory.FirewallRuleSet) error {
	log := p.log.WithValues("storageAccount", account.Name)

	var remote storage.Account
	err := p.call(ctx, log, func(ctx context.Context) (err error) {
		remote, err = p.accounts.Get(ctx, account.ResourceGroup, account.Name)
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "failed to get storage account %s", account.Name)
	}

	spec := storageaccounts.NewSpecWithRemote(&remote)
	if !spec.NeedsUpdate(rules) {
		log.V(1).Info("firewall already up to date")
		return nil
	}
	log.V(1).Info("firewall drift", "remote", spew.Sdump(spec.Firewall()), "desired", spew.Sdump(rules))

	spec.Set(storageaccounts.NetworkRules(rules))
	return p.call(ctx, log, func(ctx context.Context) error {
		_, err := p.accounts.Update(ctx, account.ResourceGroup, account.Name, spec.ForUpdate())
		return err
	})
}

// NetworkDefinition reads the complete live definition of a network, for backups.
func (p *Provider) NetworkDefinition(ctx context.Context, vnet inventory.Network) (network.VirtualNetwork, error) {
	var remote network.VirtualNetwork
	err := p.call(ctx, p.log.WithValues("network", vnet.Name), func(ctx context.Context) (err error) {
		remote, err = p.networks.Get(ctx, vnet.ResourceGroup, vnet.Name)
		return err
	})
	if err != nil {
		return network.VirtualNetwork{}, errors.Wrapf(err, "failed to get virtual network %s", vnet.Name)
	}
	return remote, nil
}

// ReplaceNetworkAddressSpace swaps every prefix and subnet of the network for a single prefix and subnet
// in one write. Other network properties, like tags or DNS servers, are kept.
func (p *Provider) ReplaceNetworkAddressSpace(ctx context.Context, vnet inventory.Network, prefix string, subnet inventory.Subnet) error {
	log := p.log.WithValues("network", vnet.Name)

	var remote network.VirtualNetwork
	err := p.call(ctx, log, func(ctx context.Context) (err error) {
		remote, err = p.networks.Get(ctx, vnet.ResourceGroup, vnet.Name)
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "failed to get virtual network %s", vnet.Name)
	}

	spec := virtualnetworks.NewSpecWithRemote(&remote)
	if !spec.NeedsUpdate(vnet.WithAddressSpace(prefix, subnet)) {
		log.V(1).Info("network already uses planned address space")
		return nil
	}

	spec.Set(
		virtualnetworks.ClearAddressSpace(),
		virtualnetworks.AddressSpace(prefix),
		virtualnetworks.ClearSubnets(),
		virtualnetworks.Subnet(subnet.Name, subnet.AddressPrefix),
		virtualnetworks.SubnetNatGateway(subnet.Name, subnet.NatGatewayID),
	)
	return p.call(ctx, log, func(ctx context.Context) error {
		_, err := p.networks.CreateOrUpdate(ctx, vnet.ResourceGroup, vnet.Name, spec.Build())
		return err
	})
}
