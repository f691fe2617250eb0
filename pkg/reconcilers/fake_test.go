/*
Copyright 2019 Alexander Eldeib.
*/

package reconcilers_test

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/alexeldeib/dspm-netconfig/pkg/inventory"
	"github.com/alexeldeib/dspm-netconfig/pkg/reconcilers"
)

// fakeProvider is an in-memory provider. Writes mutate its state so a second run observes the first one.
type fakeProvider struct {
	group    inventory.ResourceGroup
	networks []inventory.Network
	accounts []inventory.StorageAccount
	gateways []inventory.NatGateway
	// failures are keyed on "<operation>:<resource name>".
	failures map[string]error
	calls    *[]string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		group:    inventory.ResourceGroup{Name: "dspm-rg"},
		failures: map[string]error{},
		calls:    &[]string{},
	}
}

func (f *fakeProvider) record(op, name string) error {
	*f.calls = append(*f.calls, op+":"+name)
	return f.failures[op+":"+name]
}

func (f *fakeProvider) inventory() *inventory.Inventory {
	inv := &inventory.Inventory{ResourceGroup: f.group}
	inv.Networks = append(inv.Networks, f.networks...)
	inv.StorageAccounts = append(inv.StorageAccounts, f.accounts...)
	inv.NatGateways = append(inv.NatGateways, f.gateways...)
	return inv
}

func (f *fakeProvider) network(name string) *inventory.Network {
	for i := range f.networks {
		if f.networks[i].Name == name {
			return &f.networks[i]
		}
	}
	return nil
}

func (f *fakeProvider) account(name string) *inventory.StorageAccount {
	for i := range f.accounts {
		if f.accounts[i].Name == name {
			return &f.accounts[i]
		}
	}
	return nil
}

func (f *fakeProvider) UpdateSubnet(ctx context.Context, network inventory.Network, update reconcilers.SubnetUpdate) error {
	if err := f.record("subnet", network.Name); err != nil {
		return err
	}
	remote := f.network(network.Name)
	if remote == nil {
		return errors.Errorf("network %s not found", network.Name)
	}
	for i := range remote.Subnets {
		if remote.Subnets[i].Name == update.Name {
			remote.Subnets[i].AddressPrefix = update.AddressPrefix
			remote.Subnets[i].ServiceEndpoints = append([]string{}, update.ServiceEndpoints...)
			remote.Subnets[i].SecurityGroupID = update.SecurityGroupID
			return nil
		}
	}
	return errors.Errorf("subnet %s not found", update.Name)
}

func (f *fakeProvider) UpdateStorageFirewall(ctx context.Context, account inventory.StorageAccount, rules inventory.FirewallRuleSet) error {
	if err := f.record("firewall", account.Name); err != nil {
		return err
	}
	remote := f.account(account.Name)
	if remote == nil {
		return errors.Errorf("storage account %s not found", account.Name)
	}
	remote.Firewall = rules
	return nil
}

func (f *fakeProvider) ReplaceNetworkAddressSpace(ctx context.Context, network inventory.Network, prefix string, subnet inventory.Subnet) error {
	if err := f.record("replace", network.Name); err != nil {
		return err
	}
	remote := f.network(network.Name)
	if remote == nil {
		return errors.Errorf("network %s not found", network.Name)
	}
	subnet.ID = subnetID(network.Name, subnet.Name)
	*remote = remote.WithAddressSpace(prefix, subnet)
	return nil
}

type fakeSnapshotter struct {
	err       error
	calls     *[]string
	snapshots []inventory.Network
}

func (s *fakeSnapshotter) Backup(ctx context.Context, network inventory.Network) (string, error) {
	*s.calls = append(*s.calls, "backup:"+network.Name)
	if s.err != nil {
		return "", s.err
	}
	s.snapshots = append(s.snapshots, network)
	return fmt.Sprintf("/backups/%s.json", network.Name), nil
}

type staticPlan map[string]string

func (p staticPlan) Lookup(region string) (string, bool) {
	cidr, ok := p[region]
	return cidr, ok
}

func subnetID(network, subnet string) string {
	return fmt.Sprintf("/subscriptions/sub/resourceGroups/dspm-rg/providers/Microsoft.Network/virtualNetworks/%s/subnets/%s", network, subnet)
}

func managedNetwork(name, region, prefix string, extra ...inventory.Subnet) inventory.Network {
	subnets := []inventory.Subnet{{
		ID:              subnetID(name, "dspm-"+region),
		Name:            "dspm-" + region,
		AddressPrefix:   prefix,
		SecurityGroupID: "/nsg/" + name,
	}}
	return inventory.Network{
		ID:              "/vnets/" + name,
		Name:            name,
		ResourceGroup:   "dspm-rg",
		Region:          region,
		AddressPrefixes: []string{prefix},
		Subnets:         append(subnets, extra...),
		Tags:            map[string]string{"dspm": "true"},
	}
}
