/*
Copyright 2019 Alexander Eldeib.
*/

package inventory_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/alexeldeib/dspm-netconfig/pkg/inventory"
)

type fakeLister struct {
	groups   []inventory.ResourceGroup
	networks []inventory.Network
	accounts []inventory.StorageAccount
	gateways []inventory.NatGateway
	err      error
	calls    []string
}

func (f *fakeLister) ListResourceGroups(ctx context.Context) ([]inventory.ResourceGroup, error) {
	f.calls = append(f.calls, "groups")
	return f.groups, f.err
}

func (f *fakeLister) ListNetworks(ctx context.Context, group string) ([]inventory.Network, error) {
	f.calls = append(f.calls, "networks:"+group)
	return f.networks, nil
}

func (f *fakeLister) ListStorageAccounts(ctx context.Context, group string) ([]inventory.StorageAccount, error) {
	f.calls = append(f.calls, "storage:"+group)
	return f.accounts, nil
}

func (f *fakeLister) ListNatGateways(ctx context.Context, group string) ([]inventory.NatGateway, error) {
	f.calls = append(f.calls, "nat:"+group)
	return f.gateways, nil
}

var _ = Describe("discovery", func() {
	log := zap.LoggerTo(GinkgoWriter, true)
	opts := inventory.Options{Marker: "dspm", Tag: "dspm"}

	It("should fail before listing anything else when no group matches", func() {
		lister := &fakeLister{groups: []inventory.ResourceGroup{{Name: "prod-rg"}}}
		_, err := inventory.Discover(context.Background(), lister, opts, log)
		Expect(err).To(HaveOccurred())
		Expect(inventory.IsConfigurationError(err)).To(BeTrue())
		Expect(lister.calls).To(Equal([]string{"groups"}))
	})

	It("should fail when more than one group matches", func() {
		lister := &fakeLister{groups: []inventory.ResourceGroup{{Name: "DSPM-east"}, {Name: "dspm-west"}}}
		_, err := inventory.Discover(context.Background(), lister, opts, log)
		Expect(inventory.IsConfigurationError(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("DSPM-east"))
		Expect(lister.calls).To(HaveLen(1))
	})

	It("should not treat provider failures as configuration errors", func() {
		lister := &fakeLister{err: errors.New("throttled")}
		_, err := inventory.Discover(context.Background(), lister, opts, log)
		Expect(err).To(HaveOccurred())
		Expect(inventory.IsConfigurationError(err)).To(BeFalse())
	})

	It("should keep only tagged networks", func() {
		lister := &fakeLister{
			groups: []inventory.ResourceGroup{{Name: "corp"}, {Name: "rg-Dspm-scanner"}},
			networks: []inventory.Network{
				{Name: "tagged", Region: "westus", Tags: map[string]string{"DSPM": ""}},
				{Name: "other", Region: "westus"},
			},
			accounts: []inventory.StorageAccount{{Name: "acct", Region: "westus"}},
			gateways: []inventory.NatGateway{{Name: "nat", Region: "westus"}},
		}
		inv, err := inventory.Discover(context.Background(), lister, opts, log)
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.ResourceGroup.Name).To(Equal("rg-Dspm-scanner"))
		Expect(inv.Networks).To(HaveLen(1))
		Expect(inv.Networks[0].Name).To(Equal("tagged"))
		Expect(inv.StorageAccounts).To(HaveLen(1))
		Expect(inv.NatGateways).To(HaveLen(1))
		Expect(lister.calls).To(ContainElement("storage:rg-Dspm-scanner"))
	})
})

var _ = Describe("indexing", func() {
	log := zap.LoggerTo(GinkgoWriter, true)

	It("should index networks by normalized region, first one wins", func() {
		inv := &inventory.Inventory{
			Networks: []inventory.Network{
				{Name: "a", Region: "West US"},
				{Name: "b", Region: "westus"},
				{Name: "c", Region: "eastus"},
			},
		}
		index := inv.NetworksByRegion(log)
		Expect(index).To(HaveLen(2))
		Expect(index["westus"].Name).To(Equal("a"))
		Expect(index["eastus"].Name).To(Equal("c"))
		Expect(inv.Regions()).To(Equal([]string{"westus", "eastus"}))
	})

	It("should index nat gateways by region", func() {
		inv := &inventory.Inventory{
			NatGateways: []inventory.NatGateway{{ID: "n1", Region: "East US"}, {ID: "n2", Region: "eastus"}},
		}
		Expect(inv.NatGatewaysByRegion()).To(Equal(map[string]inventory.NatGateway{
			"eastus": {ID: "n1", Region: "East US"},
		}))
	})
})

var _ = Describe("networks", func() {
	network := inventory.Network{
		Subnets: []inventory.Subnet{
			{ID: "id1", Name: "dspm-westus"},
			{ID: "id2", Name: "other"},
			{Name: "pending"},
		},
	}

	It("should derive the managed subnet name", func() {
		Expect(inventory.SubnetName("dspm", "West US")).To(Equal("dspm-westus"))
	})

	It("should find subnets by name", func() {
		subnet, ok := network.Subnet("DSPM-westus")
		Expect(ok).To(BeTrue())
		Expect(subnet.ID).To(Equal("id1"))
		_, ok = network.Subnet("missing")
		Expect(ok).To(BeFalse())
	})

	It("should list subnet ids in order", func() {
		Expect(network.SubnetIDs()).To(Equal([]string{"id1", "id2"}))
	})

	It("should only treat a network as planned when the nat gateway matches too", func() {
		planned := inventory.Network{
			AddressPrefixes: []string{"10.5.0.0/24"},
			Subnets:         []inventory.Subnet{{Name: "dspm-westus", AddressPrefix: "10.5.0.0/24"}},
		}
		desired := inventory.Subnet{Name: "dspm-westus", AddressPrefix: "10.5.0.0/24"}
		Expect(planned.HasAddressSpace("10.5.0.0/24", desired)).To(BeTrue())
		Expect(planned.HasAddressSpace("10.6.0.0/24", desired)).To(BeFalse())

		desired.NatGatewayID = "/natGateways/nat-westus"
		Expect(planned.HasAddressSpace("10.5.0.0/24", desired)).To(BeFalse())

		planned.Subnets[0].NatGatewayID = "/natgateways/NAT-westus"
		Expect(planned.HasAddressSpace("10.5.0.0/24", desired)).To(BeTrue())
	})
})
