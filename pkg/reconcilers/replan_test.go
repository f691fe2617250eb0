/*
Copyright 2019 Alexander Eldeib.
*/

package reconcilers_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/alexeldeib/dspm-netconfig/pkg/inventory"
	"github.com/alexeldeib/dspm-netconfig/pkg/reconcilers"
)

var _ = Describe("replan reconciler", func() {
	var (
		provider    *fakeProvider
		snapshotter *fakeSnapshotter
		reconciler  *reconcilers.ReplanReconciler
		plan        staticPlan
		opts        reconcilers.ReplanOptions
	)

	BeforeEach(func() {
		provider = newFakeProvider()
		provider.networks = []inventory.Network{
			managedNetwork("vnet-westus", "westus", "10.0.0.0/16",
				inventory.Subnet{ID: subnetID("vnet-westus", "apps"), Name: "apps", AddressPrefix: "10.0.8.0/24"}),
			managedNetwork("vnet-eastus", "eastus", "10.1.0.0/16"),
		}
		provider.gateways = []inventory.NatGateway{
			{ID: "/natGateways/nat-westus", Name: "nat-westus", Region: "West US"},
		}
		snapshotter = &fakeSnapshotter{calls: provider.calls}
		reconciler = &reconcilers.ReplanReconciler{
			Applier: provider,
			Backup:  snapshotter,
			Log:     zap.LoggerTo(GinkgoWriter, true),
		}
		plan = staticPlan{"westus": "10.5.0.0/24", "eastus": "10.6.0.0/24"}
		opts = reconcilers.ReplanOptions{Tag: "dspm"}
	})

	It("should leave exactly the planned prefix and one managed subnet", func() {
		result, err := reconciler.Reconcile(context.Background(), provider.inventory(), plan, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Succeeded()).To(HaveLen(2))

		network := provider.network("vnet-westus")
		Expect(network.AddressPrefixes).To(Equal([]string{"10.5.0.0/24"}))
		Expect(network.Subnets).To(HaveLen(1))
		Expect(network.Subnets[0].Name).To(Equal("dspm-westus"))
		Expect(network.Subnets[0].AddressPrefix).To(Equal("10.5.0.0/24"))
		_, ok := network.Subnet("apps")
		Expect(ok).To(BeFalse())
		Expect(network.Tags).To(HaveKey("dspm"))
	})

	It("should associate the nat gateway of the region", func() {
		_, err := reconciler.Reconcile(context.Background(), provider.inventory(), plan, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(provider.network("vnet-westus").Subnets[0].NatGatewayID).To(Equal("/natGateways/nat-westus"))
		Expect(provider.network("vnet-eastus").Subnets[0].NatGatewayID).To(BeEmpty())
	})

	It("should back up each network before replacing it", func() {
		_, err := reconciler.Reconcile(context.Background(), provider.inventory(), plan, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(*provider.calls).To(Equal([]string{
			"backup:vnet-westus", "replace:vnet-westus",
			"backup:vnet-eastus", "replace:vnet-eastus",
		}))
		Expect(snapshotter.snapshots[0].AddressPrefixes).To(Equal([]string{"10.0.0.0/16"}))
		Expect(snapshotter.snapshots[0].Subnets).To(HaveLen(2))
	})

	It("should leave the network untouched when the backup fails", func() {
		snapshotter.err = errors.New("disk full")
		result, err := reconciler.Reconcile(context.Background(), provider.inventory(), plan, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Failed()).To(HaveLen(2))
		Expect(result.Failed()[0].Reason).To(Equal("backup failed, network left unchanged"))
		Expect(*provider.calls).NotTo(ContainElement("replace:vnet-westus"))
		Expect(provider.network("vnet-westus").AddressPrefixes).To(Equal([]string{"10.0.0.0/16"}))
	})

	It("should skip regions without a plan entry", func() {
		delete(plan, "eastus")
		result, err := reconciler.Reconcile(context.Background(), provider.inventory(), plan, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Skipped()).To(HaveLen(1))
		Expect(result.Skipped()[0].Name).To(Equal("vnet-eastus"))
		Expect(result.Skipped()[0].Reason).To(Equal("no address plan entry for region"))
		Expect(provider.network("vnet-eastus").AddressPrefixes).To(Equal([]string{"10.1.0.0/16"}))
	})

	It("should make no writes for regions outside the filter", func() {
		opts.Regions = []string{"eastus"}
		result, err := reconciler.Reconcile(context.Background(), provider.inventory(), plan, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Succeeded()).To(HaveLen(1))
		Expect(*provider.calls).To(Equal([]string{"backup:vnet-eastus", "replace:vnet-eastus"}))
	})

	It("should skip networks the operator declines", func() {
		var asked []string
		reconciler.Confirm = func(network inventory.Network, prefix string) (bool, error) {
			asked = append(asked, network.Name+"="+prefix)
			return network.Name == "vnet-eastus", nil
		}
		result, err := reconciler.Reconcile(context.Background(), provider.inventory(), plan, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(asked).To(Equal([]string{"vnet-westus=10.5.0.0/24", "vnet-eastus=10.6.0.0/24"}))
		Expect(result.Skipped()).To(HaveLen(1))
		Expect(result.Skipped()[0].Reason).To(Equal("declined by operator"))
		Expect(*provider.calls).NotTo(ContainElement("backup:vnet-westus"))
	})

	It("should skip when no confirmation can be obtained", func() {
		reconciler.Confirm = func(inventory.Network, string) (bool, error) {
			return false, errors.New("no terminal")
		}
		result, err := reconciler.Reconcile(context.Background(), provider.inventory(), plan, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Skipped()).To(HaveLen(2))
		Expect(result.Failed()).To(BeEmpty())
		Expect(*provider.calls).To(BeEmpty())
	})

	It("should isolate a failing network from the rest of the batch", func() {
		provider.failures["replace:vnet-westus"] = errors.New("in use")
		result, err := reconciler.Reconcile(context.Background(), provider.inventory(), plan, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Failed()).To(HaveLen(1))
		Expect(result.Succeeded()).To(HaveLen(1))
		Expect(provider.network("vnet-eastus").AddressPrefixes).To(Equal([]string{"10.6.0.0/24"}))
	})

	It("should be idempotent", func() {
		_, err := reconciler.Reconcile(context.Background(), provider.inventory(), plan, opts)
		Expect(err).NotTo(HaveOccurred())
		*provider.calls = nil

		result, err := reconciler.Reconcile(context.Background(), provider.inventory(), plan, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Skipped()).To(HaveLen(2))
		Expect(result.Skipped()[0].Reason).To(Equal("already at planned address space"))
		Expect(*provider.calls).To(BeEmpty())
	})

	It("should attach a nat gateway provisioned after an earlier replan", func() {
		provider.gateways = nil
		_, err := reconciler.Reconcile(context.Background(), provider.inventory(), plan, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(provider.network("vnet-westus").Subnets[0].NatGatewayID).To(BeEmpty())

		provider.gateways = []inventory.NatGateway{{ID: "/natGateways/nat-westus", Name: "nat-westus", Region: "westus"}}
		*provider.calls = nil
		result, err := reconciler.Reconcile(context.Background(), provider.inventory(), plan, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Succeeded()).To(HaveLen(1))
		Expect(result.Succeeded()[0].Name).To(Equal("vnet-westus"))
		Expect(result.Skipped()).To(HaveLen(1))
		Expect(provider.network("vnet-westus").Subnets[0].NatGatewayID).To(Equal("/natGateways/nat-westus"))
		Expect(provider.network("vnet-westus").AddressPrefixes).To(Equal([]string{"10.5.0.0/24"}))
	})

	It("should only replan the first network of a region", func() {
		provider.networks = append(provider.networks, managedNetwork("vnet-westus-2", "West US", "10.9.0.0/16"))
		result, err := reconciler.Reconcile(context.Background(), provider.inventory(), plan, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Succeeded()).To(HaveLen(2))
		Expect(result.Skipped()).To(HaveLen(1))
		Expect(provider.network("vnet-westus-2").AddressPrefixes).To(Equal([]string{"10.9.0.0/16"}))
	})

	It("should report progress for every network", func() {
		var progress []reconcilers.Progress
		reconciler.Progress = func(p reconcilers.Progress) {
			progress = append(progress, p)
		}
		_, err := reconciler.Reconcile(context.Background(), provider.inventory(), plan, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(progress).To(HaveLen(2))
		Expect(progress[1].Processed).To(Equal(2))
		Expect(progress[1].Total).To(Equal(2))
	})
})
