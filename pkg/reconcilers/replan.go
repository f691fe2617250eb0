/*
Copyright 2019 Alexander Eldeib.
*/

package reconcilers

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/alexeldeib/dspm-netconfig/pkg/inventory"
)

// Planner resolves the desired CIDR of a region. A missing entry means the region is left alone.
type Planner interface {
	Lookup(region string) (string, bool)
}

// Snapshotter persists a network definition before it is destroyed and returns where it went.
type Snapshotter interface {
	Backup(ctx context.Context, network inventory.Network) (string, error)
}

// ConfirmFunc asks whether a destructive replacement may proceed.
type ConfirmFunc func(network inventory.Network, prefix string) (bool, error)

type ReplanOptions struct {
	Regions []string
	Tag     string
}

// ReplanReconciler replaces the address space and subnets of each managed network with a single planned CIDR.
type ReplanReconciler struct {
	Applier Applier
	// Backup is optional. When set, a network is only modified after its snapshot was written.
	Backup Snapshotter
	// Confirm is optional. When set, a declined confirmation skips the network.
	Confirm  ConfirmFunc
	Log      logr.Logger
	Progress ProgressFunc
}

// Reconcile processes every managed network of the inventory once. Per-network failures are recorded, never returned.
func (r *ReplanReconciler) Reconcile(ctx context.Context, inv *inventory.Inventory, plan Planner, opts ReplanOptions) (*Result, error) {
	result := &Result{}
	gateways := inv.NatGatewaysByRegion()
	filter := newRegionFilter(opts.Regions)
	seen := map[string]string{}
	total := len(inv.Networks)

	for i, network := range inv.Networks {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrap(err, "address replan interrupted")
		}

		var outcome Outcome
		region := inventory.NormalizeRegion(network.Region)
		if owner, ok := seen[region]; ok {
			r.Log.Info("ignoring additional network in region", "network", network.Name, "region", region, "using", owner)
			outcome = Outcome{Kind: KindNetwork, Name: network.Name, Region: region}.skip("another managed network owns region")
		} else {
			seen[region] = network.Name
			outcome = r.reconcileNetwork(ctx, network, plan, gateways, filter, opts)
		}

		result.add(outcome)
		r.Progress.report(Progress{
			Processed: i + 1,
			Total:     total,
			Name:      network.Name,
			Region:    region,
			Status:    outcome.Status,
		})
	}

	return result, nil
}

func (r *ReplanReconciler) reconcileNetwork(ctx context.Context, network inventory.Network, plan Planner, gateways map[string]inventory.NatGateway, filter regionFilter, opts ReplanOptions) Outcome {
	region := inventory.NormalizeRegion(network.Region)
	log := r.Log.WithValues("network", network.Name, "region", region)
	outcome := Outcome{Kind: KindNetwork, Name: network.Name, Region: region}

	if !filter.allows(region) {
		log.V(1).Info("region excluded by filter")
		return outcome.skip("region excluded by filter")
	}

	prefix, ok := plan.Lookup(region)
	if !ok {
		log.Info("no address plan entry for region, skipping")
		return outcome.skip("no address plan entry for region")
	}
	log = log.WithValues("cidr", prefix)

	subnet := inventory.Subnet{
		Name:          inventory.SubnetName(opts.Tag, region),
		AddressPrefix: prefix,
	}
	if gateway, ok := gateways[region]; ok {
		subnet.NatGatewayID = gateway.ID
		log = log.WithValues("natGateway", gateway.Name)
	}

	if network.HasAddressSpace(prefix, subnet) {
		log.Info("network already uses planned address space")
		return outcome.skip("already at planned address space")
	}

	if r.Confirm != nil {
		proceed, err := r.Confirm(network, prefix)
		if err != nil {
			log.Info("confirmation unavailable, skipping", "error", err.Error())
			return outcome.skip("confirmation unavailable")
		}
		if !proceed {
			log.Info("replacement declined by operator")
			return outcome.skip("declined by operator")
		}
	}

	if r.Backup != nil {
		location, err := r.Backup.Backup(ctx, network)
		if err != nil {
			log.Error(err, "failed to back up network, leaving it unchanged")
			return outcome.fail("backup failed, network left unchanged", err)
		}
		log.Info("backed up network", "location", location)
	}

	removed := make([]string, 0, len(network.Subnets))
	for _, existing := range network.Subnets {
		removed = append(removed, existing.Name)
	}
	log.Info("replacing address space", "from", network.AddressPrefixes, "removedSubnets", removed, "subnet", subnet.Name)
	if err := r.Applier.ReplaceNetworkAddressSpace(ctx, network, prefix, subnet); err != nil {
		log.Error(err, "failed to replace address space")
		return outcome.fail("failed to replace address space", err)
	}

	log.Info("successfully replanned")
	outcome.Status = Succeeded
	return outcome
}
