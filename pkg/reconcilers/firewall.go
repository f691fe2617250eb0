/*
Copyright 2019 Alexander Eldeib.
*/

package reconcilers

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/alexeldeib/dspm-netconfig/pkg/inventory"
	"github.com/alexeldeib/dspm-netconfig/pkg/stringslice"
)

// RequiredServiceEndpoints must be enabled on the managed subnet before storage firewalls can reference it.
var RequiredServiceEndpoints = []string{
	"Microsoft.AzureCosmosDB",
	"Microsoft.Sql",
	"Microsoft.Storage",
}

// SubnetUpdate is the desired state of the managed subnet of a network.
type SubnetUpdate struct {
	Name             string
	AddressPrefix    string
	ServiceEndpoints []string
	SecurityGroupID  string
}

// Applier writes configuration to the provider. Each call is atomic from the caller's point of view.
type Applier interface {
	UpdateSubnet(ctx context.Context, network inventory.Network, update SubnetUpdate) error
	UpdateStorageFirewall(ctx context.Context, account inventory.StorageAccount, rules inventory.FirewallRuleSet) error
	ReplaceNetworkAddressSpace(ctx context.Context, network inventory.Network, prefix string, subnet inventory.Subnet) error
}

type FirewallOptions struct {
	// Regions restricts the run when non-empty.
	Regions    []string
	AllowedIPs []string
	Tag        string
}

// FirewallReconciler locks each storage account down to the allowed IPs and the subnets of the network in its region.
type FirewallReconciler struct {
	Applier  Applier
	Log      logr.Logger
	Progress ProgressFunc
}

// Reconcile processes every storage account of the inventory once. Per-account failures are recorded, never returned;
// the returned error is only set when the context ends the run early.
func (r *FirewallReconciler) Reconcile(ctx context.Context, inv *inventory.Inventory, opts FirewallOptions) (*Result, error) {
	result := &Result{}
	networks := inv.NetworksByRegion(r.Log)
	filter := newRegionFilter(opts.Regions)
	total := len(inv.StorageAccounts)

	for i, account := range inv.StorageAccounts {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrap(err, "firewall reconciliation interrupted")
		}
		outcome := result.add(r.reconcileAccount(ctx, account, networks, filter, opts))
		r.Progress.report(Progress{
			Processed: i + 1,
			Total:     total,
			Name:      account.Name,
			Region:    outcome.Region,
			Status:    outcome.Status,
		})
	}

	return result, nil
}

func (r *FirewallReconciler) reconcileAccount(ctx context.Context, account inventory.StorageAccount, networks map[string]inventory.Network, filter regionFilter, opts FirewallOptions) Outcome {
	region := inventory.NormalizeRegion(account.Region)
	log := r.Log.WithValues("storageAccount", account.Name, "region", region)
	outcome := Outcome{Kind: KindStorageAccount, Name: account.Name, Region: region}

	if !filter.allows(region) {
		log.V(1).Info("region excluded by filter")
		return outcome.skip("region excluded by filter")
	}

	network, ok := networks[region]
	if !ok {
		log.Info("no managed network in region, skipping")
		return outcome.skip("no managed network in region")
	}
	log = log.WithValues("network", network.Name)

	name := inventory.SubnetName(opts.Tag, region)
	subnet, ok := network.Subnet(name)
	if !ok {
		err := errors.Errorf("network %s has no subnet %s", network.Name, name)
		log.Error(err, "managed subnet missing")
		return outcome.fail("managed subnet missing", err)
	}

	update := SubnetUpdate{
		Name:             subnet.Name,
		AddressPrefix:    subnet.AddressPrefix,
		ServiceEndpoints: stringslice.Union(subnet.ServiceEndpoints, RequiredServiceEndpoints...),
		SecurityGroupID:  subnet.SecurityGroupID,
	}
	log.Info("ensuring service endpoints", "subnet", subnet.Name, "serviceEndpoints", update.ServiceEndpoints)
	if err := r.Applier.UpdateSubnet(ctx, network, update); err != nil {
		log.Error(err, "failed to update subnet")
		return outcome.fail("failed to update subnet "+subnet.Name, err)
	}

	rules := DesiredFirewall(opts.AllowedIPs, network.SubnetIDs())
	log.Info("applying firewall rules", "ipRules", len(rules.IPRules), "virtualNetworkRules", len(rules.VirtualNetworkRules))
	if err := r.Applier.UpdateStorageFirewall(ctx, account, rules); err != nil {
		log.Error(err, "failed to update storage firewall")
		return outcome.fail("failed to update storage firewall", err)
	}

	log.Info("successfully reconciled")
	outcome.Status = Succeeded
	return outcome
}

// DesiredFirewall allows exactly the given IP ranges and subnets and denies everything else,
// except logging, metrics and trusted platform traffic.
func DesiredFirewall(ips []string, subnetIDs []string) inventory.FirewallRuleSet {
	rules := inventory.FirewallRuleSet{
		IPRules:             []string{},
		VirtualNetworkRules: []string{},
		DefaultAction:       inventory.DefaultActionDeny,
		Bypass: []string{
			inventory.BypassLogging,
			inventory.BypassMetrics,
			inventory.BypassAzureServices,
		},
	}
	for _, ip := range ips {
		rules.IPRules = stringslice.Add(rules.IPRules, ip)
	}
	for _, id := range subnetIDs {
		rules.VirtualNetworkRules = stringslice.Union(rules.VirtualNetworkRules, id)
	}
	return rules
}

func (o Outcome) skip(reason string) Outcome {
	o.Status = Skipped
	o.Reason = reason
	return o
}

func (o Outcome) fail(reason string, err error) Outcome {
	o.Status = Failed
	o.Reason = reason
	o.Err = err
	return o
}

type regionFilter map[string]bool

func newRegionFilter(regions []string) regionFilter {
	filter := regionFilter{}
	for _, region := range regions {
		if normalized := inventory.NormalizeRegion(region); normalized != "" {
			filter[normalized] = true
		}
	}
	return filter
}

// allows expects a normalized region. An empty filter allows everything.
func (f regionFilter) allows(region string) bool {
	return len(f) == 0 || f[region]
}
