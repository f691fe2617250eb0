/*
Copyright 2019 Alexander Eldeib.
*/

package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
)

// Lister reads resources from the provider.
type Lister interface {
	ListResourceGroups(ctx context.Context) ([]ResourceGroup, error)
	ListNetworks(ctx context.Context, group string) ([]Network, error)
	ListStorageAccounts(ctx context.Context, group string) ([]StorageAccount, error)
	ListNatGateways(ctx context.Context, group string) ([]NatGateway, error)
}

// Options scope discovery.
type Options struct {
	// Marker is matched as a case-insensitive substring of resource group names.
	Marker string
	// Tag is the tag key that marks a managed network.
	Tag string
}

// ConfigurationError aborts a run before anything is modified.
type ConfigurationError struct {
	msg string
}

func (e *ConfigurationError) Error() string {
	return e.msg
}

// NewConfigurationError formats a fatal configuration error.
func NewConfigurationError(format string, args ...interface{}) error {
	return &ConfigurationError{msg: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err, or its cause, is a ConfigurationError.
func IsConfigurationError(err error) bool {
	_, ok := errors.Cause(err).(*ConfigurationError)
	return ok
}

// Discover resolves the single marked resource group and snapshots its networks, storage accounts and NAT gateways.
func Discover(ctx context.Context, lister Lister, opts Options, log logr.Logger) (*Inventory, error) {
	if opts.Marker == "" {
		return nil, NewConfigurationError("resource group marker must not be empty")
	}

	groups, err := lister.ListResourceGroups(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list resource groups")
	}

	group, err := matchGroup(groups, opts.Marker)
	if err != nil {
		return nil, err
	}
	log = log.WithValues("resourceGroup", group.Name)
	log.Info("found resource group")

	networks, err := lister.ListNetworks(ctx, group.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list virtual networks in %s", group.Name)
	}

	accounts, err := lister.ListStorageAccounts(ctx, group.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list storage accounts in %s", group.Name)
	}

	gateways, err := lister.ListNatGateways(ctx, group.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list nat gateways in %s", group.Name)
	}

	inv := &Inventory{
		ResourceGroup:   group,
		StorageAccounts: accounts,
		NatGateways:     gateways,
	}
	for _, network := range networks {
		if opts.Tag != "" && !network.HasTag(opts.Tag) {
			log.V(1).Info("ignoring untagged network", "network", network.Name, "tag", opts.Tag)
			continue
		}
		inv.Networks = append(inv.Networks, network)
	}

	log.Info("discovered inventory",
		"networks", len(inv.Networks),
		"storageAccounts", len(inv.StorageAccounts),
		"natGateways", len(inv.NatGateways))
	return inv, nil
}

func matchGroup(groups []ResourceGroup, marker string) (ResourceGroup, error) {
	var matches []ResourceGroup
	for _, group := range groups {
		if strings.Contains(strings.ToLower(group.Name), strings.ToLower(marker)) {
			matches = append(matches, group)
		}
	}
	switch len(matches) {
	case 0:
		return ResourceGroup{}, NewConfigurationError("no resource group matches %q", marker)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, 0, len(matches))
		for _, match := range matches {
			names = append(names, match.Name)
		}
		return ResourceGroup{}, NewConfigurationError("%d resource groups match %q, expected exactly one: %s", len(matches), marker, strings.Join(names, ", "))
	}
}

// NetworksByRegion indexes networks on their normalized region. When two networks share a region the first one discovered wins.
func (inv *Inventory) NetworksByRegion(log logr.Logger) map[string]Network {
	index := make(map[string]Network, len(inv.Networks))
	for _, network := range inv.Networks {
		region := NormalizeRegion(network.Region)
		if existing, ok := index[region]; ok {
			log.Info("ignoring additional network in region", "region", region, "network", network.Name, "using", existing.Name)
			continue
		}
		index[region] = network
	}
	return index
}

// NatGatewaysByRegion indexes NAT gateways on their normalized region, first one wins.
func (inv *Inventory) NatGatewaysByRegion() map[string]NatGateway {
	index := make(map[string]NatGateway, len(inv.NatGateways))
	for _, gateway := range inv.NatGateways {
		region := NormalizeRegion(gateway.Region)
		if _, ok := index[region]; !ok {
			index[region] = gateway
		}
	}
	return index
}

// Regions lists the distinct normalized regions of the managed networks in discovery order.
func (inv *Inventory) Regions() []string {
	seen := map[string]bool{}
	var regions []string
	for _, network := range inv.Networks {
		region := NormalizeRegion(network.Region)
		if !seen[region] {
			seen[region] = true
			regions = append(regions, region)
		}
	}
	return regions
}
