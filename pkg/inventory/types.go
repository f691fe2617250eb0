/*
Copyright 2019 Alexander Eldeib.
*/

package inventory

import (
	"fmt"
	"strings"
)

const (
	DefaultActionDeny  = "Deny"
	DefaultActionAllow = "Allow"

	BypassLogging       = "Logging"
	BypassMetrics       = "Metrics"
	BypassAzureServices = "AzureServices"
)

// ResourceGroup is the discovery scope.
type ResourceGroup struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// Network is a regional virtual network. The network exclusively owns its subnets.
type Network struct {
	ID              string            `json:"id,omitempty"`
	Name            string            `json:"name"`
	ResourceGroup   string            `json:"resourceGroup"`
	Region          string            `json:"region"`
	AddressPrefixes []string          `json:"addressPrefixes"`
	Subnets         []Subnet          `json:"subnets"`
	Tags            map[string]string `json:"tags,omitempty"`
}

// Subnet is an address range partition of a Network.
type Subnet struct {
	ID               string   `json:"id,omitempty"`
	Name             string   `json:"name"`
	AddressPrefix    string   `json:"addressPrefix"`
	ServiceEndpoints []string `json:"serviceEndpoints,omitempty"`
	NatGatewayID     string   `json:"natGatewayId,omitempty"`
	SecurityGroupID  string   `json:"networkSecurityGroupId,omitempty"`
}

// StorageAccount is a storage endpoint guarded by a firewall rule set.
// It refers to its network only through the shared region.
type StorageAccount struct {
	ID            string            `json:"id,omitempty"`
	Name          string            `json:"name"`
	ResourceGroup string            `json:"resourceGroup"`
	Region        string            `json:"region"`
	Firewall      FirewallRuleSet   `json:"firewall"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// NatGateway provides outbound connectivity for the subnets of one region.
type NatGateway struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

// FirewallRuleSet is the network ACL of a storage account.
// Every listed IP range and subnet ID is allowed, everything else falls to DefaultAction.
type FirewallRuleSet struct {
	IPRules             []string `json:"ipRules"`
	VirtualNetworkRules []string `json:"virtualNetworkRules"`
	DefaultAction       string   `json:"defaultAction"`
	Bypass              []string `json:"bypass"`
}

// Inventory is one discovery snapshot. Nothing in it outlives a run.
type Inventory struct {
	ResourceGroup   ResourceGroup
	Networks        []Network
	StorageAccounts []StorageAccount
	NatGateways     []NatGateway
}

// Subnet returns the subnet with the given name, case-insensitively.
func (n *Network) Subnet(name string) (Subnet, bool) {
	for _, subnet := range n.Subnets {
		if strings.EqualFold(subnet.Name, name) {
			return subnet, true
		}
	}
	return Subnet{}, false
}

// SubnetIDs returns the identifier of every subnet in the network, in network order.
func (n *Network) SubnetIDs() []string {
	ids := make([]string, 0, len(n.Subnets))
	for _, subnet := range n.Subnets {
		if subnet.ID != "" {
			ids = append(ids, subnet.ID)
		}
	}
	return ids
}

// HasTag reports whether the tag key is present, regardless of value.
func (n *Network) HasTag(tag string) bool {
	for key := range n.Tags {
		if strings.EqualFold(key, tag) {
			return true
		}
	}
	return false
}

// SubnetName is the deterministic name of the single managed subnet of a region.
func SubnetName(tag, region string) string {
	return fmt.Sprintf("%s-%s", tag, NormalizeRegion(region))
}

// NormalizeRegion folds display names and location names onto one key: "West US" and "westus" are equal.
func NormalizeRegion(region string) string {
	return strings.ToLower(strings.Join(strings.Fields(region), ""))
}

// WithAddressSpace returns a copy of the network whose address space is exactly prefix and whose only subnet is subnet.
// Every prior prefix and subnet is dropped, including subnets this tool did not create.
func (n *Network) WithAddressSpace(prefix string, subnet Subnet) Network {
	out := *n
	out.AddressPrefixes = []string{prefix}
	out.Subnets = []Subnet{subnet}
	if n.Tags != nil {
		out.Tags = make(map[string]string, len(n.Tags))
		for k, v := range n.Tags {
			out.Tags[k] = v
		}
	}
	return out
}

// HasAddressSpace reports whether the network already is exactly prefix with subnet as its only subnet,
// covering the prefix and attached to the same NAT gateway.
func (n *Network) HasAddressSpace(prefix string, subnet Subnet) bool {
	if len(n.AddressPrefixes) != 1 || n.AddressPrefixes[0] != prefix {
		return false
	}
	if len(n.Subnets) != 1 {
		return false
	}
	existing := n.Subnets[0]
	return strings.EqualFold(existing.Name, subnet.Name) &&
		existing.AddressPrefix == prefix &&
		strings.EqualFold(existing.NatGatewayID, subnet.NatGatewayID)
}
