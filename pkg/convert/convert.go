package convert

import (
	"github.com/Azure/azure-sdk-for-go/services/network/mgmt/2019-04-01/network"
	"github.com/Azure/azure-sdk-for-go/services/resources/mgmt/2019-05-01/resources"
	"github.com/Azure/azure-sdk-for-go/services/storage/mgmt/2019-04-01/storage"
	"github.com/Azure/go-autorest/autorest/to"

	"github.com/alexeldeib/dspm-netconfig/pkg/clients/storageaccounts"
	"github.com/alexeldeib/dspm-netconfig/pkg/clients/subnets"
	"github.com/alexeldeib/dspm-netconfig/pkg/clients/virtualnetworks"
	"github.com/alexeldeib/dspm-netconfig/pkg/inventory"
)

func ResourceGroup(remote resources.Group) inventory.ResourceGroup {
	return inventory.ResourceGroup{
		ID:       to.String(remote.ID),
		Name:     to.String(remote.Name),
		Location: to.String(remote.Location),
	}
}

func VirtualNetwork(group string, remote network.VirtualNetwork) inventory.Network {
	local := inventory.Network{
		ID:              to.String(remote.ID),
		Name:            to.String(remote.Name),
		ResourceGroup:   group,
		Region:          to.String(remote.Location),
		AddressPrefixes: []string{},
		Subnets:         []inventory.Subnet{},
		Tags:            to.StringMap(remote.Tags),
	}
	if addresses := virtualnetworks.NewSpecWithRemote(&remote).Addresses(); addresses != nil {
		local.AddressPrefixes = append(local.AddressPrefixes, *addresses...)
	}
	if remote.VirtualNetworkPropertiesFormat != nil && remote.Subnets != nil {
		for i := range *remote.Subnets {
			local.Subnets = append(local.Subnets, Subnet((*remote.Subnets)[i]))
		}
	}
	return local
}

func Subnet(remote network.Subnet) inventory.Subnet {
	spec := subnets.NewSpecWithRemote(&remote)
	return inventory.Subnet{
		ID:               to.String(remote.ID),
		Name:             to.String(remote.Name),
		AddressPrefix:    to.String(spec.Address()),
		ServiceEndpoints: spec.Services(),
		NatGatewayID:     spec.NatGatewayID(),
		SecurityGroupID:  spec.SecurityGroupID(),
	}
}

func StorageAccount(group string, remote storage.Account) inventory.StorageAccount {
	return inventory.StorageAccount{
		ID:            to.String(remote.ID),
		Name:          to.String(remote.Name),
		ResourceGroup: group,
		Region:        to.String(remote.Location),
		Firewall:      storageaccounts.NewSpecWithRemote(&remote).Firewall(),
		Tags:          to.StringMap(remote.Tags),
	}
}

func NatGateway(remote network.NatGateway) inventory.NatGateway {
	return inventory.NatGateway{
		ID:     to.String(remote.ID),
		Name:   to.String(remote.Name),
		Region: to.String(remote.Location),
	}
}
