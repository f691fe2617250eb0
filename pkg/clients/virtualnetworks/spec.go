/*
Copyright 2019 Alexander Eldeib.
*/

package virtualnetworks

import (
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/network/mgmt/2019-04-01/network"
	"github.com/Azure/go-autorest/autorest/to"
	"github.com/google/go-cmp/cmp"

	"github.com/alexeldeib/dspm-netconfig/pkg/clients/clientutil"
	"github.com/alexeldeib/dspm-netconfig/pkg/inventory"
)

type Spec struct {
	internal *network.VirtualNetwork
}

func NewSpecWithRemote(remote *network.VirtualNetwork) *Spec {
	return &Spec{
		internal: remote,
	}
}

func (s *Spec) Set(opts ...func(*Spec)) {
	for _, opt := range opts {
		opt(s)
	}
}

func (s *Spec) Build() network.VirtualNetwork {
	return *s.internal
}

func (s *Spec) initializeAddressSpace() {
	clientutil.Initialize(
		[]func() bool{
			func() bool { return s.internal.VirtualNetworkPropertiesFormat == nil },
			func() bool { return s.internal.VirtualNetworkPropertiesFormat.AddressSpace == nil },
			func() bool { return s.internal.VirtualNetworkPropertiesFormat.AddressSpace.AddressPrefixes == nil },
		},
		[]func(){
			func() { s.internal.VirtualNetworkPropertiesFormat = &network.VirtualNetworkPropertiesFormat{} },
			func() { s.internal.VirtualNetworkPropertiesFormat.AddressSpace = &network.AddressSpace{} },
			func() { s.internal.VirtualNetworkPropertiesFormat.AddressSpace.AddressPrefixes = &[]string{} },
		},
	)
}

func (s *Spec) initializeSubnets() {
	clientutil.Initialize(
		[]func() bool{
			func() bool { return s.internal.VirtualNetworkPropertiesFormat == nil },
			func() bool { return s.internal.VirtualNetworkPropertiesFormat.Subnets == nil },
		},
		[]func(){
			func() { s.internal.VirtualNetworkPropertiesFormat = &network.VirtualNetworkPropertiesFormat{} },
			func() { s.internal.VirtualNetworkPropertiesFormat.Subnets = &[]network.Subnet{} },
		},
	)
}

// AddressSpace adds a prefix if it is not present yet.
func AddressSpace(cidr string) func(s *Spec) {
	return func(s *Spec) {
		s.initializeAddressSpace()
		prefixes := s.internal.VirtualNetworkPropertiesFormat.AddressSpace.AddressPrefixes
		for _, prefix := range *prefixes {
			if prefix == cidr {
				return
			}
		}
		*prefixes = append(*prefixes, cidr)
	}
}

func ClearAddressSpace() func(s *Spec) {
	return func(s *Spec) {
		s.initializeAddressSpace()
		*s.internal.VirtualNetworkPropertiesFormat.AddressSpace.AddressPrefixes = []string{}
	}
}

// ClearSubnets drops every subnet, including ones created outside this tool.
func ClearSubnets() func(s *Spec) {
	return func(s *Spec) {
		s.initializeSubnets()
		*s.internal.VirtualNetworkPropertiesFormat.Subnets = []network.Subnet{}
	}
}

// Subnet sets the prefix of the named subnet, adding the subnet when missing.
func Subnet(name, cidr string) func(s *Spec) {
	return func(s *Spec) {
		s.initializeSubnets()
		if subnet := s.subnet(name); subnet != nil {
			if subnet.SubnetPropertiesFormat == nil {
				subnet.SubnetPropertiesFormat = &network.SubnetPropertiesFormat{}
			}
			subnet.AddressPrefix = to.StringPtr(cidr)
			return
		}
		*s.internal.VirtualNetworkPropertiesFormat.Subnets = append(
			*s.internal.VirtualNetworkPropertiesFormat.Subnets,
			network.Subnet{
				Name: to.StringPtr(name),
				SubnetPropertiesFormat: &network.SubnetPropertiesFormat{
					AddressPrefix: to.StringPtr(cidr),
				},
			},
		)
	}
}

// SubnetNatGateway routes outbound traffic of an existing subnet through the gateway. Empty IDs are ignored.
func SubnetNatGateway(name, id string) func(s *Spec) {
	return func(s *Spec) {
		if id == "" {
			return
		}
		subnet := s.subnet(name)
		if subnet == nil {
			return
		}
		if subnet.SubnetPropertiesFormat == nil {
			subnet.SubnetPropertiesFormat = &network.SubnetPropertiesFormat{}
		}
		subnet.NatGateway = &network.SubResource{ID: to.StringPtr(id)}
	}
}

func (s *Spec) subnet(name string) *network.Subnet {
	if s.internal.VirtualNetworkPropertiesFormat == nil || s.internal.VirtualNetworkPropertiesFormat.Subnets == nil {
		return nil
	}
	subnets := *s.internal.VirtualNetworkPropertiesFormat.Subnets
	for i := range subnets {
		if subnets[i].Name != nil && strings.EqualFold(*subnets[i].Name, name) {
			return &subnets[i]
		}
	}
	return nil
}

// NeedsUpdate compares address space and subnets against the desired network. Subnet order does not matter.
func (s *Spec) NeedsUpdate(local inventory.Network) bool {
	return clientutil.Any([]func() bool{
		func() bool { return s.Addresses() == nil || !cmp.Equal(local.AddressPrefixes, *s.Addresses()) },
		func() bool { return len(s.subnets()) != len(local.Subnets) },
		func() bool {
			for _, want := range local.Subnets {
				got := s.subnet(want.Name)
				if got == nil || got.SubnetPropertiesFormat == nil {
					return true
				}
				if to.String(got.AddressPrefix) != want.AddressPrefix {
					return true
				}
				if want.NatGatewayID != "" && (got.NatGateway == nil || !strings.EqualFold(to.String(got.NatGateway.ID), want.NatGatewayID)) {
					return true
				}
			}
			return false
		},
	})
}

func (s *Spec) Addresses() *[]string {
	if s.internal.VirtualNetworkPropertiesFormat == nil || s.internal.VirtualNetworkPropertiesFormat.AddressSpace == nil {
		return nil
	}
	return s.internal.VirtualNetworkPropertiesFormat.AddressSpace.AddressPrefixes
}

func (s *Spec) subnets() []network.Subnet {
	if s.internal.VirtualNetworkPropertiesFormat == nil || s.internal.VirtualNetworkPropertiesFormat.Subnets == nil {
		return nil
	}
	return *s.internal.VirtualNetworkPropertiesFormat.Subnets
}
