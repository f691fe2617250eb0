/*
Copyright 2019 Alexander Eldeib.
*/

package subnets

import (
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/network/mgmt/2019-04-01/network"
	"github.com/Azure/go-autorest/autorest/to"

	"github.com/alexeldeib/dspm-netconfig/pkg/clients/clientutil"
	"github.com/alexeldeib/dspm-netconfig/pkg/inventory"
	"github.com/alexeldeib/dspm-netconfig/pkg/stringslice"
)

type Spec struct {
	internal *network.Subnet
}

// NewSpecWithRemote starts from the live subnet so that properties this tool does not manage,
// such as route tables or delegations, survive the write.
func NewSpecWithRemote(remote *network.Subnet) *Spec {
	return &Spec{
		internal: remote,
	}
}

func (s *Spec) Set(opts ...func(*Spec)) {
	for _, opt := range opts {
		opt(s)
	}
}

func (s *Spec) Build() network.Subnet {
	return *s.internal
}

func (s *Spec) initialize() {
	clientutil.Initialize(
		[]func() bool{
			func() bool { return s.internal.SubnetPropertiesFormat == nil },
		},
		[]func(){
			func() { s.internal.SubnetPropertiesFormat = &network.SubnetPropertiesFormat{} },
		},
	)
}

func Address(cidr string) func(*Spec) {
	return func(s *Spec) {
		s.initialize()
		s.internal.SubnetPropertiesFormat.AddressPrefix = &cidr
	}
}

// ServiceEndpoints enables the given services, keeping endpoints which are already configured.
func ServiceEndpoints(services ...string) func(*Spec) {
	return func(s *Spec) {
		s.initialize()
		if s.internal.ServiceEndpoints == nil {
			s.internal.ServiceEndpoints = &[]network.ServiceEndpointPropertiesFormat{}
		}
		existing := s.Services()
		for _, service := range services {
			if stringslice.HasFold(existing, service) {
				continue
			}
			*s.internal.ServiceEndpoints = append(*s.internal.ServiceEndpoints, network.ServiceEndpointPropertiesFormat{
				Service: to.StringPtr(service),
			})
			existing = append(existing, service)
		}
	}
}

// SecurityGroup attaches a network security group. An empty ID leaves the current association alone.
func SecurityGroup(id string) func(*Spec) {
	return func(s *Spec) {
		if id == "" {
			return
		}
		s.initialize()
		if s.internal.NetworkSecurityGroup != nil && strings.EqualFold(to.String(s.internal.NetworkSecurityGroup.ID), id) {
			return
		}
		s.internal.NetworkSecurityGroup = &network.SecurityGroup{ID: to.StringPtr(id)}
	}
}

// NeedsUpdate reports whether the subnet lacks any part of the desired state.
// Endpoints enabled remotely but not requested do not count as drift.
func (s *Spec) NeedsUpdate(local inventory.Subnet) bool {
	return clientutil.Any([]func() bool{
		func() bool { return s.Address() == nil || *s.Address() != local.AddressPrefix },
		func() bool {
			for _, service := range local.ServiceEndpoints {
				if !stringslice.HasFold(s.Services(), service) {
					return true
				}
			}
			return false
		},
		func() bool {
			return local.SecurityGroupID != "" && !strings.EqualFold(s.SecurityGroupID(), local.SecurityGroupID)
		},
	})
}

func (s *Spec) Address() *string {
	if s.internal.SubnetPropertiesFormat == nil {
		return nil
	}
	return s.internal.SubnetPropertiesFormat.AddressPrefix
}

// Services lists the services with an endpoint on the subnet.
func (s *Spec) Services() []string {
	if s.internal.SubnetPropertiesFormat == nil || s.internal.ServiceEndpoints == nil {
		return nil
	}
	var services []string
	for _, endpoint := range *s.internal.ServiceEndpoints {
		if endpoint.Service != nil {
			services = append(services, *endpoint.Service)
		}
	}
	return services
}

func (s *Spec) SecurityGroupID() string {
	if s.internal.SubnetPropertiesFormat == nil || s.internal.NetworkSecurityGroup == nil {
		return ""
	}
	return to.String(s.internal.NetworkSecurityGroup.ID)
}

func (s *Spec) NatGatewayID() string {
	if s.internal.SubnetPropertiesFormat == nil || s.internal.NatGateway == nil {
		return ""
	}
	return to.String(s.internal.NatGateway.ID)
}
