/*
Copyright 2019 Alexander Eldeib.
*/

package storageaccounts

import (
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/storage/mgmt/2019-04-01/storage"
	"github.com/Azure/go-autorest/autorest/to"

	"github.com/alexeldeib/dspm-netconfig/pkg/clients/clientutil"
	"github.com/alexeldeib/dspm-netconfig/pkg/inventory"
	"github.com/alexeldeib/dspm-netconfig/pkg/stringslice"
)

type Spec struct {
	internal *storage.Account
}

func NewSpecWithRemote(remote *storage.Account) *Spec {
	return &Spec{
		internal: remote,
	}
}

func (s *Spec) Set(opts ...func(*Spec)) {
	for _, opt := range opts {
		opt(s)
	}
}

func (s *Spec) Build() storage.Account {
	return *s.internal
}

// ForUpdate returns a patch carrying only the network rules, so nothing else on the account changes.
func (s *Spec) ForUpdate() storage.AccountUpdateParameters {
	params := storage.AccountUpdateParameters{
		AccountPropertiesUpdateParameters: &storage.AccountPropertiesUpdateParameters{},
	}
	if s.internal.AccountProperties != nil {
		params.AccountPropertiesUpdateParameters.NetworkRuleSet = s.internal.AccountProperties.NetworkRuleSet
	}
	return params
}

// NetworkRules replaces the firewall of the account.
func NetworkRules(rules inventory.FirewallRuleSet) func(*Spec) {
	return func(s *Spec) {
		clientutil.Initialize(
			[]func() bool{
				func() bool { return s.internal.AccountProperties == nil },
			},
			[]func(){
				func() { s.internal.AccountProperties = &storage.AccountProperties{} },
			},
		)

		ipRules := make([]storage.IPRule, 0, len(rules.IPRules))
		for _, ip := range rules.IPRules {
			ipRules = append(ipRules, storage.IPRule{
				IPAddressOrRange: to.StringPtr(ip),
				Action:           storage.Allow,
			})
		}

		vnetRules := make([]storage.VirtualNetworkRule, 0, len(rules.VirtualNetworkRules))
		for _, id := range rules.VirtualNetworkRules {
			vnetRules = append(vnetRules, storage.VirtualNetworkRule{
				VirtualNetworkResourceID: to.StringPtr(id),
				Action:                   storage.Allow,
			})
		}

		s.internal.AccountProperties.NetworkRuleSet = &storage.NetworkRuleSet{
			Bypass:              storage.Bypass(strings.Join(rules.Bypass, ", ")),
			IPRules:             &ipRules,
			VirtualNetworkRules: &vnetRules,
			DefaultAction:       storage.DefaultAction(rules.DefaultAction),
		}
	}
}

// Firewall reads the current network rules of the account. Only allow rules are reported.
func (s *Spec) Firewall() inventory.FirewallRuleSet {
	rules := inventory.FirewallRuleSet{
		IPRules:             []string{},
		VirtualNetworkRules: []string{},
		Bypass:              []string{},
	}
	if s.internal.AccountProperties == nil || s.internal.AccountProperties.NetworkRuleSet == nil {
		rules.DefaultAction = inventory.DefaultActionAllow
		return rules
	}
	ruleSet := s.internal.AccountProperties.NetworkRuleSet
	rules.DefaultAction = string(ruleSet.DefaultAction)
	for _, bypass := range strings.Split(string(ruleSet.Bypass), ",") {
		if bypass = strings.TrimSpace(bypass); bypass != "" && !strings.EqualFold(bypass, string(storage.None)) {
			rules.Bypass = append(rules.Bypass, bypass)
		}
	}
	if ruleSet.IPRules != nil {
		for _, rule := range *ruleSet.IPRules {
			if rule.IPAddressOrRange != nil && (rule.Action == "" || rule.Action == storage.Allow) {
				rules.IPRules = append(rules.IPRules, *rule.IPAddressOrRange)
			}
		}
	}
	if ruleSet.VirtualNetworkRules != nil {
		for _, rule := range *ruleSet.VirtualNetworkRules {
			if rule.VirtualNetworkResourceID != nil && (rule.Action == "" || rule.Action == storage.Allow) {
				rules.VirtualNetworkRules = append(rules.VirtualNetworkRules, *rule.VirtualNetworkResourceID)
			}
		}
	}
	return rules
}

// NeedsUpdate compares the remote firewall with the desired one, ignoring order and case.
func (s *Spec) NeedsUpdate(local inventory.FirewallRuleSet) bool {
	remote := s.Firewall()
	return clientutil.Any([]func() bool{
		func() bool { return !strings.EqualFold(remote.DefaultAction, local.DefaultAction) },
		func() bool { return !stringslice.EqualFold(remote.Bypass, local.Bypass) },
		func() bool { return !stringslice.EqualFold(remote.IPRules, local.IPRules) },
		func() bool { return !stringslice.EqualFold(remote.VirtualNetworkRules, local.VirtualNetworkRules) },
	})
}

