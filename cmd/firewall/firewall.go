package firewall

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"

	"github.com/alexeldeib/dspm-netconfig/cmd/options"
	"github.com/alexeldeib/dspm-netconfig/pkg/azure"
	"github.com/alexeldeib/dspm-netconfig/pkg/cidrutil"
	"github.com/alexeldeib/dspm-netconfig/pkg/inventory"
	"github.com/alexeldeib/dspm-netconfig/pkg/message"
	"github.com/alexeldeib/dspm-netconfig/pkg/reconcilers"
)

// defaultIPs is the egress allow-list of the DSPM service. Override at build time with
// -ldflags "-X github.com/alexeldeib/dspm-netconfig/cmd/firewall.defaultIPs=a,b".
var defaultIPs = "198.51.100.10,198.51.100.11,203.0.113.0/28"

// DefaultIPs returns the built-in allow-list.
func DefaultIPs() []string {
	var ips []string
	for _, ip := range strings.Split(defaultIPs, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

type Options struct {
	Global  *options.Global
	IPs     []string
	Regions []string
}

func NewOptions(global *options.Global) *Options {
	return &Options{
		Global: global,
		IPs:    DefaultIPs(),
	}
}

func NewCommand(ctx context.Context, global *options.Global) *cobra.Command {
	opts := NewOptions(global)
	cmd := &cobra.Command{
		Use:   "firewall",
		Short: "Restrict storage accounts to the DSPM service and the network of their region",
		Long: `Enables the CosmosDB, SQL and Storage service endpoints on the managed subnet of each tagged
virtual network, then denies all traffic to every storage account in the DSPM resource group except
from the allowed IPs and the subnets of the virtual network in the same region.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := global.SetupLogger().WithName("firewall")
			printer := global.Printer(cmd.OutOrStdout())
			if err := opts.Validate(); err != nil {
				return err
			}
			configuration, err := global.Config()
			if err != nil {
				return err
			}
			provider, err := azure.New(configuration, log, global.Debug)
			if err != nil {
				return err
			}
			_, err = opts.Run(ctx, provider, provider, printer, log)
			return err
		},
	}
	cmd.Flags().StringSliceVar(&opts.IPs, "ips", opts.IPs, "IP addresses or CIDR ranges allowed through every storage firewall.")
	cmd.Flags().StringSliceVar(&opts.Regions, "regions", opts.Regions, "Only reconcile storage accounts in these regions.")
	return cmd
}

// Validate canonicalizes the allow-list.
func (o *Options) Validate() error {
	if err := o.Global.Validate(); err != nil {
		return err
	}
	ips := make([]string, 0, len(o.IPs))
	for _, ip := range o.IPs {
		valid, err := cidrutil.ValidateIPRange(ip)
		if err != nil {
			return inventory.NewConfigurationError("--ips: %v", err)
		}
		ips = append(ips, valid)
	}
	o.IPs = ips
	return nil
}

// Run discovers the DSPM resource group and reconciles every storage account in it.
// The error is only set for configuration problems or an interrupted run.
func (o *Options) Run(ctx context.Context, lister inventory.Lister, applier reconcilers.Applier, printer *message.Printer, log logr.Logger) (*reconcilers.Result, error) {
	printer.Section("discovery")
	inv, err := inventory.Discover(ctx, lister, o.Global.Discovery(), log)
	if err != nil {
		return nil, errors.Wrap(err, "discovery failed")
	}
	log.V(1).Info("discovered inventory", "dump", litter.Sdump(inv))
	printer.Info("resource group %s: %d storage accounts, %d managed networks", printer.Emphasize(inv.ResourceGroup.Name), len(inv.StorageAccounts), len(inv.Networks))

	printer.Section("firewall")
	reconciler := &reconcilers.FirewallReconciler{
		Applier:  applier,
		Log:      log,
		Progress: options.ProgressPrinter(printer),
	}
	result, err := reconciler.Reconcile(ctx, inv, reconcilers.FirewallOptions{
		Regions:    o.Regions,
		AllowedIPs: o.IPs,
		Tag:        o.Global.Tag,
	})
	options.Report(printer, result)
	return result, err
}
