package replan

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"

	"github.com/alexeldeib/dspm-netconfig/cmd/options"
	"github.com/alexeldeib/dspm-netconfig/pkg/addressplan"
	"github.com/alexeldeib/dspm-netconfig/pkg/azure"
	"github.com/alexeldeib/dspm-netconfig/pkg/backup"
	"github.com/alexeldeib/dspm-netconfig/pkg/inventory"
	"github.com/alexeldeib/dspm-netconfig/pkg/message"
	"github.com/alexeldeib/dspm-netconfig/pkg/reconcilers"
)

const defaultBackupDir = "dspm-backups"

// Provider discovers, writes and backs up networks.
type Provider interface {
	inventory.Lister
	reconcilers.Applier
	backup.DefinitionSource
}

type Options struct {
	Global      *options.Global
	CIDR        string
	Import      string
	Interactive bool
	Regions     []string
	Backup      bool
	BackupDir   string
	Force       bool
}

func NewOptions(global *options.Global) *Options {
	return &Options{
		Global:    global,
		BackupDir: defaultBackupDir,
	}
}

func NewCommand(ctx context.Context, global *options.Global) *cobra.Command {
	opts := NewOptions(global)
	cmd := &cobra.Command{
		Use:   "replan",
		Short: "Replace the address space of every managed virtual network",
		Long: `Replaces every address prefix of each tagged virtual network with a single planned CIDR and
recreates its only subnet, named <tag>-<region>, over the whole prefix. Existing subnets are deleted,
including ones not created by this tool. The region's NAT gateway, when present, is attached to the
new subnet.

The plan comes from exactly one of --cidr, --import or --interactive.`,
		Example: `  dspmnet replan --cidr 10.5.0.0/24 --regions westus --backup
  dspmnet replan --import plan.csv --force`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := global.SetupLogger().WithName("replan")
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

			var prompter addressplan.Prompter
			if opts.needsPrompter() {
				line := addressplan.NewLinePrompter()
				defer line.Close()
				prompter = line
			}
			_, err = opts.Run(ctx, provider, prompter, printer, log)
			return err
		},
	}
	cmd.Flags().StringVar(&opts.CIDR, "cidr", opts.CIDR, "Use this CIDR for every region.")
	cmd.Flags().StringVar(&opts.Import, "import", opts.Import, "Read the plan from a CSV file with a Region,Cidr header.")
	cmd.Flags().BoolVar(&opts.Interactive, "interactive", opts.Interactive, "Ask for the CIDR of each region.")
	cmd.Flags().StringSliceVar(&opts.Regions, "regions", opts.Regions, "Only replan networks in these regions.")
	cmd.Flags().BoolVar(&opts.Backup, "backup", opts.Backup, "Write each network definition to a JSON file before replacing it.")
	cmd.Flags().StringVar(&opts.BackupDir, "backup-dir", opts.BackupDir, "Directory for backups.")
	cmd.Flags().BoolVar(&opts.Force, "force", opts.Force, "Replace networks without asking for confirmation.")
	return cmd
}

// Validate requires exactly one plan source.
func (o *Options) Validate() error {
	if err := o.Global.Validate(); err != nil {
		return err
	}
	sources := 0
	for _, set := range []bool{o.CIDR != "", o.Import != "", o.Interactive} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return inventory.NewConfigurationError("exactly one of --cidr, --import or --interactive is required")
	}
	if o.CIDR != "" {
		if _, err := addressplan.ValidateCIDR(o.CIDR); err != nil {
			return inventory.NewConfigurationError("--cidr: %v", err)
		}
	}
	if o.Backup && o.BackupDir == "" {
		return inventory.NewConfigurationError("--backup-dir must not be empty")
	}
	return nil
}

func (o *Options) needsPrompter() bool {
	return o.Interactive || !o.Force
}

func (o *Options) source(prompter addressplan.Prompter, log logr.Logger) (addressplan.Source, error) {
	switch {
	case o.CIDR != "":
		return addressplan.Literal(o.CIDR), nil
	case o.Import != "":
		return addressplan.CSVFile(o.Import, log), nil
	case prompter == nil:
		return nil, inventory.NewConfigurationError("--interactive needs a terminal")
	default:
		return addressplan.Interactive(prompter, log), nil
	}
}

// scope lists the regions of managed networks, narrowed by --regions.
func (o *Options) scope(inv *inventory.Inventory) []string {
	if len(o.Regions) == 0 {
		return inv.Regions()
	}
	wanted := map[string]bool{}
	for _, region := range o.Regions {
		wanted[inventory.NormalizeRegion(region)] = true
	}
	var regions []string
	for _, region := range inv.Regions() {
		if wanted[region] {
			regions = append(regions, region)
		}
	}
	return regions
}

// Run resolves the address plan and replans every managed network.
// The error is only set for configuration problems or an interrupted run.
func (o *Options) Run(ctx context.Context, provider Provider, prompter addressplan.Prompter, printer *message.Printer, log logr.Logger) (*reconcilers.Result, error) {
	source, err := o.source(prompter, log)
	if err != nil {
		return nil, err
	}

	printer.Section("discovery")
	inv, err := inventory.Discover(ctx, provider, o.Global.Discovery(), log)
	if err != nil {
		return nil, errors.Wrap(err, "discovery failed")
	}
	log.V(1).Info("discovered inventory", "dump", litter.Sdump(inv))
	printer.Info("resource group %s: %d managed networks, %d NAT gateways", printer.Emphasize(inv.ResourceGroup.Name), len(inv.Networks), len(inv.NatGateways))

	printer.Section("address plan")
	plan, err := source.Resolve(ctx, o.scope(inv))
	if err != nil {
		return nil, err
	}
	for _, region := range plan.Regions() {
		printer.Info("%s: %s", region, plan[region])
	}
	for _, conflict := range plan.Conflicts() {
		printer.Warning("%s (%s) overlaps %s (%s), the networks cannot be peered", conflict.Region, conflict.CIDR, conflict.OtherRegion, conflict.OtherCIDR)
	}

	printer.Section("replan")
	reconciler := &reconcilers.ReplanReconciler{
		Applier:  provider,
		Log:      log,
		Progress: options.ProgressPrinter(printer),
	}
	if o.Backup {
		reconciler.Backup = &backup.Writer{Dir: o.BackupDir, Source: provider}
	}
	if !o.Force {
		reconciler.Confirm = confirm(prompter)
	}

	result, err := reconciler.Reconcile(ctx, inv, plan, reconcilers.ReplanOptions{
		Regions: o.Regions,
		Tag:     o.Global.Tag,
	})
	options.Report(printer, result)
	return result, err
}

func confirm(prompter addressplan.Prompter) reconcilers.ConfirmFunc {
	return func(network inventory.Network, prefix string) (bool, error) {
		if prompter == nil {
			return false, errors.New("no terminal to confirm on, use --force")
		}
		subnets := make([]string, 0, len(network.Subnets))
		for _, subnet := range network.Subnets {
			subnets = append(subnets, subnet.Name)
		}
		question := fmt.Sprintf("Replace %s %v with %s, deleting subnets [%s]?",
			network.Name, network.AddressPrefixes, prefix, strings.Join(subnets, ", "))
		return addressplan.Confirm(prompter, question)
	}
}
