package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexeldeib/dspm-netconfig/cmd/firewall"
	"github.com/alexeldeib/dspm-netconfig/cmd/options"
	"github.com/alexeldeib/dspm-netconfig/cmd/replan"
)

func NewRootCommand(ctx context.Context, version string) *cobra.Command {
	global := options.NewGlobal()
	global.UserAgent = userAgent(version)
	root := &cobra.Command{
		Use:   "dspmnet",
		Short: "Configure Azure networking for a DSPM scanner deployment",
		Long: `dspmnet finds the resource group of a DSPM deployment by name and either locks its storage
accounts down to the DSPM service and the co-located virtual network, or replans the address space of
its tagged virtual networks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	global.AddFlags(root.PersistentFlags())
	root.AddCommand(NewVersionCommand(version))
	root.AddCommand(firewall.NewCommand(ctx, global))
	root.AddCommand(replan.NewCommand(ctx, global))
	return root
}

func NewVersionCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use: "version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", version)
		},
	}
	return cmd
}

func userAgent(version string) string {
	if version == "" {
		return "dspmnet"
	}
	return "dspmnet/" + version
}
