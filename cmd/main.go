package main

import (
	"context"
	"os"

	"github.com/fatih/color"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/alexeldeib/dspm-netconfig/pkg/inventory"
)

var version string

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := ctrl.SetupSignalHandler()
	go func() {
		<-stop
		cancel()
	}()

	if err := NewRootCommand(ctx, version).Execute(); err != nil {
		prefix := "error"
		if inventory.IsConfigurationError(err) {
			prefix = "configuration error"
		}
		color.New(color.FgRed).Fprintf(os.Stderr, "%s: %v\n", prefix, err)
		os.Exit(1)
	}
}
