/*
Copyright 2019 Alexander Eldeib.
*/

package addressplan

import (
	"context"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/alexeldeib/dspm-netconfig/pkg/inventory"
)

const maxPromptAttempts = 3

type interactive struct {
	prompter Prompter
	log      logr.Logger
}

// Interactive asks the operator for one CIDR per region in scope.
// An empty or cancelled answer skips the region. Invalid answers are asked again a few times.
func Interactive(prompter Prompter, log logr.Logger) Source {
	return &interactive{prompter: prompter, log: log}
}

func (i *interactive) Resolve(ctx context.Context, regions []string) (Plan, error) {
	plan := Plan{}
	asked := map[string]bool{}
	for _, region := range regions {
		region = inventory.NormalizeRegion(region)
		if region == "" || asked[region] {
			continue
		}
		asked[region] = true

		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "address plan prompt interrupted")
		}

		cidr, err := i.ask(region)
		if err == io.EOF {
			i.log.Info("input closed, skipping remaining regions", "region", region)
			return plan, nil
		}
		if err != nil {
			return nil, err
		}
		if cidr == "" {
			i.log.Info("no address plan entered, skipping region", "region", region)
			continue
		}
		plan[region] = cidr
	}
	return plan, nil
}

func (i *interactive) ask(region string) (string, error) {
	for attempt := 1; attempt <= maxPromptAttempts; attempt++ {
		answer, err := i.prompter.Prompt(fmt.Sprintf("CIDR for %s (empty to skip): ", region))
		if err == ErrAborted {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		if answer == "" {
			return "", nil
		}
		cidr, err := ValidateCIDR(answer)
		if err == nil {
			return cidr, nil
		}
		i.log.Info("invalid CIDR, try again", "region", region, "attempt", attempt, "error", err.Error())
	}
	i.log.Info("too many invalid answers, skipping region", "region", region)
	return "", nil
}
