/*
Copyright 2019 Alexander Eldeib.
*/

package addressplan

import (
	"context"
	"sort"

	"github.com/alexeldeib/dspm-netconfig/pkg/cidrutil"
	"github.com/alexeldeib/dspm-netconfig/pkg/inventory"
)

// Plan maps a normalized region to the CIDR its network should use.
// A region missing from the plan is skipped, never defaulted.
type Plan map[string]string

// Source resolves a plan for the regions in scope.
type Source interface {
	Resolve(ctx context.Context, regions []string) (Plan, error)
}

// Lookup accepts display names as well as location names.
func (p Plan) Lookup(region string) (string, bool) {
	cidr, ok := p[inventory.NormalizeRegion(region)]
	return cidr, ok
}

// Regions returns the planned regions in sorted order.
func (p Plan) Regions() []string {
	regions := make([]string, 0, len(p))
	for region := range p {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}

// Conflict is a pair of regions whose planned ranges overlap.
type Conflict struct {
	Region      string
	CIDR        string
	OtherRegion string
	OtherCIDR   string
}

// Conflicts lists overlapping ranges across regions. Unpeered networks may legally overlap,
// so callers treat these as warnings.
func (p Plan) Conflicts() []Conflict {
	var conflicts []Conflict
	regions := p.Regions()
	for i, a := range regions {
		for _, b := range regions[i+1:] {
			if cidrutil.Overlaps(p[a], p[b]) {
				conflicts = append(conflicts, Conflict{Region: a, CIDR: p[a], OtherRegion: b, OtherCIDR: p[b]})
			}
		}
	}
	return conflicts
}

// ValidateCIDR checks an address prefix and returns its canonical form.
func ValidateCIDR(cidr string) (string, error) {
	return cidrutil.ValidateNetwork(cidr)
}

type literal struct {
	cidr string
}

// Literal maps every region in scope to the same CIDR.
func Literal(cidr string) Source {
	return &literal{cidr: cidr}
}

func (l *literal) Resolve(ctx context.Context, regions []string) (Plan, error) {
	cidr, err := ValidateCIDR(l.cidr)
	if err != nil {
		return nil, inventory.NewConfigurationError("%v", err)
	}
	plan := Plan{}
	for _, region := range regions {
		if normalized := inventory.NormalizeRegion(region); normalized != "" {
			plan[normalized] = cidr
		}
	}
	return plan, nil
}
