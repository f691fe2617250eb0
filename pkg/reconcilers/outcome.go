/*
Copyright 2019 Alexander Eldeib.
*/

package reconcilers

import (
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

type Status string

const (
	Succeeded Status = "Succeeded"
	Skipped   Status = "Skipped"
	Failed    Status = "Failed"
)

const (
	KindStorageAccount = "StorageAccount"
	KindNetwork        = "VirtualNetwork"
)

// Outcome records what happened to one resource during a run.
type Outcome struct {
	Kind   string
	Name   string
	Region string
	Status Status
	// Reason explains skips and failures for the operator.
	Reason string
	Err    error
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s %s (%s): %s: %s: %v", o.Kind, o.Name, o.Region, o.Status, o.Reason, o.Err)
	}
	if o.Reason != "" {
		return fmt.Sprintf("%s %s (%s): %s: %s", o.Kind, o.Name, o.Region, o.Status, o.Reason)
	}
	return fmt.Sprintf("%s %s (%s): %s", o.Kind, o.Name, o.Region, o.Status)
}

// Result collects the outcome of every resource a run looked at, in processing order.
type Result struct {
	Outcomes []Outcome
}

func (r *Result) add(o Outcome) Outcome {
	r.Outcomes = append(r.Outcomes, o)
	return o
}

func (r *Result) filter(status Status) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

func (r *Result) Succeeded() []Outcome {
	return r.filter(Succeeded)
}

func (r *Result) Skipped() []Outcome {
	return r.filter(Skipped)
}

func (r *Result) Failed() []Outcome {
	return r.filter(Failed)
}

// Err aggregates every per-resource failure, or returns nil when nothing failed.
func (r *Result) Err() error {
	var result *multierror.Error
	for _, o := range r.Failed() {
		err := o.Err
		if err == nil {
			err = errors.New("unknown failure")
		}
		result = multierror.Append(result, errors.Wrapf(err, "%s %s (%s): %s", o.Kind, o.Name, o.Region, o.Reason))
	}
	return result.ErrorOrNil()
}

func (r *Result) Summary() string {
	return fmt.Sprintf("succeeded=%d skipped=%d failed=%d", len(r.Succeeded()), len(r.Skipped()), len(r.Failed()))
}

// Progress is reported after each resource, including skipped ones.
type Progress struct {
	Processed int
	Total     int
	Name      string
	Region    string
	Status    Status
}

type ProgressFunc func(Progress)

func (f ProgressFunc) report(p Progress) {
	if f != nil {
		f(p)
	}
}
