/*
Copyright 2019 Alexander Eldeib.
*/

package clientutil

import (
	"context"
	"net/http"
	"time"

	"github.com/Azure/go-autorest/autorest"
	"github.com/Azure/go-autorest/autorest/azure"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	backoffFactor = 2
	backoffJitter = 0.1
	backoffLimit  = 30 * time.Second
)

// Any executes an array of functions in order and returns true if any of them returns true. Returns false otherwise.
func Any(funcs []func() bool) bool {
	for _, f := range funcs {
		if f() {
			return true
		}
	}
	return false
}

// Initialize takes equal-length arrays of detector and remediator functions. If a given detector returns true, Initialize calls the corresponding remediator.
func Initialize(detectors []func() bool, remediators []func()) {
	for idx, f := range detectors {
		if f() {
			remediators[idx]()
		}
	}
}

// Backoff returns an exponential backoff allowing one initial attempt plus the given number of retries.
func Backoff(retries int, interval time.Duration) wait.Backoff {
	if retries < 0 {
		retries = 0
	}
	return wait.Backoff{
		Cap:      backoffLimit,
		Steps:    retries + 1,
		Factor:   backoffFactor,
		Duration: interval,
		Jitter:   backoffJitter,
	}
}

// Retry invokes fn until it succeeds, fails with a non-transient error, the context is done or the backoff is exhausted.
func Retry(ctx context.Context, backoff wait.Backoff, log logr.Logger, fn func(context.Context) error) error {
	var last error
	err := wait.ExponentialBackoff(backoff, func() (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		last = fn(ctx)
		if last == nil {
			return true, nil
		}
		if !IsTransient(last) {
			return false, last
		}
		log.V(1).Info("transient provider error, retrying", "error", last.Error())
		return false, nil
	})
	if err == wait.ErrWaitTimeout {
		return errors.Wrap(last, "retries exhausted")
	}
	return err
}

// IsTransient reports throttling, timeouts and server side failures returned by the provider.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch e := errors.Cause(err).(type) {
	case autorest.DetailedError:
		return transientStatus(e.StatusCode) || IsTransient(e.Original)
	case *autorest.DetailedError:
		return transientStatus(e.StatusCode) || IsTransient(e.Original)
	case *azure.RequestError:
		return transientStatus(e.StatusCode)
	}
	return errors.Cause(err) == context.DeadlineExceeded
}

// IsNotFound reports a 404 from the provider.
func IsNotFound(err error) bool {
	switch e := errors.Cause(err).(type) {
	case autorest.DetailedError:
		return e.StatusCode == http.StatusNotFound
	case *azure.RequestError:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

func transientStatus(code interface{}) bool {
	status, ok := code.(int)
	if !ok {
		return false
	}
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
