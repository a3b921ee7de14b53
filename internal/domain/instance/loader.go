package instance

import (
	"context"
	"errors"
	"fmt"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/types"
)

// Outcome classifies a single load attempt
type Outcome int

// The zero Outcome is OutcomeUnknownError so that a zero LoadResult can never
// read as a success.
const (
	OutcomeUnknownError Outcome = iota
	OutcomeOK
	OutcomeNotAnInstance
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotAnInstance:
		return "not_an_instance"
	default:
		return "unknown_error"
	}
}

var (
	// ErrNotAnInstance marks directories the loader does not recognise
	ErrNotAnInstance = errors.New("not an instance")

	// ErrNilInstance is reported when a loader claims success without an instance
	ErrNilInstance = errors.New("loader reported success without an instance")

	// ErrUnknownLoad is used when a failure carries no cause
	ErrUnknownLoad = errors.New("unknown load error")
)

// LoadResult is the tagged result of Loader.Load.
// Construct it with Loaded, NotAnInstance or Failed.
type LoadResult struct {
	outcome Outcome
	inst    *types.Instance
	err     error
}

// Loaded reports a successfully loaded instance. A nil instance is turned
// into a failure carrying ErrNilInstance.
func Loaded(inst *types.Instance) LoadResult {
	if inst == nil {
		return Failed(ErrNilInstance)
	}
	return LoadResult{outcome: OutcomeOK, inst: inst}
}

// NotAnInstance reports that the directory is not an instance
func NotAnInstance(reason error) LoadResult {
	switch {
	case reason == nil:
		reason = ErrNotAnInstance
	case !errors.Is(reason, ErrNotAnInstance):
		reason = fmt.Errorf("%w: %w", ErrNotAnInstance, reason)
	}
	return LoadResult{outcome: OutcomeNotAnInstance, err: reason}
}

// Failed reports an unexpected load error
func Failed(err error) LoadResult {
	if err == nil {
		err = ErrUnknownLoad
	}
	return LoadResult{outcome: OutcomeUnknownError, err: err}
}

// Outcome returns the classification
func (r LoadResult) Outcome() Outcome {
	if r.outcome == OutcomeOK && r.inst == nil {
		return OutcomeUnknownError
	}
	return r.outcome
}

// Instance returns the loaded instance, only present for OutcomeOK
func (r LoadResult) Instance() (*types.Instance, bool) {
	if r.Outcome() != OutcomeOK {
		return nil, false
	}
	return r.inst, true
}

// Err returns the reason for a non-OK result
func (r LoadResult) Err() error {
	switch r.Outcome() {
	case OutcomeOK:
		return nil
	case OutcomeNotAnInstance:
		return r.err
	default:
		if r.err == nil {
			return ErrUnknownLoad
		}
		return r.err
	}
}

// Loader turns an instance directory into an Instance
type Loader interface {
	Load(ctx context.Context, dir string) LoadResult
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc func(ctx context.Context, dir string) LoadResult

// Load calls f(ctx, dir)
func (f LoaderFunc) Load(ctx context.Context, dir string) LoadResult {
	return f(ctx, dir)
}
