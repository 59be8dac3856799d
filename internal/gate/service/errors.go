package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownRole is returned when a role selector is not in the
	// configured role map. It never reaches the store.
	ErrUnknownRole = errors.New("unknown role selector")

	// ErrTokenNotRedeemable covers every reason a token cannot be redeemed:
	// never existed, already used, or lost a concurrent race. Callers are
	// intentionally unable to tell these apart.
	ErrTokenNotRedeemable = errors.New("token not found, expired, or already used")
)

// Stage names one step of the post-validation redemption pipeline.
type Stage string

const (
	StageValidate Stage = "validating"
	StageExchange Stage = "exchange"
	StageIdentity Stage = "identity"
	StageGrant    Stage = "grant"
)

// PipelineError tags a redemption failure with the stage it occurred in.
// Stage Validate means the store itself failed (not a rejected token);
// the other stages are upstream provider failures. The consumed token is
// never restored on a pipeline failure.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("redemption failed at %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
