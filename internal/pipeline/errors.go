// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import "errors"

// Sentinel errors returned before a run starts. Stage failures wrap the
// stage's own sentinel: convert.ErrConversionFailed,
// locate.ErrLocationFailed, or assemble.ErrAssemblyFailed.
var (
	// ErrInputValidation reports a run rejected before any work started.
	ErrInputValidation = errors.New("invalid input")

	// ErrAlreadyStarted reports a second Start on the same Orchestrator.
	ErrAlreadyStarted = errors.New("orchestrator already started")
)
