package avatar

import "errors"

// Core avatar errors
var (
	// Setup errors

	ErrMissingModel     = errors.New("model is missing or empty")
	ErrMissingSceneNode = errors.New("scene node is not attached")
	ErrDegenerateBounds = errors.New("bounding box height is zero")

	// Ownership errors

	ErrDuplicateInstance = errors.New("avatar already has a live owner instance")

	// Lifecycle errors

	ErrTornDown = errors.New("instance is torn down")
)
