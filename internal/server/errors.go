package server

import "errors"

var (
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrUnknownAvatar        = errors.New("unknown avatar")
)
