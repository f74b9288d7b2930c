package service

import "errors"

// Sentinel errors for the service lifecycle.
var (
	ErrListen   = errors.New("listen failed")
	ErrShutdown = errors.New("graceful shutdown failed")
)
