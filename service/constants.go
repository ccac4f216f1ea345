package service

import "time"

const (
	// DefaultEndpoint is the public Denavit-Hartenberg calculation service.
	DefaultEndpoint = "https://denavit-hartenberg.herokuapp.com/calculate-dh/"

	DefaultNoticeDuration = 3 * time.Second
	DefaultSessionTTL     = 24 * time.Hour
	DefaultMaxRows        = 64

	sessionKeyPrefix = "session:"

	// maxResponseBytes caps how much of a compute response is read.
	maxResponseBytes = 1 << 20
)
