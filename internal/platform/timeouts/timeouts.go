// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing a gRPC peer.
const GRPCDial = 2 * time.Second

// GRPCRequest caps the time allowed for a single seed request against the
// escrow service.
const GRPCRequest = 5 * time.Second

// Projection caps one journal write issued after a project operation commits.
const Projection = 2 * time.Second

// Shutdown limits how long telemetry and storage get to flush on exit.
const Shutdown = 5 * time.Second
