//go:build !logless

// Package logging wires the module to zerolog, the way the teacher's
// pkg/logger does: a package-level Log variable, console output, caller
// info, and a logless build tag that swaps in a no-op implementation for
// size-constrained builds.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// Log is the shared logger used by tsdf and ransac for their warnings: the
// maxTruncation clamp in tsdf.NewGrid and the too-few-valid-points early
// return in ransac.Match. Snapshot load failures are returned as errors and
// the RANSAC trialsWithoutAcceptance counter is returned in ransac.Result;
// neither is logged.
var Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Caller().Logger()

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}
