//go:build logless

package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// Log is the logless build's no-op logger: same zerolog.Logger type as the
// default build (so call sites never branch on build tag), but writing to
// io.Discard and disabled at the level filter. This mirrors the effect of
// the teacher's pkg/core/logger.EmptyLog (stripping log output from
// size-constrained builds) without hand-duplicating zerolog's chainable
// Event API.
var Log = zerolog.New(io.Discard).Level(zerolog.Disabled)
