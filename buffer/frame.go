// Package buffer holds the boundary buffer types a pipeline hands off to
// platform-specific decode/render code that this module does not itself
// implement — the actual pixel decode is treated as an external call, so
// Image is left untyped rather than pinned to one platform's frame type.
package buffer

import "github.com/zsiec/framegraph/h265"

// DecodedFrame is the output of a platform decoder fed by an
// [h265.EncodedH265Frame]. Image is opaque to this module; a real consumer
// downcasts it to whatever concrete pixel buffer its platform decoder
// produces.
type DecodedFrame struct {
	Image    any
	PTS      h265.Rational
	Duration h265.Rational
}

// VideoFrame is the buffer type at the edge of the pipeline nearest a
// renderer: a decoded image plus timing, with no further encoded-domain
// metadata attached.
type VideoFrame struct {
	Image    any
	PTS      h265.Rational
	Duration h265.Rational
}
