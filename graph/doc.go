// Package graph implements a directed acyclic dataflow runtime: typed pads
// on named elements, schema resolution into edges, and a pipeline actor that
// spawns one worker per edge and owns their lifetimes.
//
// Buffers cross the graph as tagged [any] values so a single [Pipeline] can
// hold edges of different buffer types; individual pads stay type-safe by
// construction through the generic helpers in pad.go. Element authors never
// see the erasure — they build pads with [NewTypedOutput] and
// [NewTypedInput] and get back plain Go values.
package graph
