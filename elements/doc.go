// Package elements provides a small set of concrete [graph.Element]
// implementations: a ticker-driven test source, a stateless mapping filter,
// a bounded-queue buffering sink, a two-way splitter, and a collecting sink
// used by tests and examples to observe what passed through a pipeline.
package elements
