// Package armap aggregates tracked AR feature points into a bounded,
// confidence-filtered store and persists the resulting map as JSON.
//
// An Aggregator consumes per-source point batches and owns one visual
// marker per accepted point. A PlaneRegistry tracks detected planes. A
// Store writes and reads MapSnapshot files, and a Replayer draws a loaded
// snapshot back through the same Visualizer. Session ties these together
// behind the Idle/Mapping state used by hosts.
//
// Nothing in this package is safe for concurrent use.
package armap
