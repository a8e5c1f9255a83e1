// Package aggregator provides a sample synchronizer that merges
// timestamped samples from multiple streams and replays them in
// non-decreasing timestamp order, waiting a bounded time for
// samples that are delayed or missing.
// An Aggregator itself is not safe for concurrent use, a Runner
// makes it so by driving the aggregator on its own goroutine.
package aggregator
