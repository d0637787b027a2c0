// Package feed defines the core types shared across subsystems: source
// descriptors, normalized items, the adapter boundary, the error taxonomy,
// and the retry policy applied to transient fetch failures.
package feed
