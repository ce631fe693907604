// Package aggregates implements the fabrication write model over the repos in
// internal/data/repos. Each aggregate operation owns its transaction and
// guards state changes with a compare-and-set on the state column.
package aggregates
