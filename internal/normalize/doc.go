// Package normalize holds the stateless helpers every loader relies on
// before joining or aggregating records: canonical well identifiers,
// experiment-key cleanup and locale-tolerant number parsing.
package normalize
