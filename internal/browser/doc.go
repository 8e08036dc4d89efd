// Package browser presents threads ordered by recency and mediates
// creation and selection. It holds no persisted state of its own; the
// store remains the single writer.
package browser
