// Package batch fans a slice of items out across a fixed set of workers.
//
// Items are partitioned by an FNV-1a hash of a caller-supplied key, so every
// item with the same key is handled by the same worker, in input order. Each
// item is isolated: an error or panic is recorded against that item and the
// remaining items continue. Workers walk their partition in chunks of
// batch size and report progress after each chunk.
//
// Cancellation stops workers from starting new items. Items already running
// complete, and Run returns the context error with the partial result.
package batch
