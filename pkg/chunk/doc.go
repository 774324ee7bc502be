// Package chunk reassembles split files.
//
// Resolve finds every fragment that shares a base name with one seed file
// and orders them by suffix. Four suffix grammars are recognised, tried in
// this order: numeric (.001), lowercase alphabetic (.aa), part (.part1) and
// chunk (.chunk1). Numeric, part and chunk suffixes order by integer value;
// alphabetic suffixes order as base-26 numbers with a=1 and always after
// every numeric suffix.
//
// A Combiner then copies the fragments into one output in a single pass,
// feeding every block to two digest accumulators and reporting progress
// through callbacks.
package chunk
