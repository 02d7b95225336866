package internal

import (
	"iter"
)

// Defines merges sequences of assembler defines. When a name appears in
// more than one sequence, the first value seen is kept.
func Defines(seqs ...iter.Seq2[string, string]) iter.Seq2[string, string] {
	return func(yield func(name, value string) bool) {
		seen := make(map[string]bool)
		for _, seq := range seqs {
			for name, value := range seq {
				if seen[name] {
					continue
				}
				seen[name] = true
				if !yield(name, value) {
					return
				}
			}
		}
	}
}
