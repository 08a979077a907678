package trials

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
)

var ErrNoCandidates = errors.New("no candidates left after taboo")

// Pick returns one option at random, never one listed in taboo.
func Pick(rng *rand.Rand, options, taboo []string) (string, error) {
	candidates := make([]string, 0, len(options))
	for _, o := range options {
		if !slices.Contains(taboo, o) {
			candidates = append(candidates, o)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: options %v, taboo %v", ErrNoCandidates, options, taboo)
	}
	return candidates[rng.IntN(len(candidates))], nil
}

// PickN draws n options without replacement: every selection joins the taboo
// list before the next one is made.
func PickN(rng *rand.Rand, options []string, n int, taboo []string) ([]string, error) {
	picked := make([]string, 0, n)
	full := slices.Clone(taboo)
	for range n {
		o, err := Pick(rng, options, full)
		if err != nil {
			return nil, err
		}
		picked = append(picked, o)
		full = append(full, o)
	}
	return picked, nil
}

// Shuffled returns a shuffled copy of s; s itself is left alone.
func Shuffled[T any](rng *rand.Rand, s []T) []T {
	out := slices.Clone(s)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
