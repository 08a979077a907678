package pairing

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/DoyleJ11/shapes-interaction/internal/trials"
)

type Condition string

const (
	// FixedAssociations binds some of the pair's shapes to one colour each.
	FixedAssociations Condition = "fixed_associations"
	// RandomAssociations leaves every shape free.
	RandomAssociations Condition = "random_associations"
)

type Config struct {
	ShapesPerPair int
	FixedColours  int
}

// Pair is the material both partners share.
type Pair struct {
	Condition      Condition
	Shapes         []string
	Correspondence trials.Correspondence
	Trials         []trials.Trial
}

type Former struct {
	gen   *trials.Generator
	vocab trials.Vocabulary
	cfg   Config
}

func NewFormer(gen *trials.Generator, vocab trials.Vocabulary, cfg Config) *Former {
	return &Former{gen: gen, vocab: vocab, cfg: cfg}
}

// Form draws the pair's shapes and condition, then builds one trial list per
// future director and interleaves them.
func (f *Former) Form(rng *rand.Rand) (Pair, error) {
	shapes, err := trials.PickN(rng, f.vocab.Shapes, f.cfg.ShapesPerPair, nil)
	if err != nil {
		return Pair{}, fmt.Errorf("pick shapes: %w", err)
	}

	cond := FixedAssociations
	nFixed := f.cfg.FixedColours
	if rng.IntN(2) == 1 {
		cond = RandomAssociations
		nFixed = 0
	}

	colours, err := trials.PickN(rng, f.vocab.Colours, nFixed, nil)
	if err != nil {
		return Pair{}, fmt.Errorf("pick fixed colours: %w", err)
	}
	fixed, err := trials.PickN(rng, shapes, nFixed, nil)
	if err != nil {
		return Pair{}, fmt.Errorf("pick fixed shapes: %w", err)
	}

	corr := make(trials.Correspondence, len(shapes))
	for i, s := range fixed {
		corr[s] = []string{colours[i]}
	}
	for _, s := range shapes {
		if _, ok := corr[s]; !ok {
			corr[s] = slices.Clone(f.vocab.Colours)
		}
	}

	first, err := f.gen.Generate(rng, shapes, corr)
	if err != nil {
		return Pair{}, fmt.Errorf("generate trials: %w", err)
	}
	second, err := f.gen.Generate(rng, shapes, corr)
	if err != nil {
		return Pair{}, fmt.Errorf("generate trials: %w", err)
	}

	return Pair{
		Condition:      cond,
		Shapes:         shapes,
		Correspondence: corr,
		Trials:         Interleave(first, second),
	}, nil
}

// Interleave alternates a and b element by element: a0, b0, a1, b1, ...
// Both lists come from the same generator and so have equal length.
func Interleave(a, b []trials.Trial) []trials.Trial {
	out := make([]trials.Trial, 0, len(a)+len(b))
	for i := range min(len(a), len(b)) {
		out = append(out, a[i], b[i])
	}
	return out
}

// PairID names a pair after its two participants, oldest first.
func PairID(first, second string) string {
	return first + "_" + second
}
