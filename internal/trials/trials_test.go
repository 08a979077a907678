package trials

import (
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testVocab = Vocabulary{
	Shapes:   []string{"square", "circle", "diamond", "star", "cross", "pentagon", "hexagon"},
	Colours:  []string{"red", "yellow", "grey", "pink"},
	Objects:  []string{"volcano", "banana", "city", "pig"},
	Emotions: []string{"angry", "happy", "sad", "inlove"},
}

var testParams = Params{Foils: 2, Repeats: 4}

// pairSetup picks four shapes and binds nFixed of them to distinct colours.
func pairSetup(rng *rand.Rand, nFixed int) ([]string, Correspondence) {
	shapes := Shuffled(rng, testVocab.Shapes)[:4]
	colours := Shuffled(rng, testVocab.Colours)[:nFixed]
	fixed := Shuffled(rng, shapes)[:nFixed]

	corr := Correspondence{}
	for i, s := range fixed {
		corr[s] = []string{colours[i]}
	}
	for _, s := range shapes {
		if _, ok := corr[s]; !ok {
			corr[s] = testVocab.Colours
		}
	}
	return shapes, corr
}

func split(item string) (shape, colour string) {
	shape, colour, _ = strings.Cut(item, "_")
	return shape, colour
}

func byBlock(ts []Trial, block int) []Trial {
	var out []Trial
	for _, t := range ts {
		if t.Block == block {
			out = append(out, t)
		}
	}
	return out
}

func generate(seed uint64, nFixed int) ([]Trial, []string, Correspondence, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	shapes, corr := pairSetup(rng, nFixed)
	ts, err := NewGenerator(testVocab, testParams).Generate(rng, shapes, corr)
	return ts, shapes, corr, err
}

func TestGenerateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("block 0 is colour-neutral and never repeats the target shape", prop.ForAll(
		func(seed uint64, nFixed int) bool {
			ts, _, _, err := generate(seed, nFixed)
			if err != nil {
				return false
			}
			for _, tr := range byBlock(ts, BlockNeutralShapes) {
				if len(tr.Foils) != testParams.Foils {
					return false
				}
				target, colour := split(tr.Target)
				if colour != Neutral {
					return false
				}
				for _, f := range tr.Foils {
					shape, c := split(f)
					if c != Neutral || shape == target {
						return false
					}
				}
			}
			return true
		},
		gen.UInt64(), gen.IntRange(0, 4),
	))

	properties.Property("block 1 colours respect the correspondence and never repeat in a trial", prop.ForAll(
		func(seed uint64, nFixed int) bool {
			ts, _, corr, err := generate(seed, nFixed)
			if err != nil {
				return false
			}
			for _, tr := range byBlock(ts, BlockColouredShapes) {
				seen := map[string]bool{}
				for _, item := range tr.Items() {
					shape, colour := split(item)
					if !slices.Contains(corr[shape], colour) || seen[colour] {
						return false
					}
					if corr.Strict(shape) && colour != corr[shape][0] {
						return false
					}
					seen[colour] = true
				}
			}
			return true
		},
		gen.UInt64(), gen.IntRange(0, 4),
	))

	properties.Property("blocks 2 and 3 use distinct palette colours; block 3 keeps one shape", prop.ForAll(
		func(seed uint64, nFixed int) bool {
			ts, _, corr, err := generate(seed, nFixed)
			if err != nil {
				return false
			}
			for _, block := range []int{BlockColourPatches, BlockColourOnShape} {
				for _, tr := range byBlock(ts, block) {
					seen := map[string]bool{}
					targetShape, targetColour := split(tr.Target)
					for _, item := range tr.Items() {
						shape, colour := split(item)
						if !slices.Contains(testVocab.Colours, colour) || seen[colour] {
							return false
						}
						seen[colour] = true
						if block == BlockColourPatches && shape != Patch {
							return false
						}
						if block == BlockColourOnShape && shape != targetShape {
							return false
						}
					}
					if block == BlockColourOnShape && corr.Strict(targetShape) && corr[targetShape][0] == targetColour {
						return false
					}
				}
			}
			return true
		},
		gen.UInt64(), gen.IntRange(0, 4),
	))

	properties.Property("output length and block order are fixed", prop.ForAll(
		func(seed uint64, nFixed int) bool {
			ts, shapes, _, err := generate(seed, nFixed)
			if err != nil {
				return false
			}
			if len(ts) != NewGenerator(testVocab, testParams).Len(len(shapes)) {
				return false
			}
			for i := 1; i < len(ts); i++ {
				if ts[i].Block < ts[i-1].Block {
					return false
				}
			}
			return true
		},
		gen.UInt64(), gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}

func TestGenerate_EveryTargetOncePerSubblock(t *testing.T) {
	ts, shapes, _, err := generate(7, 4)
	require.NoError(t, err)

	block1 := byBlock(ts, BlockColouredShapes)
	require.Len(t, block1, 2*testParams.Repeats*len(shapes))
	for i := 0; i < len(block1); i += len(shapes) {
		var targets []string
		for _, tr := range block1[i : i+len(shapes)] {
			shape, _ := split(tr.Target)
			targets = append(targets, shape)
		}
		assert.ElementsMatch(t, shapes, targets)
	}

	for _, tr := range byBlock(ts, BlockEmotions) {
		assert.NotContains(t, tr.Foils, tr.Target)
		assert.Len(t, tr.Foils, testParams.Foils)
	}
}

func TestGenerate_StrictShapeKeepsItsColour(t *testing.T) {
	shapes := []string{"square", "circle", "diamond", "star"}
	corr := Correspondence{
		"square":  {"red"},
		"circle":  testVocab.Colours,
		"diamond": testVocab.Colours,
		"star":    testVocab.Colours,
	}
	g := NewGenerator(testVocab, testParams)

	for seed := range uint64(200) {
		ts, err := g.Generate(rand.New(rand.NewPCG(seed, 1)), shapes, corr)
		require.NoError(t, err)
		for _, tr := range byBlock(ts, BlockColouredShapes) {
			for _, item := range tr.Items() {
				shape, colour := split(item)
				if shape == "square" {
					require.Equal(t, "red", colour, "trial %+v", tr)
				}
			}
			require.NotContains(t, []string{"square_yellow", "square_grey", "square_pink"}, tr.Target)
		}
	}
}

func TestGenerate_NoShapeForColour(t *testing.T) {
	// every shape strictly bound to red leaves nothing to draw red on in block 3
	corr := Correspondence{"square": {"red"}, "circle": {"red"}, "star": {"red"}}
	_, err := NewGenerator(testVocab, Params{Foils: 0, Repeats: 1}).
		Generate(rand.New(rand.NewPCG(1, 2)), []string{"square", "circle", "star"}, corr)
	require.ErrorIs(t, err, ErrNoCandidates)
}

func TestPickN(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	options := []string{"a", "b", "c", "d"}

	for range 100 {
		got, err := PickN(rng, options, 3, []string{"a"})
		require.NoError(t, err)
		assert.Len(t, got, 3)
		assert.NotContains(t, got, "a")
		assert.ElementsMatch(t, []string{"b", "c", "d"}, got)
	}

	_, err := PickN(rng, options, 4, []string{"a"})
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestShuffledLeavesInputAlone(t *testing.T) {
	in := []string{"a", "b", "c", "d", "e"}
	out := Shuffled(rand.New(rand.NewPCG(5, 6)), in)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, in)
	assert.ElementsMatch(t, in, out)
}
