package trials

import (
	"fmt"
	"math/rand/v2"
)

const (
	// Neutral is the colour block 0 renders every shape in.
	Neutral = "white"
	// Patch prefixes the abstract colour items of block 2.
	Patch = "splat"
)

const (
	BlockNeutralShapes = iota
	BlockColouredShapes
	BlockColourPatches
	BlockColourOnShape
	BlockObjects
	BlockEmotions
)

type Trial struct {
	Target string   `json:"target"`
	Foils  []string `json:"foils"`
	Block  int      `json:"block"`
}

// Items returns the target followed by the foils.
func (t Trial) Items() []string {
	return append([]string{t.Target}, t.Foils...)
}

type Vocabulary struct {
	Shapes   []string
	Colours  []string
	Objects  []string
	Emotions []string
}

type Params struct {
	Foils   int // distractors per trial
	Repeats int // subblocks per block; block 1 gets twice as many, block 0 always one
}

// Correspondence maps each shape to the colours it may be rendered in. A shape
// with a single allowed colour is strict; any other shape is free.
type Correspondence map[string][]string

func (c Correspondence) Strict(shape string) bool {
	return len(c[shape]) == 1
}

// Render names a shape drawn in a colour, e.g. "square_red".
func Render(shape, colour string) string {
	return shape + "_" + colour
}

type Generator struct {
	vocab  Vocabulary
	params Params
}

func NewGenerator(vocab Vocabulary, params Params) *Generator {
	return &Generator{vocab: vocab, params: params}
}

// Len is the number of trials Generate produces for a pair holding n shapes.
func (g *Generator) Len(n int) int {
	r := g.params.Repeats
	v := g.vocab
	return n + 2*r*n + r*len(v.Colours)*2 + r*len(v.Objects) + r*len(v.Emotions)
}

// Generate builds the six blocks for one director. Subblocks are shuffled
// internally and concatenated in block order.
func (g *Generator) Generate(rng *rand.Rand, shapes []string, corr Correspondence) ([]Trial, error) {
	builders := []struct {
		block   int
		repeats int
		build   func(*rand.Rand, []string, Correspondence) ([]Trial, error)
	}{
		{BlockNeutralShapes, 1, g.neutralShapes},
		{BlockColouredShapes, 2 * g.params.Repeats, g.colouredShapes},
		{BlockColourPatches, g.params.Repeats, g.colourPatches},
		{BlockColourOnShape, g.params.Repeats, g.colourOnShape},
		{BlockObjects, g.params.Repeats, g.objects},
		{BlockEmotions, g.params.Repeats, g.emotions},
	}

	out := make([]Trial, 0, g.Len(len(shapes)))
	for _, b := range builders {
		for range b.repeats {
			sub, err := b.build(rng, shapes, corr)
			if err != nil {
				return nil, fmt.Errorf("block %d: %w", b.block, err)
			}
			out = append(out, Shuffled(rng, sub)...)
		}
	}
	return out, nil
}

func (g *Generator) neutralShapes(rng *rand.Rand, shapes []string, _ Correspondence) ([]Trial, error) {
	sub := make([]Trial, 0, len(shapes))
	for _, target := range shapes {
		foilShapes, err := PickN(rng, shapes, g.params.Foils, []string{target})
		if err != nil {
			return nil, err
		}
		foils := make([]string, len(foilShapes))
		for i, f := range foilShapes {
			foils[i] = Render(f, Neutral)
		}
		sub = append(sub, Trial{Target: Render(target, Neutral), Foils: foils, Block: BlockNeutralShapes})
	}
	return sub, nil
}

// colouredShapes renders every shape in one of its allowed colours with no
// colour repeated inside a trial. A strict target fixes its colour before the
// foils are coloured; a free target is coloured last, around the foils.
func (g *Generator) colouredShapes(rng *rand.Rand, shapes []string, corr Correspondence) ([]Trial, error) {
	sub := make([]Trial, 0, len(shapes))
	for _, target := range shapes {
		foilShapes, err := PickN(rng, shapes, g.params.Foils, []string{target})
		if err != nil {
			return nil, err
		}

		var targetColour string
		taboo := []string{}
		if corr.Strict(target) {
			targetColour = corr[target][0]
			taboo = append(taboo, targetColour)
		}

		// strict foils have no choice, so they claim their colour before any
		// free foil can take it
		foils := make([]string, len(foilShapes))
		for _, strict := range []bool{true, false} {
			for i, f := range foilShapes {
				if corr.Strict(f) != strict {
					continue
				}
				c, err := Pick(rng, corr[f], taboo)
				if err != nil {
					return nil, fmt.Errorf("colour foil %s: %w", f, err)
				}
				taboo = append(taboo, c)
				foils[i] = Render(f, c)
			}
		}

		if !corr.Strict(target) {
			targetColour, err = Pick(rng, corr[target], taboo)
			if err != nil {
				return nil, fmt.Errorf("colour target %s: %w", target, err)
			}
		}
		sub = append(sub, Trial{Target: Render(target, targetColour), Foils: foils, Block: BlockColouredShapes})
	}
	return sub, nil
}

func (g *Generator) colourPatches(rng *rand.Rand, _ []string, _ Correspondence) ([]Trial, error) {
	sub := make([]Trial, 0, len(g.vocab.Colours))
	for _, target := range g.vocab.Colours {
		foilColours, err := PickN(rng, g.vocab.Colours, g.params.Foils, []string{target})
		if err != nil {
			return nil, err
		}
		foils := make([]string, len(foilColours))
		for i, c := range foilColours {
			foils[i] = Render(Patch, c)
		}
		sub = append(sub, Trial{Target: Render(Patch, target), Foils: foils, Block: BlockColourPatches})
	}
	return sub, nil
}

// colourOnShape puts each palette colour on a shape that is not strictly
// bound to it; the foils are the same shape in other colours.
func (g *Generator) colourOnShape(rng *rand.Rand, shapes []string, corr Correspondence) ([]Trial, error) {
	sub := make([]Trial, 0, len(g.vocab.Colours))
	for _, target := range g.vocab.Colours {
		var bound []string
		for _, s := range shapes {
			if corr.Strict(s) && corr[s][0] == target {
				bound = append(bound, s)
			}
		}
		shape, err := Pick(rng, shapes, bound)
		if err != nil {
			return nil, fmt.Errorf("shape for %s: %w", target, err)
		}
		foilColours, err := PickN(rng, g.vocab.Colours, g.params.Foils, []string{target})
		if err != nil {
			return nil, err
		}
		foils := make([]string, len(foilColours))
		for i, c := range foilColours {
			foils[i] = Render(shape, c)
		}
		sub = append(sub, Trial{Target: Render(shape, target), Foils: foils, Block: BlockColourOnShape})
	}
	return sub, nil
}

func (g *Generator) objects(rng *rand.Rand, _ []string, _ Correspondence) ([]Trial, error) {
	return g.plain(rng, g.vocab.Objects, BlockObjects)
}

func (g *Generator) emotions(rng *rand.Rand, _ []string, _ Correspondence) ([]Trial, error) {
	return g.plain(rng, g.vocab.Emotions, BlockEmotions)
}

func (g *Generator) plain(rng *rand.Rand, items []string, block int) ([]Trial, error) {
	sub := make([]Trial, 0, len(items))
	for _, target := range items {
		foils, err := PickN(rng, items, g.params.Foils, []string{target})
		if err != nil {
			return nil, err
		}
		sub = append(sub, Trial{Target: target, Foils: foils, Block: block})
	}
	return sub, nil
}
