package iterator

import (
	"math/rand/v2"
	"sort"

	"ndvoxel/pkg/imgerr"
	"ndvoxel/pkg/ndimage"
	"ndvoxel/pkg/region"
)

// RandomNonRepeatingIterator visits the pixels of a region in a seeded random
// order without repeats. When more samples than pixels are requested the
// permutation is replayed from the start.
type RandomNonRepeatingIterator[T any] struct {
	img    *ndimage.Image[T]
	pix    []T
	region region.Region
	size   [region.MaxDimension]int
	start  [region.MaxDimension]int
	dim    int

	perm     []int
	priority []float64
	seed     uint64

	samples    int
	done       int
	positioned bool
	pos     [region.MaxDimension]int
	offset  int
}

// NewRandomNonRepeatingIterator returns an iterator over r drawing every
// pixel once, in an order determined by seed.
func NewRandomNonRepeatingIterator[T any](img *ndimage.Image[T], r region.Region, seed uint64) (*RandomNonRepeatingIterator[T], error) {
	// validate through the region iterator to share its checks
	if _, err := NewRegionIterator(img, r); err != nil {
		return nil, err
	}
	it := &RandomNonRepeatingIterator[T]{
		img:     img,
		pix:     img.BufferPointer(),
		region:  r,
		size:    r.Size.Array(),
		start:   r.Index.Array(),
		dim:     r.Dim(),
		samples: r.NumberOfPixels(),
		seed:    seed,
	}
	it.shuffle()
	return it, nil
}

// SetNumberOfSamples sets how many positions GoToBegin..IsAtEnd visits.
func (it *RandomNonRepeatingIterator[T]) SetNumberOfSamples(n int) error {
	if n < 0 {
		return imgerr.InvalidArgument("iterator.SetNumberOfSamples", "negative sample count %d", n)
	}
	it.samples = n
	return nil
}

// NumberOfSamples returns the number of positions visited per pass.
func (it *RandomNonRepeatingIterator[T]) NumberOfSamples() int { return it.samples }

// ReinitializeSeed reshuffles the visiting order with a new seed.
func (it *RandomNonRepeatingIterator[T]) ReinitializeSeed(seed uint64) {
	it.seed = seed
	it.shuffle()
}

// SetPriorities makes lower-priority pixels come first; pixels of equal
// priority stay in random order. priority is indexed by the row-major
// position of the pixel within the region.
func (it *RandomNonRepeatingIterator[T]) SetPriorities(priority []float64) error {
	if len(priority) != len(it.perm) {
		return imgerr.InvalidArgument("iterator.SetPriorities", "got %d priorities for %d pixels", len(priority), len(it.perm))
	}
	it.priority = append([]float64(nil), priority...)
	it.shuffle()
	return nil
}

func (it *RandomNonRepeatingIterator[T]) shuffle() {
	rng := rand.New(rand.NewPCG(it.seed, it.seed^0x9e3779b97f4a7c15))
	it.perm = rng.Perm(it.region.NumberOfPixels())
	if it.priority != nil {
		sort.SliceStable(it.perm, func(i, j int) bool {
			return it.priority[it.perm[i]] < it.priority[it.perm[j]]
		})
	}
}

// GoToBegin positions the iterator on the first sample.
func (it *RandomNonRepeatingIterator[T]) GoToBegin() {
	it.done = 0
	it.positioned = true
	if it.samples > 0 && len(it.perm) > 0 {
		it.updatePosition()
	}
}

// Next moves to the following sample.
func (it *RandomNonRepeatingIterator[T]) Next() {
	if it.IsAtEnd() {
		return
	}
	it.done++
	if !it.IsAtEnd() {
		it.updatePosition()
	}
}

// IsAtEnd reports whether all requested samples have been visited.
func (it *RandomNonRepeatingIterator[T]) IsAtEnd() bool {
	return it.done >= it.samples || len(it.perm) == 0
}

func (it *RandomNonRepeatingIterator[T]) updatePosition() {
	p := it.perm[it.done%len(it.perm)]
	for d := 0; d < it.dim; d++ {
		it.pos[d] = p%it.size[d] + it.start[d]
		p /= it.size[d]
	}
	it.offset = it.img.ComputeOffset(region.NewCoord(it.pos[:it.dim]...))
}

// Index returns the current index.
func (it *RandomNonRepeatingIterator[T]) Index() region.Coord {
	return region.NewCoord(it.pos[:it.dim]...)
}

// Get returns the value at the current index.
func (it *RandomNonRepeatingIterator[T]) Get() T {
	it.mustBePositioned("iterator.Get")
	return it.pix[it.offset]
}

// Set stores v at the current index.
func (it *RandomNonRepeatingIterator[T]) Set(v T) {
	it.mustBePositioned("iterator.Set")
	it.pix[it.offset] = v
}

func (it *RandomNonRepeatingIterator[T]) mustBePositioned(op string) {
	if !it.positioned {
		panic(imgerr.Range(op, "random iterator used before GoToBegin"))
	}
	if it.IsAtEnd() {
		panic(imgerr.Range(op, "random iterator is at end"))
	}
}
