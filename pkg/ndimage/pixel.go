package ndimage

// Real is the set of scalar pixel types numeric filters operate on.
type Real interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint |
		~float32 | ~float64
}

// ToFloat64 copies an image buffer into a float64 slice, reusing dst when it
// is large enough.
func ToFloat64[T Real](src []T, dst []float64) []float64 {
	if cap(dst) < len(src) {
		dst = make([]float64, len(src))
	}
	dst = dst[:len(src)]
	for i, v := range src {
		dst[i] = float64(v)
	}
	return dst
}

// Convert returns a new allocated image with the same geometry as src and
// every pixel converted to U.
func Convert[U, T Real](src *Image[T]) (*Image[U], error) {
	dst, err := NewLike[U](src)
	if err != nil {
		return nil, err
	}
	out := dst.BufferPointer()
	for i, v := range src.BufferPointer() {
		out[i] = U(v)
	}
	return dst, nil
}

// NewLike returns an allocated image of pixel type U with the geometry of src.
func NewLike[U, T any](src *Image[T]) (*Image[U], error) {
	dst, err := New[U](src.LargestPossibleRegion())
	if err != nil {
		return nil, err
	}
	if err := dst.SetBufferedRegion(src.BufferedRegion()); err != nil {
		return nil, err
	}
	if err := dst.SetSpacing(src.Spacing()); err != nil {
		return nil, err
	}
	dst.SetRequestedRegion(src.RequestedRegion())
	dst.Allocate()
	return dst, nil
}
