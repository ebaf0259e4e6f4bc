package faces

import (
	"ndvoxel/pkg/region"
)

// Split partitions r into at most n disjoint chunks along the slowest axis
// whose extent is greater than one. Chunks differ in extent by at most one
// pixel and together cover r exactly. An empty region yields no chunks.
func Split(r region.Region, n int) []region.Region {
	if r.IsEmpty() {
		return nil
	}
	if n < 1 {
		n = 1
	}

	axis := -1
	for d := r.Dim() - 1; d >= 0; d-- {
		if r.Size.At(d) > 1 {
			axis = d
			break
		}
	}
	if axis < 0 || n == 1 {
		return []region.Region{r}
	}

	extent := r.Size.At(axis)
	if n > extent {
		n = extent
	}
	base, extra := extent/n, extent%n

	chunks := make([]region.Region, 0, n)
	start := r.Index.At(axis)
	for i := 0; i < n; i++ {
		w := base
		if i < extra {
			w++
		}
		chunks = append(chunks, region.Region{
			Index: r.Index.With(axis, start),
			Size:  r.Size.With(axis, w),
		})
		start += w
	}
	return chunks
}
