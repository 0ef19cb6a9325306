package sparse

import (
	"fmt"
	"sort"
)

// Builder assembles a Matrix one row at a time.
type Builder struct {
	m   Matrix
	row map[int]float64
}

// NewBuilder returns a builder for matrices with the given column count.
func NewBuilder(cols int) *Builder {
	return &Builder{
		m:   Matrix{cols: cols, indptr: []int{0}},
		row: make(map[int]float64),
	}
}

// Add accumulates value into column j of the row under construction.
func (b *Builder) Add(j int, value float64) {
	if j < 0 || j >= b.m.cols {
		panic(fmt.Sprintf("sparse: column %d out of range [0,%d)", j, b.m.cols))
	}
	b.row[j] += value
}

// Scale applies fn to every accumulated value of the row under construction.
func (b *Builder) Scale(fn func(values []float64)) {
	if len(b.row) == 0 {
		return
	}
	cols := b.sortedColumns()
	values := make([]float64, len(cols))
	for k, j := range cols {
		values[k] = b.row[j]
	}
	fn(values)
	for k, j := range cols {
		b.row[j] = values[k]
	}
}

// EndRow closes the row under construction. Zero sums are not stored.
func (b *Builder) EndRow() {
	for _, j := range b.sortedColumns() {
		if v := b.row[j]; v != 0 {
			b.m.indices = append(b.m.indices, j)
			b.m.data = append(b.m.data, v)
		}
	}
	b.m.indptr = append(b.m.indptr, len(b.m.data))
	b.m.rows++
	clear(b.row)
}

// Build returns the assembled matrix. The builder must not be reused.
func (b *Builder) Build() *Matrix {
	out := b.m
	b.m = Matrix{}
	return &out
}

func (b *Builder) sortedColumns() []int {
	cols := make([]int, 0, len(b.row))
	for j := range b.row {
		cols = append(cols, j)
	}
	sort.Ints(cols)
	return cols
}
