// Package sparse implements the compressed sparse row matrix that carries
// hashed document features.
package sparse

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShapeMismatch is returned when matrices with different column counts are stacked.
	ErrShapeMismatch = errors.New("column count mismatch")
	// ErrNoMatrices is returned when VStack is called without arguments.
	ErrNoMatrices = errors.New("no matrices to stack")
)

// Matrix is an immutable CSR matrix. Row i owns indices[indptr[i]:indptr[i+1]].
type Matrix struct {
	rows    int
	cols    int
	indptr  []int
	indices []int
	data    []float64
}

// Empty returns a matrix with zero rows and the given column count.
func Empty(cols int) *Matrix {
	return &Matrix{cols: cols, indptr: []int{0}}
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int { return len(m.data) }

// Indptr returns a copy of the row pointer array.
func (m *Matrix) Indptr() []int { return append([]int{}, m.indptr...) }

// Indices returns a copy of the column index array.
func (m *Matrix) Indices() []int { return append([]int{}, m.indices...) }

// Data returns a copy of the stored values.
func (m *Matrix) Data() []float64 { return append([]float64{}, m.data...) }

// Row returns the column indices and values stored for row i. The returned
// slices alias the matrix and must not be modified.
func (m *Matrix) Row(i int) ([]int, []float64) {
	if i < 0 || i >= m.rows {
		panic(fmt.Sprintf("sparse: row %d out of range [0,%d)", i, m.rows))
	}
	start, end := m.indptr[i], m.indptr[i+1]
	return m.indices[start:end:end], m.data[start:end:end]
}

// At returns the value at (i, j).
func (m *Matrix) At(i, j int) float64 {
	if j < 0 || j >= m.cols {
		panic(fmt.Sprintf("sparse: column %d out of range [0,%d)", j, m.cols))
	}
	idx, vals := m.Row(i)
	k := sort.SearchInts(idx, j)
	if k < len(idx) && idx[k] == j {
		return vals[k]
	}
	return 0
}

// Dense expands the matrix into a gonum dense matrix. A matrix with no rows
// or columns has no dense form and yields nil.
func (m *Matrix) Dense() *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		return nil
	}
	d := mat.NewDense(m.rows, m.cols, nil)
	for i := 0; i < m.rows; i++ {
		idx, vals := m.Row(i)
		for k, j := range idx {
			d.Set(i, j, vals[k])
		}
	}
	return d
}

// Equal reports whether both matrices have the same shape and bit-identical entries.
func (m *Matrix) Equal(other *Matrix) bool {
	if m.rows != other.rows || m.cols != other.cols || len(m.data) != len(other.data) {
		return false
	}
	for i := 0; i < m.rows; i++ {
		if !RowEqual(m, i, other, i) {
			return false
		}
	}
	return true
}

// RowEqual reports whether row i of a and row j of b hold bit-identical entries.
func RowEqual(a *Matrix, i int, b *Matrix, j int) bool {
	if a.cols != b.cols {
		return false
	}
	ai, av := a.Row(i)
	bi, bv := b.Row(j)
	if len(ai) != len(bi) {
		return false
	}
	for k := range ai {
		if ai[k] != bi[k] || math.Float64bits(av[k]) != math.Float64bits(bv[k]) {
			return false
		}
	}
	return true
}

// VStack concatenates matrices row-wise in argument order.
func VStack(ms ...*Matrix) (*Matrix, error) {
	if len(ms) == 0 {
		return nil, ErrNoMatrices
	}

	cols := ms[0].cols
	rows, nnz := 0, 0
	for i, m := range ms {
		if m.cols != cols {
			return nil, fmt.Errorf("%w: matrix %d has %d columns, want %d", ErrShapeMismatch, i, m.cols, cols)
		}
		rows += m.rows
		nnz += len(m.data)
	}

	out := &Matrix{
		rows:    rows,
		cols:    cols,
		indptr:  make([]int, 1, rows+1),
		indices: make([]int, 0, nnz),
		data:    make([]float64, 0, nnz),
	}
	for _, m := range ms {
		base := len(out.data)
		for _, p := range m.indptr[1:] {
			out.indptr = append(out.indptr, base+p)
		}
		out.indices = append(out.indices, m.indices...)
		out.data = append(out.data, m.data...)
	}

	return out, nil
}
