// Package kernel generates and compiles the element-wise addition kernel.
//
// The kernel source is never hand-maintained by callers: a Spec describes the
// entry point, index space and element type, and Source() emits the full OKL
// text (preamble defines plus the @outer/@inner kernel body). The compiled
// artifact is managed by Program, which walks the
// source → compiled → validated → extracted stages explicitly.
package kernel

import (
	"fmt"
	"strings"
)

// Spec describes one addition kernel over a 1-D index space.
type Spec struct {
	// Name is the kernel entry point extracted after compilation
	Name string

	// Elements is the total 1-D index space size
	Elements int

	// WorkGroup is the tile size scheduled together (@inner extent).
	// Elements must be evenly divisible by WorkGroup.
	WorkGroup int

	// DataType is the element type of all three buffers
	DataType DataType
}

// DefaultSpec returns the canonical vecadd configuration: 2048 int32
// elements in tiles of 256.
func DefaultSpec() Spec {
	return Spec{
		Name:      "vecadd",
		Elements:  2048,
		WorkGroup: 256,
		DataType:  INT32,
	}
}

// Validate checks the index space invariants before any source is generated
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("kernel name must not be empty")
	}
	if s.Elements <= 0 {
		return fmt.Errorf("elements must be positive, got %d", s.Elements)
	}
	if s.WorkGroup <= 0 {
		return fmt.Errorf("work-group size must be positive, got %d", s.WorkGroup)
	}
	if s.Elements%s.WorkGroup != 0 {
		return fmt.Errorf("elements (%d) not evenly divisible by work-group size (%d)",
			s.Elements, s.WorkGroup)
	}
	if s.DataType < Float32 || s.DataType > INT64 {
		return fmt.Errorf("unsupported data type %v", s.DataType)
	}
	return nil
}

// ByteSize returns the byte size of one full-length buffer for this spec
func (s Spec) ByteSize() int64 {
	return int64(s.Elements) * SizeOf(s.DataType)
}

// GeneratePreamble emits the type definition and index-space constants that
// precede the kernel body
func (s Spec) GeneratePreamble() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("typedef %s elem_t;\n", CName(s.DataType)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("#define VEC_ELEMENTS %d\n", s.Elements))
	sb.WriteString(fmt.Sprintf("#define VEC_TILE %d\n", s.WorkGroup))
	sb.WriteString("\n")

	return sb.String()
}

// Source returns the complete OKL source for the kernel. The three arguments
// are positional: slot 0 and 1 are the read-only inputs, slot 2 is the
// write-only output. Each index computes out[idx] = in0[idx] + in1[idx] with
// no cross-index communication.
func (s Spec) Source() (string, error) {
	if err := s.Validate(); err != nil {
		return "", fmt.Errorf("invalid kernel spec: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(s.GeneratePreamble())

	sb.WriteString(fmt.Sprintf(`@kernel void %s(const elem_t *in0,
                   const elem_t *in1,
                   elem_t *out) {
	for (int tile = 0; tile < VEC_ELEMENTS; tile += VEC_TILE; @outer) {
		for (int t = 0; t < VEC_TILE; ++t; @inner) {
			const int idx = tile + t;
			out[idx] = in0[idx] + in1[idx];
		}
	}
}
`, s.Name))

	return sb.String(), nil
}
