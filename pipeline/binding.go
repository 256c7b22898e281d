package pipeline

import (
	"fmt"
	"unsafe"

	"github.com/notargets/gocca"

	"github.com/notargets/vecadd/kernel"
)

// AccessMode declares how the kernel touches a buffer. Modes gate the copy
// direction: uploads only target ReadOnly buffers, read-back only sources
// WriteOnly buffers.
type AccessMode int

const (
	ReadOnly AccessMode = iota + 1
	WriteOnly
)

func (m AccessMode) String() string {
	switch m {
	case ReadOnly:
		return "read-only"
	case WriteOnly:
		return "write-only"
	default:
		return "unknown"
	}
}

// Binding pairs one host staging array with one device buffer. The device
// buffer's byte size always equals the host array's byte size; both are
// derived from the same element count at Bind time.
type Binding struct {
	Name     string
	Mode     AccessMode
	DataType kernel.DataType
	Elements int

	host  interface{} // []float32, []float64, []int32 or []int64
	bytes int64
	mem   *gocca.OCCAMemory
}

// ByteSize returns the shared byte size of the host array and device buffer
func (b *Binding) ByteSize() int64 {
	return b.bytes
}

// newBinding validates the host slice and derives the type metadata
func newBinding(name string, host interface{}, mode AccessMode) (*Binding, error) {
	if name == "" {
		return nil, fmt.Errorf("binding name must not be empty")
	}
	if mode != ReadOnly && mode != WriteOnly {
		return nil, fmt.Errorf("binding %s: invalid access mode %d", name, mode)
	}

	dt, n, err := hostVectorInfo(host)
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", name, err)
	}

	return &Binding{
		Name:     name,
		Mode:     mode,
		DataType: dt,
		Elements: n,
		host:     host,
		bytes:    int64(n) * kernel.SizeOf(dt),
	}, nil
}

// hostPtr returns the address of the host array's first element
func (b *Binding) hostPtr() unsafe.Pointer {
	switch data := b.host.(type) {
	case []float32:
		return unsafe.Pointer(&data[0])
	case []float64:
		return unsafe.Pointer(&data[0])
	case []int32:
		return unsafe.Pointer(&data[0])
	case []int64:
		return unsafe.Pointer(&data[0])
	default:
		return nil
	}
}

// hostVectorInfo extracts element type and count from a supported host slice
func hostVectorInfo(host interface{}) (kernel.DataType, int, error) {
	switch data := host.(type) {
	case []float32:
		if len(data) == 0 {
			return 0, 0, fmt.Errorf("empty host array")
		}
		return kernel.Float32, len(data), nil
	case []float64:
		if len(data) == 0 {
			return 0, 0, fmt.Errorf("empty host array")
		}
		return kernel.Float64, len(data), nil
	case []int32:
		if len(data) == 0 {
			return 0, 0, fmt.Errorf("empty host array")
		}
		return kernel.INT32, len(data), nil
	case []int64:
		if len(data) == 0 {
			return 0, 0, fmt.Errorf("empty host array")
		}
		return kernel.INT64, len(data), nil
	default:
		return 0, 0, fmt.Errorf("unsupported host array type %T", host)
	}
}

// NewHostVector allocates a zeroed host staging array of n elements
func NewHostVector(dt kernel.DataType, n int) (interface{}, error) {
	if n <= 0 {
		return nil, fmt.Errorf("host array length must be positive, got %d", n)
	}
	switch dt {
	case kernel.Float32:
		return make([]float32, n), nil
	case kernel.Float64:
		return make([]float64, n), nil
	case kernel.INT32:
		return make([]int32, n), nil
	case kernel.INT64:
		return make([]int64, n), nil
	default:
		return nil, fmt.Errorf("unsupported data type %v", dt)
	}
}

// Fill sets every element of a host staging array to value
func Fill(host interface{}, value float64) error {
	switch data := host.(type) {
	case []float32:
		for i := range data {
			data[i] = float32(value)
		}
	case []float64:
		for i := range data {
			data[i] = value
		}
	case []int32:
		for i := range data {
			data[i] = int32(value)
		}
	case []int64:
		for i := range data {
			data[i] = int64(value)
		}
	default:
		return fmt.Errorf("unsupported host array type %T", host)
	}
	return nil
}
