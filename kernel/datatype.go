package kernel

// DataType represents the element type of a device array
type DataType int

const (
	Float32 DataType = iota + 1
	Float64
	INT32
	INT64
)

// SizeOf returns the size in bytes of a data type
func SizeOf(dt DataType) int64 {
	switch dt {
	case Float32, INT32:
		return 4
	case Float64, INT64:
		return 8
	default:
		return 8
	}
}

// CName returns the C type name used in generated kernel source
func CName(dt DataType) string {
	switch dt {
	case Float32:
		return "float"
	case Float64:
		return "double"
	case INT32:
		return "int"
	case INT64:
		return "long"
	default:
		return "double"
	}
}

func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case INT32:
		return "int32"
	case INT64:
		return "int64"
	default:
		return "unknown"
	}
}
