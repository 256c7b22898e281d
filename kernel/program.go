package kernel

import (
	"fmt"

	"github.com/notargets/gocca"
	"go.uber.org/zap"
)

// buildState tracks the program's progress through the build stages. Each
// transition must succeed before the next is attempted; a failed compile
// leaves the program unusable.
type buildState int

const (
	stateSource buildState = iota
	stateCompiled
	stateFailed
)

// Program owns one kernel source text and its compiled artifact for a single
// device. It is not safe for concurrent use.
type Program struct {
	spec   Spec
	source string
	state  buildState
	kernel *gocca.OCCAKernel
	log    *zap.Logger
}

// NewProgram generates the kernel source for spec and returns a program in
// the source state. No device interaction happens yet.
func NewProgram(spec Spec, log *zap.Logger) (*Program, error) {
	if log == nil {
		log = zap.NewNop()
	}
	source, err := spec.Source()
	if err != nil {
		return nil, err
	}
	return &Program{
		spec:   spec,
		source: source,
		state:  stateSource,
		log:    log,
	}, nil
}

// NewProgramFromSource wraps caller-supplied kernel text instead of
// generating it. The source is treated as opaque; it must define an entry
// point named spec.Name. Used when the kernel ships as an embedded or
// loaded resource.
func NewProgramFromSource(spec Spec, source string, log *zap.Logger) (*Program, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kernel spec: %w", err)
	}
	if source == "" {
		return nil, fmt.Errorf("kernel %s: empty source", spec.Name)
	}
	return &Program{
		spec:   spec,
		source: source,
		state:  stateSource,
		log:    log,
	}, nil
}

// Source exposes the generated kernel text, mainly for diagnostics
func (p *Program) Source() string {
	return p.source
}

// Compile builds the source for the given device and extracts the entry
// point named by the spec. Any compile or link failure is terminal for this
// program: the state moves to failed and the kernel stays unavailable.
func (p *Program) Compile(device *gocca.OCCADevice) error {
	if device == nil {
		return fmt.Errorf("cannot compile kernel %s: nil device", p.spec.Name)
	}
	if p.state != stateSource {
		return fmt.Errorf("kernel %s already compiled or failed", p.spec.Name)
	}

	var kernel *gocca.OCCAKernel
	var err error

	if device.Mode() == "OpenMP" {
		// Workaround for OCCA bug: OpenMP doesn't get default -O3 flag
		props := gocca.JsonParse(`{"compiler_flags": "-O3"}`)
		defer props.Free()
		kernel, err = device.BuildKernelFromString(p.source, p.spec.Name, props)
	} else {
		kernel, err = device.BuildKernelFromString(p.source, p.spec.Name, nil)
	}

	if err != nil {
		p.state = stateFailed
		return fmt.Errorf("failed to build kernel %s: %w", p.spec.Name, err)
	}
	if kernel == nil {
		p.state = stateFailed
		return fmt.Errorf("kernel build returned nil for %s", p.spec.Name)
	}

	p.kernel = kernel
	p.state = stateCompiled
	p.log.Debug("kernel compiled",
		zap.String("kernel", p.spec.Name),
		zap.String("mode", device.Mode()))
	return nil
}

// Kernel returns the extracted entry point. It errors until Compile has
// succeeded, so a dispatch can never observe an unbuilt kernel.
func (p *Program) Kernel() (*gocca.OCCAKernel, error) {
	if p.state != stateCompiled {
		return nil, fmt.Errorf("kernel %s not compiled", p.spec.Name)
	}
	return p.kernel, nil
}

// Spec returns the spec the program was generated from
func (p *Program) Spec() Spec {
	return p.spec
}

// Free releases the compiled kernel. Safe to call on an unbuilt or already
// freed program.
func (p *Program) Free() {
	if p.kernel != nil {
		p.kernel.Free()
		p.kernel = nil
	}
	if p.state == stateCompiled {
		p.state = stateSource
	}
}
