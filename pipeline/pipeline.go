// Package pipeline orchestrates one host-driven device execution: bind host
// arrays, allocate device buffers, upload inputs, compile and dispatch the
// kernel, then block on the result read-back.
//
// Control flow is strictly linear. Each stage must fully succeed before the
// next begins, and all device operations flow through a single in-order
// Queue, so no explicit synchronization objects are needed: the only host
// block point is ReadBack.
package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/notargets/vecadd/device"
	"github.com/notargets/vecadd/kernel"
)

// Pipeline drives the addition kernel over one device. It is single-threaded
// by design: one host goroutine sequences the stages.
type Pipeline struct {
	log   *zap.Logger
	dev   *device.Device
	queue *Queue

	bindings map[string]*Binding
	order    []string // kernel argument slot order, fixed at Bind time

	program *kernel.Program

	// releases run in reverse acquisition order on Close, after the queue
	// has drained
	releases  []func()
	allocated bool
	closed    bool
}

// New creates a pipeline bound to an already resolved device. The device is
// owned by the caller and released by the caller after Close, never before.
func New(dev *device.Device, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		log:      log,
		dev:      dev,
		queue:    NewQueue(),
		bindings: make(map[string]*Binding),
	}
}

// Bind registers a host array under a name and access mode. The binding's
// position in the kernel argument list is its Bind order; that order is
// load-bearing because the kernel dereferences arguments positionally.
// Bindings cannot be added after AllocateDevice.
func (p *Pipeline) Bind(name string, host interface{}, mode AccessMode) error {
	if p.allocated {
		return fmt.Errorf("bindings cannot be defined after AllocateDevice has been called")
	}
	if _, exists := p.bindings[name]; exists {
		return fmt.Errorf("binding %s already defined", name)
	}

	b, err := newBinding(name, host, mode)
	if err != nil {
		return err
	}

	p.bindings[name] = b
	p.order = append(p.order, name)
	p.log.Debug("bound host array",
		zap.String("name", name),
		zap.Stringer("mode", mode),
		zap.Int("elements", b.Elements))
	return nil
}

// AllocateDevice creates one device buffer per binding, each exactly the
// byte size of its host array. No host data is attached at creation time;
// data moves explicitly through Upload and ReadBack. Any allocation failure
// aborts the pipeline.
func (p *Pipeline) AllocateDevice() error {
	if p.allocated {
		return stageErr(StageAllocate, "AllocateDevice", fmt.Errorf("device buffers already allocated"))
	}
	if len(p.order) == 0 {
		return stageErr(StageAllocate, "AllocateDevice", fmt.Errorf("no bindings defined"))
	}

	for _, name := range p.order {
		b := p.bindings[name]
		mem := p.dev.OCCA().Malloc(b.bytes, nil, nil)
		if mem == nil {
			return stageErr(StageAllocate, "Malloc",
				fmt.Errorf("device allocation failed for %s (%d bytes)", name, b.bytes))
		}
		b.mem = mem
		p.releases = append(p.releases, mem.Free)
	}

	p.allocated = true
	p.log.Debug("allocated device buffers", zap.Int("count", len(p.order)))
	return nil
}

// BuildKernel generates, compiles and extracts the addition kernel for the
// bound arrays. The bindings must form the canonical three-slot shape: two
// read-only inputs then one write-only output, all of spec's length and
// element type. Compile or link failure is fatal; the pipeline must not
// proceed to argument binding or dispatch afterwards.
func (p *Pipeline) BuildKernel(spec kernel.Spec) error {
	if !p.allocated {
		return stageErr(StageCompile, "BuildKernel", fmt.Errorf("device buffers not allocated"))
	}
	if err := p.validateSlots(spec); err != nil {
		return stageErr(StageCompile, "BuildKernel", err)
	}

	program, err := kernel.NewProgram(spec, p.log)
	if err != nil {
		return stageErr(StageCompile, "NewProgram", err)
	}
	if err := program.Compile(p.dev.OCCA()); err != nil {
		return stageErr(StageCompile, "Compile", err)
	}

	p.program = program
	p.releases = append(p.releases, program.Free)
	p.log.Debug("built kernel", zap.String("kernel", spec.Name))
	return nil
}

// validateSlots checks the positional argument contract against the spec
func (p *Pipeline) validateSlots(spec kernel.Spec) error {
	if len(p.order) != 3 {
		return fmt.Errorf("expected 3 bindings (in0, in1, out), got %d", len(p.order))
	}
	wantModes := []AccessMode{ReadOnly, ReadOnly, WriteOnly}
	for i, name := range p.order {
		b := p.bindings[name]
		if b.Mode != wantModes[i] {
			return fmt.Errorf("slot %d (%s): expected %s binding, got %s",
				i, name, wantModes[i], b.Mode)
		}
		if b.Elements != spec.Elements {
			return fmt.Errorf("slot %d (%s): length %d does not match index space %d",
				i, name, b.Elements, spec.Elements)
		}
		if b.DataType != spec.DataType {
			return fmt.Errorf("slot %d (%s): element type %v does not match kernel type %v",
				i, name, b.DataType, spec.DataType)
		}
	}
	return nil
}

// Upload enqueues non-blocking host→device copies for the named bindings.
// The host does not wait for completion: the in-order queue guarantees the
// data lands before any later dispatch on the same queue observes it.
func (p *Pipeline) Upload(names ...string) error {
	for _, name := range names {
		b, exists := p.bindings[name]
		if !exists {
			return stageErr(StageDispatch, "Upload", fmt.Errorf("binding %s not found", name))
		}
		if b.Mode != ReadOnly {
			return stageErr(StageDispatch, "Upload",
				fmt.Errorf("binding %s is %s; uploads only target read-only buffers", name, b.Mode))
		}
		if b.mem == nil {
			return stageErr(StageDispatch, "Upload", fmt.Errorf("binding %s has no device buffer", name))
		}

		buf := b
		err := p.queue.Submit(func() error {
			buf.mem.CopyFrom(buf.hostPtr(), buf.bytes)
			return nil
		})
		if err != nil {
			return stageErr(StageDispatch, "Upload", err)
		}
		p.log.Debug("enqueued upload", zap.String("name", name), zap.Int64("bytes", b.bytes))
	}
	return nil
}

// Dispatch binds the device buffers to the kernel's argument slots in Bind
// order and enqueues one execution over the spec's index space. The call
// returns as soon as the work is queued.
func (p *Pipeline) Dispatch() error {
	if p.program == nil {
		return stageErr(StageDispatch, "Dispatch", fmt.Errorf("kernel not built"))
	}
	krn, err := p.program.Kernel()
	if err != nil {
		return stageErr(StageDispatch, "Dispatch", err)
	}

	args := make([]interface{}, 0, len(p.order))
	for _, name := range p.order {
		args = append(args, p.bindings[name].mem)
	}

	err = p.queue.Submit(func() error {
		if err := krn.RunWithArgs(args...); err != nil {
			return fmt.Errorf("kernel execution failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return stageErr(StageDispatch, "Dispatch", err)
	}
	p.log.Debug("enqueued kernel", zap.String("kernel", p.program.Spec().Name))
	return nil
}

// ReadBack performs the blocking device→host copy of the named output
// buffer. It waits for the kernel and every prior queued operation to
// complete, then copies the device buffer into the paired host array. This
// is the pipeline's only host block point.
func (p *Pipeline) ReadBack(name string) error {
	b, exists := p.bindings[name]
	if !exists {
		return stageErr(StageDispatch, "ReadBack", fmt.Errorf("binding %s not found", name))
	}
	if b.Mode != WriteOnly {
		return stageErr(StageDispatch, "ReadBack",
			fmt.Errorf("binding %s is %s; read-back only sources write-only buffers", name, b.Mode))
	}
	if b.mem == nil {
		return stageErr(StageDispatch, "ReadBack", fmt.Errorf("binding %s has no device buffer", name))
	}

	err := p.queue.SubmitWait(func() error {
		p.dev.Finish()
		b.mem.CopyTo(b.hostPtr(), b.bytes)
		return nil
	})
	if err != nil {
		return stageErr(StageDispatch, "ReadBack", err)
	}
	p.log.Debug("read back output", zap.String("name", name), zap.Int64("bytes", b.bytes))
	return nil
}

// Close drains the command queue, then releases the kernel, program and
// device buffers in reverse acquisition order. The device itself stays
// alive for the caller. Release is best-effort and idempotent; it never
// reports an error.
func (p *Pipeline) Close() {
	if p.closed {
		return
	}
	p.closed = true

	// No device handle may be freed while queued work could still touch it
	p.queue.Close()

	for i := len(p.releases) - 1; i >= 0; i-- {
		p.releases[i]()
	}
	p.releases = nil
	p.program = nil
	for _, b := range p.bindings {
		b.mem = nil
	}
	p.log.Debug("pipeline closed")
}
