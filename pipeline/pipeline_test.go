package pipeline

import (
	"testing"

	"github.com/notargets/vecadd/device"
	"github.com/notargets/vecadd/kernel"
	"github.com/notargets/vecadd/verify"
)

func createTestDevice(t *testing.T) *device.Device {
	t.Helper()
	dev, err := device.Resolve(device.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("failed to create test device: %v", err)
	}
	return dev
}

// runVecAdd drives the full linear pipeline once and returns the output
func runVecAdd(t *testing.T, dev *device.Device, elements, workGroup int) []int32 {
	t.Helper()

	A := make([]int32, elements)
	B := make([]int32, elements)
	C := make([]int32, elements)
	for i := range A {
		A[i] = 1
		B[i] = 1
	}

	p := New(dev, nil)
	defer p.Close()

	if err := p.Bind("A", A, ReadOnly); err != nil {
		t.Fatalf("bind A failed: %v", err)
	}
	if err := p.Bind("B", B, ReadOnly); err != nil {
		t.Fatalf("bind B failed: %v", err)
	}
	if err := p.Bind("C", C, WriteOnly); err != nil {
		t.Fatalf("bind C failed: %v", err)
	}
	if err := p.AllocateDevice(); err != nil {
		t.Fatalf("device allocation failed: %v", err)
	}
	if err := p.Upload("A", "B"); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	spec := kernel.Spec{Name: "vecadd", Elements: elements, WorkGroup: workGroup, DataType: kernel.INT32}
	if err := p.BuildKernel(spec); err != nil {
		t.Fatalf("kernel build failed: %v", err)
	}
	if err := p.Dispatch(); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if err := p.ReadBack("C"); err != nil {
		t.Fatalf("read-back failed: %v", err)
	}

	return C
}

func TestPipeline_EndToEnd(t *testing.T) {
	dev := createTestDevice(t)
	defer dev.Free()

	C := runVecAdd(t, dev, 2048, 256)

	if len(C) != 2048 {
		t.Fatalf("output length %d, expected 2048", len(C))
	}
	for i, v := range C {
		if v != 2 {
			t.Fatalf("element %d: expected 2, got %d", i, v)
		}
	}
}

func TestPipeline_WorkGroupInvariance(t *testing.T) {
	dev := createTestDevice(t)
	defer dev.Free()

	baseline := runVecAdd(t, dev, 2048, 256)
	for _, workGroup := range []int{128, 512} {
		C := runVecAdd(t, dev, 2048, workGroup)
		for i := range baseline {
			if C[i] != baseline[i] {
				t.Fatalf("work-group %d: element %d differs (%d vs %d)",
					workGroup, i, C[i], baseline[i])
			}
		}
	}
}

func TestPipeline_RepeatedRunsReclaimCleanly(t *testing.T) {
	dev := createTestDevice(t)
	defer dev.Free()

	// The full acquire/run/release cycle must survive repetition within one
	// process
	for run := 0; run < 5; run++ {
		C := runVecAdd(t, dev, 2048, 256)
		for i, v := range C {
			if v != 2 {
				t.Fatalf("run %d element %d: expected 2, got %d", run, i, v)
			}
		}
	}
}

func TestPipeline_VerifyAgainstReference(t *testing.T) {
	dev := createTestDevice(t)
	defer dev.Free()

	A := make([]int32, 2048)
	B := make([]int32, 2048)
	for i := range A {
		A[i] = 1
		B[i] = 1
	}

	C := runVecAdd(t, dev, 2048, 256)
	if err := verify.CheckInt32(C, A, B); err != nil {
		t.Fatalf("device output does not match host reference: %v", err)
	}
}

func TestPipeline_SlotContract(t *testing.T) {
	dev := createTestDevice(t)
	defer dev.Free()

	spec := kernel.DefaultSpec()

	t.Run("WrongBindingCount", func(t *testing.T) {
		p := New(dev, nil)
		defer p.Close()
		p.Bind("A", make([]int32, 2048), ReadOnly)
		p.Bind("C", make([]int32, 2048), WriteOnly)
		if err := p.AllocateDevice(); err != nil {
			t.Fatalf("allocation failed: %v", err)
		}
		if err := p.BuildKernel(spec); err == nil {
			t.Error("expected two-slot pipeline to be rejected")
		}
	})

	t.Run("OutputInInputSlot", func(t *testing.T) {
		p := New(dev, nil)
		defer p.Close()
		p.Bind("C", make([]int32, 2048), WriteOnly)
		p.Bind("A", make([]int32, 2048), ReadOnly)
		p.Bind("B", make([]int32, 2048), ReadOnly)
		if err := p.AllocateDevice(); err != nil {
			t.Fatalf("allocation failed: %v", err)
		}
		if err := p.BuildKernel(spec); err == nil {
			t.Error("expected write-only buffer in input slot to be rejected")
		}
	})

	t.Run("LengthMismatch", func(t *testing.T) {
		p := New(dev, nil)
		defer p.Close()
		p.Bind("A", make([]int32, 1024), ReadOnly)
		p.Bind("B", make([]int32, 1024), ReadOnly)
		p.Bind("C", make([]int32, 1024), WriteOnly)
		if err := p.AllocateDevice(); err != nil {
			t.Fatalf("allocation failed: %v", err)
		}
		if err := p.BuildKernel(spec); err == nil {
			t.Error("expected length mismatch with index space to be rejected")
		}
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		p := New(dev, nil)
		defer p.Close()
		p.Bind("A", make([]float64, 2048), ReadOnly)
		p.Bind("B", make([]float64, 2048), ReadOnly)
		p.Bind("C", make([]float64, 2048), WriteOnly)
		if err := p.AllocateDevice(); err != nil {
			t.Fatalf("allocation failed: %v", err)
		}
		if err := p.BuildKernel(spec); err == nil {
			t.Error("expected element type mismatch to be rejected")
		}
	})
}

func TestPipeline_AccessModeEnforcement(t *testing.T) {
	dev := createTestDevice(t)
	defer dev.Free()

	p := New(dev, nil)
	defer p.Close()
	p.Bind("A", make([]int32, 2048), ReadOnly)
	p.Bind("B", make([]int32, 2048), ReadOnly)
	p.Bind("C", make([]int32, 2048), WriteOnly)
	if err := p.AllocateDevice(); err != nil {
		t.Fatalf("allocation failed: %v", err)
	}

	// The write-only output must never be an upload source
	if err := p.Upload("C"); err == nil {
		t.Error("expected upload to write-only buffer to be rejected")
	}
	// The read-only inputs must never be the write-back target
	if err := p.ReadBack("A"); err == nil {
		t.Error("expected read-back from read-only buffer to be rejected")
	}
	if err := p.Upload("missing"); err == nil {
		t.Error("expected upload of unknown binding to be rejected")
	}
}

func TestPipeline_StageOrdering(t *testing.T) {
	dev := createTestDevice(t)
	defer dev.Free()

	t.Run("AllocateWithoutBindings", func(t *testing.T) {
		p := New(dev, nil)
		defer p.Close()
		err := p.AllocateDevice()
		if err == nil {
			t.Fatal("expected allocation without bindings to fail")
		}
		if !IsStage(err, StageAllocate) {
			t.Errorf("expected allocate-stage error, got %v", err)
		}
	})

	t.Run("BindAfterAllocate", func(t *testing.T) {
		p := New(dev, nil)
		defer p.Close()
		p.Bind("A", make([]int32, 2048), ReadOnly)
		if err := p.AllocateDevice(); err != nil {
			t.Fatalf("allocation failed: %v", err)
		}
		if err := p.Bind("late", make([]int32, 2048), ReadOnly); err == nil {
			t.Error("expected bind after allocation to be rejected")
		}
	})

	t.Run("DispatchWithoutKernel", func(t *testing.T) {
		p := New(dev, nil)
		defer p.Close()
		p.Bind("A", make([]int32, 2048), ReadOnly)
		p.Bind("B", make([]int32, 2048), ReadOnly)
		p.Bind("C", make([]int32, 2048), WriteOnly)
		if err := p.AllocateDevice(); err != nil {
			t.Fatalf("allocation failed: %v", err)
		}
		err := p.Dispatch()
		if err == nil {
			t.Fatal("expected dispatch without a built kernel to fail")
		}
		if !IsStage(err, StageDispatch) {
			t.Errorf("expected dispatch-stage error, got %v", err)
		}
	})

	t.Run("BuildWithoutAllocation", func(t *testing.T) {
		p := New(dev, nil)
		defer p.Close()
		p.Bind("A", make([]int32, 2048), ReadOnly)
		p.Bind("B", make([]int32, 2048), ReadOnly)
		p.Bind("C", make([]int32, 2048), WriteOnly)
		err := p.BuildKernel(kernel.DefaultSpec())
		if err == nil {
			t.Fatal("expected build before allocation to fail")
		}
		if !IsStage(err, StageCompile) {
			t.Errorf("expected compile-stage error, got %v", err)
		}
	})
}

// Uploads and dispatch are fire-and-forget submissions. Every one of them
// must still report success on a healthy device so that failures cannot pass
// silently through the unchecked-looking path.
func TestPipeline_SubmissionPathsReportSuccess(t *testing.T) {
	dev := createTestDevice(t)
	defer dev.Free()

	A := make([]int32, 2048)
	B := make([]int32, 2048)
	C := make([]int32, 2048)

	p := New(dev, nil)
	defer p.Close()
	p.Bind("A", A, ReadOnly)
	p.Bind("B", B, ReadOnly)
	p.Bind("C", C, WriteOnly)
	if err := p.AllocateDevice(); err != nil {
		t.Fatalf("allocation failed: %v", err)
	}
	if err := p.Upload("A"); err != nil {
		t.Errorf("upload A reported failure: %v", err)
	}
	if err := p.Upload("B"); err != nil {
		t.Errorf("upload B reported failure: %v", err)
	}
	if err := p.BuildKernel(kernel.DefaultSpec()); err != nil {
		t.Fatalf("kernel build failed: %v", err)
	}
	if err := p.Dispatch(); err != nil {
		t.Errorf("dispatch reported failure: %v", err)
	}
	if err := p.ReadBack("C"); err != nil {
		t.Errorf("read-back reported failure: %v", err)
	}
}
