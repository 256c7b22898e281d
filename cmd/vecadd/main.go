// vecadd runs an element-wise vector addition on a compute device: host
// arrays are staged, inputs are uploaded, the kernel is compiled and
// dispatched over a 1-D index space, and the result is read back and
// printed one value per line.
//
// The computation shape is fixed: 2048 int32 elements in work-groups of
// 256, inputs all ones. There are no flags and no environment variables.
package main

import (
	"fmt"
	"os"

	"github.com/notargets/vecadd/config"
	"github.com/notargets/vecadd/device"
	"github.com/notargets/vecadd/kernel"
	"github.com/notargets/vecadd/logger"
	"github.com/notargets/vecadd/pipeline"
)

const (
	elements  = 2048
	workGroup = 256
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	log, err := logger.New(cfg.Logger.Verbosity)
	if err != nil {
		return err
	}
	defer log.Sync()

	// No buffer or kernel work may happen without a device
	fmt.Println("Resolve the compute platform and device")
	dev, err := device.Resolve(device.DefaultConfig(), log)
	if err != nil {
		return err
	}
	defer dev.Free()
	fmt.Printf("Using the %s backend\n", dev.Info().Mode)

	fmt.Println("Initialize the host input arrays")
	A := make([]int32, elements)
	B := make([]int32, elements)
	C := make([]int32, elements)
	for i := 0; i < elements; i++ {
		A[i] = 1
		B[i] = 1
	}

	p := pipeline.New(dev, log)
	defer p.Close()

	if err := p.Bind("A", A, pipeline.ReadOnly); err != nil {
		return err
	}
	if err := p.Bind("B", B, pipeline.ReadOnly); err != nil {
		return err
	}
	if err := p.Bind("C", C, pipeline.WriteOnly); err != nil {
		return err
	}

	fmt.Println("Allocate the device buffers")
	if err := p.AllocateDevice(); err != nil {
		return err
	}

	fmt.Println("Write the host input arrays to the device buffers")
	if err := p.Upload("A", "B"); err != nil {
		return err
	}

	fmt.Println("Build the vecadd kernel for the device")
	spec := kernel.Spec{
		Name:      "vecadd",
		Elements:  elements,
		WorkGroup: workGroup,
		DataType:  kernel.INT32,
	}
	if err := p.BuildKernel(spec); err != nil {
		return err
	}

	fmt.Println("Execute the kernel")
	if err := p.Dispatch(); err != nil {
		return err
	}

	fmt.Println("Read the device output buffer to the host output array")
	if err := p.ReadBack("C"); err != nil {
		return err
	}

	for _, v := range C {
		fmt.Println(v)
	}

	return nil
}
