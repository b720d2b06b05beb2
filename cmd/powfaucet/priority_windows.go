//go:build windows

package main

import (
	"syscall"
	"unsafe"
)

// Windows priority constants
const (
	HIGH_PRIORITY_CLASS         = 0x00000080
	ABOVE_NORMAL_PRIORITY_CLASS = 0x00008000
)

var (
	kernel32                  = syscall.NewLazyDLL("kernel32.dll")
	procGetCurrentProcess     = kernel32.NewProc("GetCurrentProcess")
	procSetPriorityClass      = kernel32.NewProc("SetPriorityClass")
	procSetProcessInformation = kernel32.NewProc("SetProcessInformation")
)

func setPriorityClass(class uintptr) error {
	handle, _, _ := procGetCurrentProcess.Call()
	ret, _, err := procSetPriorityClass.Call(handle, class)
	if ret == 0 {
		return err
	}
	return nil
}

// disableProcessorPowerThrottling opts out of Efficiency Mode.
// Available on Windows 10 1709+ and Windows 11
func disableProcessorPowerThrottling() error {
	handle, _, _ := procGetCurrentProcess.Call()

	// ProcessPowerThrottling = 4
	const ProcessPowerThrottling = 4

	// PROCESS_POWER_THROTTLING_STATE structure
	type PROCESS_POWER_THROTTLING_STATE struct {
		Version     uint32
		ControlMask uint32
		StateMask   uint32
	}

	const PROCESS_POWER_THROTTLING_EXECUTION_SPEED = 0x1

	state := PROCESS_POWER_THROTTLING_STATE{
		Version:     1,
		ControlMask: PROCESS_POWER_THROTTLING_EXECUTION_SPEED,
		StateMask:   0, // 0 = disable throttling
	}

	ret, _, err := procSetProcessInformation.Call(
		handle,
		ProcessPowerThrottling,
		uintptr(unsafe.Pointer(&state)),
		unsafe.Sizeof(state),
	)
	if ret == 0 {
		return err
	}
	return nil
}

// raiseMiningPriority gives the search workers more CPU time. High priority
// is tried first, then above normal.
func raiseMiningPriority() error {
	if err := setPriorityClass(HIGH_PRIORITY_CLASS); err != nil {
		if err := setPriorityClass(ABOVE_NORMAL_PRIORITY_CLASS); err != nil {
			return err
		}
	}
	return disableProcessorPowerThrottling()
}
