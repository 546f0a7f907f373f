//go:build windows

package osutils

import (
	"unsafe"
)

const (
	inputMouse      = 0
	mouseeventfMove = 0x0001
)

type mouseInput struct {
	Dx        int32
	Dy        int32
	MouseData uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

type mouseINPUT struct {
	Type uint32
	Mi   mouseInput
}

// WakeUp nudges the pointer one pixel and back to wake the display
func WakeUp() {
	logger.Debug("nudging pointer to wake display")

	for _, d := range []int32{1, -1} {
		in := mouseINPUT{Type: inputMouse, Mi: mouseInput{Dx: d, Dy: d, Flags: mouseeventfMove}}
		procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	}
}
