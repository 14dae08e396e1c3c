package atapromise

import (
	"errors"
	"fmt"
)

var (
	// ErrNoController means no supported Promise controller was found
	// on the bus.
	ErrNoController = errors.New("no supported Promise controller found")

	// ErrMissingBAR means a required base address register of the
	// controller reads as zero, i.e. the firmware never assigned it.
	ErrMissingBAR = errors.New("required PCI BAR is not assigned")

	// ErrClosed means the session was already shut down.
	ErrClosed = errors.New("session is closed")

	// ErrBridgeWindowConflict is reserved for stricter bridge window
	// validation. The current behavior widens a too-small window
	// instead of rejecting it, so this error is never returned yet.
	ErrBridgeWindowConflict = errors.New("bridge memory window conflicts with ROM aperture")
)

// UnsupportedDeviceError means the selected PCI function is not one of
// the recognized PDC2026x controllers.
type UnsupportedDeviceError struct {
	Vendor uint16
	Device uint16
}

func (e *UnsupportedDeviceError) Error() string {
	return fmt.Sprintf("device %04x:%04x is not a supported Promise controller", e.Vendor, e.Device)
}

// BridgeNotFoundError means an explicitly requested bridge does not
// exist, is not a bridge, or does not forward the controller's bus.
type BridgeNotFoundError struct {
	Locator string
	Reason  string
}

func (e *BridgeNotFoundError) Error() string {
	return fmt.Sprintf("bridge %s: %s", e.Locator, e.Reason)
}

// MappingError means the ROM window could not be memory-mapped.
type MappingError struct {
	Base uint32
	Size uint32
	Err  error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping ROM window %#x+%#x: %v", e.Base, e.Size, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }
