// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package hwsigner

import (
	"fmt"

	"github.com/tillitis/tkey-sigkeys/bip32path"
	"github.com/tillitis/tkey-sigkeys/ethsig"
)

// Device is an attached signing device as found by enumeration.
type Device struct {
	Path         string
	SerialNumber string
}

func (d Device) String() string {
	if d.SerialNumber == "" {
		return d.Path
	}
	return fmt.Sprintf("%s (serial number %s)", d.Path, d.SerialNumber)
}

// Transport finds and connects to signing devices.
type Transport interface {
	// Devices lists the attached devices.
	Devices() ([]Device, error)

	// Connect opens a session with dev.
	Connect(dev Device) (Session, error)
}

// Session is a connection to one device. Calls block until the device
// answers; any timeout is up to the Transport.
type Session interface {
	// Initialize prepares the device for signing.
	Initialize() error

	// SignMessage asks the device to sign message with the key at
	// path. The caller owns the returned signature and should wipe
	// it.
	SignMessage(message []byte, path bip32path.Path) (*ethsig.Signature, error)

	Close() error
}

// DeviceSelector picks the device to use among the attached ones.
type DeviceSelector func(devices []Device) (Device, error)

// ExactlyOne is the default DeviceSelector. It fails with
// ErrDeviceNotFound or ErrMultipleDevices unless exactly one device is
// attached.
func ExactlyOne(devices []Device) (Device, error) {
	switch len(devices) {
	case 0:
		return Device{}, ErrDeviceNotFound
	case 1:
		return devices[0], nil
	default:
		return Device{}, fmt.Errorf("%w: found %d", ErrMultipleDevices, len(devices))
	}
}
