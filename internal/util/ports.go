// Copyright (C) 2022 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package util

import (
	"fmt"

	"go.bug.st/serial/enumerator"
)

const (
	tillitisUSBVID = "1207"
	tillitisUSBPID = "8887"
)

type SerialPort struct {
	DevPath      string
	SerialNumber string
}

// GetSerialPorts lists the serial ports of all attached TKeys.
func GetSerialPorts() ([]SerialPort, error) {
	portDetails, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("GetDetailedPortsList: %w", err)
	}

	return filterTKeys(portDetails), nil
}

func filterTKeys(portDetails []*enumerator.PortDetails) []SerialPort {
	var ports []SerialPort
	for _, port := range portDetails {
		if port.IsUSB && port.VID == tillitisUSBVID && port.PID == tillitisUSBPID {
			ports = append(ports, SerialPort{port.Name, port.SerialNumber})
		}
	}
	return ports
}
