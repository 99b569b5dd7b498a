// Copyright (C) 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

//go:build unix

package main

import (
	"fmt"
	"net"
	"syscall"
)

const agentPathPrefix = ""

// nativeListen listens on a UNIX-domain socket only accessible by the
// current user.
func nativeListen(path string) (net.Listener, error) {
	old := syscall.Umask(0o077)
	defer syscall.Umask(old)

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("Listen: %w", err)
	}
	return l, nil
}
