// SPDX-FileCopyrightText: 2023 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

//go:build windows

package main

import (
	"fmt"
	"net"
	"os/user"

	"github.com/Microsoft/go-winio"
)

const agentPathPrefix = `\\.\pipe\`

// nativeListen listens on a Named Pipe only accessible by the current
// user.
func nativeListen(path string) (net.Listener, error) {
	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("user.Current: %w", err)
	}
	pipeConf := &winio.PipeConfig{
		SecurityDescriptor: "D:(A;;FA;;;" + currentUser.Uid + ")",
		InputBufferSize:    4096,
		OutputBufferSize:   4096,
	}

	l, err := winio.ListenPipe(path, pipeConf)
	if err != nil {
		return nil, fmt.Errorf("ListenPipe: %w", err)
	}
	return l, nil
}
