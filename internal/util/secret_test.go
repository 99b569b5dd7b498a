// Copyright (C) 2022 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package util

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// replies returns a reader handing out answers in order.
func replies(answers ...string) func() ([]byte, error) {
	return func() ([]byte, error) {
		if len(answers) == 0 {
			return nil, io.EOF
		}
		answer := answers[0]
		answers = answers[1:]
		return []byte(answer), nil
	}
}

func TestInputSecret(t *testing.T) {
	secret, err := inputSecret(io.Discard, replies("hunter2"), "Phrase", false)
	require.NoError(t, err)
	require.Equal(t, "hunter2", string(secret))

	secret, err = inputSecret(io.Discard, replies("hunter2", "hunter2"), "Phrase", true)
	require.NoError(t, err)
	require.Equal(t, "hunter2", string(secret))
}

func TestInputSecretConfirmFails(t *testing.T) {
	_, err := inputSecret(io.Discard, replies("hunter2", "hunter3"), "Phrase", true)
	require.ErrorContains(t, err, "did not match")

	_, err = inputSecret(io.Discard, replies("hunter2"), "Phrase", true)
	require.ErrorIs(t, err, io.EOF)

	_, err = inputSecret(io.Discard, replies(""), "Phrase", false)
	require.Error(t, err)
}
