// Copyright (C) 2022 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package util

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// InputSecret asks for a secret phrase on the terminal, twice if
// confirm is set.
func InputSecret(prompt string, confirm bool) ([]byte, error) {
	fd := int(os.Stdin.Fd())

	return inputSecret(os.Stderr, func() ([]byte, error) {
		return term.ReadPassword(fd)
	}, prompt, confirm)
}

func inputSecret(w io.Writer, read func() ([]byte, error), prompt string, confirm bool) ([]byte, error) {
	fmt.Fprintf(w, "%s: ", prompt)
	secret, err := read()
	fmt.Fprintf(w, "\n")
	if err != nil {
		return nil, fmt.Errorf("ReadPassword: %w", err)
	}
	if len(secret) == 0 {
		return nil, errors.New("no phrase entered")
	}

	if confirm {
		fmt.Fprintf(w, "Repeat the phrase: ")
		again, err := read()
		fmt.Fprintf(w, "\n")
		defer clear(again)
		if err != nil {
			clear(secret)
			return nil, fmt.Errorf("ReadPassword: %w", err)
		}
		if !bytes.Equal(secret, again) {
			clear(secret)
			return nil, errors.New("phrases did not match")
		}
	}

	return secret, nil
}

// ReadSecret reads the full contents of fileName, or of stdin if
// fileName is "-".
func ReadSecret(fileName string) ([]byte, error) {
	var secret []byte
	var err error
	if fileName == "-" {
		if secret, err = io.ReadAll(os.Stdin); err != nil {
			return nil, fmt.Errorf("ReadAll: %w", err)
		}
	} else if secret, err = os.ReadFile(fileName); err != nil {
		return nil, fmt.Errorf("ReadFile: %w", err)
	}
	return secret, nil
}
