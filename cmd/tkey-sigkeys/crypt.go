// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"bufio"
	"fmt"
	"io"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// encrypt writes src to dst as an ASCII armored age file.
func encrypt(dst io.Writer, src io.Reader, recipient age.Recipient) error {
	aw := armor.NewWriter(dst)

	w, err := age.Encrypt(aw, recipient)
	if err != nil {
		return fmt.Errorf("Encrypt: %w", err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("Copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Close: %w", err)
	}
	if err := aw.Close(); err != nil {
		return fmt.Errorf("armor Close: %w", err)
	}

	return nil
}

// decrypt writes the plaintext of the age file in src, armored or
// not, to dst.
func decrypt(dst io.Writer, src io.Reader, identity age.Identity) error {
	br := bufio.NewReader(src)

	var in io.Reader = br
	if start, _ := br.Peek(len(armor.Header)); string(start) == armor.Header {
		in = armor.NewReader(br)
	}

	r, err := age.Decrypt(in, identity)
	if err != nil {
		return fmt.Errorf("Decrypt: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("Copy: %w", err)
	}

	return nil
}
