// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package sigkeys

import (
	"crypto/sha256"
)

// SeedSize is the size of a derived seed in bytes.
const SeedSize = 32

// DeriveSeed hashes signature into a seed using a single pass of
// SHA-256. It cannot fail.
//
// The signature is consumed: callers must Wipe it right after, and
// should not hash anything they still need in plaintext.
func DeriveSeed(signature []byte) [SeedSize]byte {
	return sha256.Sum256(signature)
}
