// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package sigkeys

import (
	"filippo.io/edwards25519"
)

// Wipe overwrites b with zeroes.
func Wipe(b []byte) {
	clear(b)
}

// WipeScalar sets sc to zero.
func WipeScalar(sc *edwards25519.Scalar) {
	if sc == nil {
		return
	}
	sc.Set(edwards25519.NewScalar())
}
