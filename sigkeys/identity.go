// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package sigkeys

import (
	"filippo.io/age"
	"filippo.io/age/agessh"
)

// Identity is an age identity made from a derived SSH Ed25519 key,
// together with a public label describing where the key came from.
type Identity struct {
	age.Identity

	// Label is the Info of the generator as JSON.
	Label string

	recipient *agessh.Ed25519Recipient
}

// Recipient returns the age recipient that files can be encrypted to
// for this identity.
func (id *Identity) Recipient() age.Recipient {
	return id.recipient
}
