// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package sigkeys

import (
	"filippo.io/edwards25519"
)

var _ EncryptionIdentityGenerator = (*Recorded)(nil)

// Recorded is a signature source backed by a signature that was
// obtained earlier, for instance from a hardware signer in a previous
// run. Since everything is derived from the stored signature it gives
// the same keys as the original source.
type Recorded struct {
	*State
}

// NewRecorded returns a signed source for path and message. It takes
// ownership of signature.
func NewRecorded(path, message string, signature []byte) (*Recorded, error) {
	state := NewState(path, message)
	if err := state.Record(message, signature); err != nil {
		return nil, err
	}

	return &Recorded{State: state}, nil
}

// Scalar returns DeriveScalar(r).
func (r *Recorded) Scalar() (*edwards25519.Scalar, error) {
	return DeriveScalar(r)
}

// Keypair returns DeriveKeypair(r).
func (r *Recorded) Keypair() (*Keypair, error) {
	return DeriveKeypair(r)
}

// Identity returns DeriveIdentity(r).
func (r *Recorded) Identity() (*Identity, error) {
	return DeriveIdentity(r)
}
