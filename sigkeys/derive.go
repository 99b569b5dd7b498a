// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package sigkeys

import (
	"fmt"

	"filippo.io/age/agessh"
	"filippo.io/edwards25519"
)

// Replaced in tests.
var parseIdentity = agessh.ParseIdentity

// DeriveScalar reduces the seed of g modulo the Ed25519 group order.
// The seed is read as a little-endian 256-bit integer.
func DeriveScalar(g SignatureToKey) (*edwards25519.Scalar, error) {
	seed, err := g.Seed()
	if err != nil {
		return nil, err
	}

	// Zero-extended to 64 bytes the wide reduction equals the narrow
	// one.
	var wide [64]byte
	defer Wipe(wide[:])
	copy(wide[:], seed)

	sc, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		return nil, fmt.Errorf("SetUniformBytes: %w", err)
	}

	return sc, nil
}

// DeriveKeypair expands the seed of g into an Ed25519 keypair.
func DeriveKeypair(g SignatureToKey) (*Keypair, error) {
	seed, err := g.Seed()
	if err != nil {
		return nil, err
	}

	return NewKeypair(seed)
}

// DeriveIdentity turns the keypair of g into an age identity labeled
// with the JSON of g.Info(). The intermediate OpenSSH private key is
// wiped before returning, whether or not construction succeeded.
func DeriveIdentity(g Ed25519KeyGenerator) (*Identity, error) {
	kp, err := g.Keypair()
	if err != nil {
		return nil, err
	}
	defer kp.Wipe()

	label := g.Info().JSON()

	buf, err := kp.OpenSSHPrivateKey(label)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIdentityConstruction, err)
	}
	defer Wipe(buf)

	identity, err := parseIdentity(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: ParseIdentity: %w", ErrIdentityConstruction, err)
	}

	pub, err := kp.SSHPublicKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIdentityConstruction, err)
	}

	recipient, err := agessh.NewEd25519Recipient(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: NewEd25519Recipient: %w", ErrIdentityConstruction, err)
	}

	return &Identity{
		Identity:  identity,
		Label:     label,
		recipient: recipient,
	}, nil
}
