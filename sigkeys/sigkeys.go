// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

// Package sigkeys derives deterministic key material from a single
// message signature produced by a device that can sign but not export
// its private key.
//
// The raw signature is hashed into a 32 byte seed, and the seed feeds
// the standard constructions for an Ed25519 scalar, an Ed25519 keypair
// (usable as an SSH key) and an age identity. The same signer, path
// and message always give the same keys.
//
// A signature source implements SignatureToKey, usually by embedding
// a *State, and opts into any of the optional capabilities by
// implementing the corresponding method with DeriveScalar,
// DeriveKeypair or DeriveIdentity:
//
//	func (s *MySource) Keypair() (*sigkeys.Keypair, error) {
//		return sigkeys.DeriveKeypair(s)
//	}
//
// Every value carrying secret bytes (State, Keypair, scalars and
// serialized private keys) must be wiped by its owner when done, see
// State.Close, Keypair.Wipe, WipeScalar and Wipe.
package sigkeys

import (
	"errors"

	"filippo.io/edwards25519"
)

var (
	// ErrNotYetSigned is returned when a signature, seed or anything
	// derived from them is requested before signing happened.
	ErrNotYetSigned = errors.New("not yet signed")

	// ErrAlreadySigned is returned when recording a second signature
	// on a State.
	ErrAlreadySigned = errors.New("already signed")

	// ErrIdentityConstruction is returned when the serialized private
	// key could not be turned into an encryption identity.
	ErrIdentityConstruction = errors.New("identity construction failed")
)

// SignatureToKey is the base capability: something that holds a
// signature and the seed derived from it.
type SignatureToKey interface {
	// Signature returns a copy of the stored signature. The caller
	// owns the copy and should Wipe it.
	Signature() ([]byte, error)

	// Seed returns the seed, deriving it on first use. The returned
	// slice aliases the owner's buffer: it must not be modified or
	// retained past the owner's Close.
	Seed() ([]byte, error)

	// Info describes the instance. It never contains secrets.
	Info() Metadata
}

// ScalarGenerator can produce a scalar modulo the Ed25519 group order.
type ScalarGenerator interface {
	SignatureToKey
	Scalar() (*edwards25519.Scalar, error)
}

// Ed25519KeyGenerator can produce an Ed25519 keypair.
type Ed25519KeyGenerator interface {
	SignatureToKey
	Keypair() (*Keypair, error)
}

// EncryptionIdentityGenerator can produce an age identity from its
// Ed25519 keypair.
type EncryptionIdentityGenerator interface {
	Ed25519KeyGenerator
	Identity() (*Identity, error)
}
