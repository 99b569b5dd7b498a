// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package sigkeys

import (
	"bytes"
	"errors"
)

var _ SignatureToKey = (*State)(nil)

// State is the per-instance state of a signature source: the
// derivation path, the message that was (or will be) signed, the raw
// signature once signing happened, and the seed once derived.
//
// A State starts out unsigned. Record moves it to signed, and the
// first call to Seed derives and caches the seed. Close wipes the
// signature and the seed.
//
// A State is not safe for concurrent use.
type State struct {
	path      string
	message   string
	signature []byte
	seed      [SeedSize]byte
	seeded    bool

	// derive is DeriveSeed, replaceable for tests.
	derive func([]byte) [SeedSize]byte
}

// NewState returns an unsigned State for path and message.
func NewState(path, message string) *State {
	return &State{
		path:    path,
		message: message,
		derive:  DeriveSeed,
	}
}

// Path returns the derivation path.
func (s *State) Path() string {
	return s.path
}

// Message returns the message that was signed, or the one that will be
// signed if Record hasn't been called yet.
func (s *State) Message() string {
	return s.message
}

// Signed reports whether a signature has been recorded.
func (s *State) Signed() bool {
	return s.signature != nil
}

// Record stores signature as the signature over message. The State
// takes ownership of signature and wipes it on Close, also when Record
// fails.
func (s *State) Record(message string, signature []byte) error {
	if s.signature != nil {
		Wipe(signature)
		return ErrAlreadySigned
	}
	if len(signature) == 0 {
		return errors.New("empty signature")
	}

	s.message = message
	s.signature = signature

	return nil
}

// Signature returns a copy of the stored signature, or ErrNotYetSigned.
func (s *State) Signature() ([]byte, error) {
	if s.signature == nil {
		return nil, ErrNotYetSigned
	}

	return bytes.Clone(s.signature), nil
}

// Seed returns the seed derived from the signature. It is derived
// once, on the first successful call, and then returned from cache.
func (s *State) Seed() ([]byte, error) {
	if s.seeded {
		return s.seed[:], nil
	}

	signature, err := s.Signature()
	if err != nil {
		return nil, err
	}
	defer Wipe(signature)

	s.seed = s.derive(signature)
	s.seeded = true

	return s.seed[:], nil
}

// Info returns the path and message.
func (s *State) Info() Metadata {
	return Metadata{
		Message:        s.message,
		DerivationPath: s.path,
	}
}

// Close wipes the signature and the seed. The State is unsigned
// afterwards.
func (s *State) Close() error {
	Wipe(s.signature)
	s.signature = nil
	Wipe(s.seed[:])
	s.seeded = false

	return nil
}
