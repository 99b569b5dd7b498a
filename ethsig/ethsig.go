// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

// Package ethsig holds the (r, s, v) signature returned by a signing
// device and its canonical text form:
//
//	0x || hex(r) || hex(s) || hex(v)
//
// in lowercase, without separators, 132 characters in total.
package ethsig

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	// ComponentSize is the size of each of r and s.
	ComponentSize = 32
	// Size is the size of r || s || v.
	Size = 2*ComponentSize + 1
	// TextSize is the length of the text form including the "0x"
	// prefix.
	TextSize = 2 + 2*Size
)

var ErrInvalidLength = errors.New("invalid signature length")

// Signature is a signature with two fixed-width components and a one
// byte recovery or version tag.
type Signature struct {
	R [ComponentSize]byte
	S [ComponentSize]byte
	V byte
}

// FromBytes splits r || s || v into a Signature.
func FromBytes(b []byte) (*Signature, error) {
	if len(b) != Size {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, len(b))
	}

	var sig Signature
	copy(sig.R[:], b[:ComponentSize])
	copy(sig.S[:], b[ComponentSize:2*ComponentSize])
	sig.V = b[2*ComponentSize]

	return &sig, nil
}

// ParseHex parses the text form produced by MarshalText. Upper case
// digits are accepted.
func ParseHex(s string) (*Signature, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("Decode: %w", err)
	}
	defer clear(b)

	return FromBytes(b)
}

// Bytes returns r || s || v. The caller owns the returned slice.
func (sig *Signature) Bytes() []byte {
	b := make([]byte, 0, Size)
	b = append(b, sig.R[:]...)
	b = append(b, sig.S[:]...)
	b = append(b, sig.V)

	return b
}

// MarshalText returns the text form of the signature. The result is a
// byte slice, not a string, so that the caller can wipe it.
func (sig *Signature) MarshalText() ([]byte, error) {
	raw := sig.Bytes()
	defer clear(raw)

	text := make([]byte, TextSize)
	text[0], text[1] = '0', 'x'
	hex.Encode(text[2:], raw)

	return text, nil
}

// Wipe zeroes the signature.
func (sig *Signature) Wipe() {
	clear(sig.R[:])
	clear(sig.S[:])
	sig.V = 0
}
