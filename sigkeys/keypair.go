// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package sigkeys

import (
	"crypto/ed25519"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// Keypair is an Ed25519 keypair derived from a seed. The owner should
// call Wipe when done with it.
type Keypair struct {
	priv ed25519.PrivateKey
}

// NewKeypair expands an RFC 8032 seed into a keypair. The seed is used
// as is, not hashed again.
func NewKeypair(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("bad seed length: %d", len(seed))
	}

	return &Keypair{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// Public returns the public key.
func (k *Keypair) Public() ed25519.PublicKey {
	return k.priv.Public().(ed25519.PublicKey)
}

// PrivateKey returns the private key. It aliases the keypair's memory
// and is wiped by Wipe.
func (k *Keypair) PrivateKey() ed25519.PrivateKey {
	return k.priv
}

// SSHPublicKey returns the public key as an ssh-ed25519 key.
func (k *Keypair) SSHPublicKey() (ssh.PublicKey, error) {
	pub, err := ssh.NewPublicKey(k.Public())
	if err != nil {
		return nil, fmt.Errorf("NewPublicKey: %w", err)
	}

	return pub, nil
}

// AuthorizedKey returns the public key in authorized_keys format,
// with a trailing newline.
func (k *Keypair) AuthorizedKey() ([]byte, error) {
	pub, err := k.SSHPublicKey()
	if err != nil {
		return nil, err
	}

	return ssh.MarshalAuthorizedKey(pub), nil
}

// SSHSigner returns an ssh.Signer using the private key.
func (k *Keypair) SSHSigner() (ssh.Signer, error) {
	signer, err := ssh.NewSignerFromKey(k.priv)
	if err != nil {
		return nil, fmt.Errorf("NewSignerFromKey: %w", err)
	}

	return signer, nil
}

// OpenSSHPrivateKey serializes the private key in the PEM encoded
// OpenSSH private key format. The caller owns the returned buffer and
// must Wipe it.
func (k *Keypair) OpenSSHPrivateKey(comment string) ([]byte, error) {
	block, err := ssh.MarshalPrivateKey(k.priv, comment)
	if err != nil {
		return nil, fmt.Errorf("MarshalPrivateKey: %w", err)
	}
	defer Wipe(block.Bytes)

	return pem.EncodeToMemory(block), nil
}

// Wipe zeroes the private key.
func (k *Keypair) Wipe() {
	Wipe(k.priv)
}
