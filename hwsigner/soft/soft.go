// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

// Package soft is a hwsigner.Transport holding a BIP-39 mnemonic in
// memory. It signs the way an Ethereum hardware wallet signs a
// personal message: the secp256k1 key at the BIP-32 path signs the
// EIP-191 hash of the message, and V is 27 or 28.
package soft

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/accounts"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"

	"github.com/tillitis/tkey-sigkeys/bip32path"
	"github.com/tillitis/tkey-sigkeys/ethsig"
	"github.com/tillitis/tkey-sigkeys/hwsigner"
)

// DevicePath is the path of the single device a Transport lists.
const DevicePath = "soft"

// Offset added to the recovery id.
const recoveryOffset = 27

var (
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
	ErrClosed          = errors.New("transport closed")
)

var _ hwsigner.Transport = (*Transport)(nil)

type Transport struct {
	seed []byte
}

// New checks the mnemonic and stretches it, with the passphrase, into
// the BIP-39 seed.
func New(mnemonic, passphrase string) (*Transport, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMnemonic, err)
	}

	return &Transport{seed: seed}, nil
}

func (t *Transport) Devices() ([]hwsigner.Device, error) {
	if t.seed == nil {
		return nil, ErrClosed
	}
	return []hwsigner.Device{{Path: DevicePath}}, nil
}

func (t *Transport) Connect(_ hwsigner.Device) (hwsigner.Session, error) {
	if t.seed == nil {
		return nil, ErrClosed
	}
	return &session{seed: t.seed}, nil
}

// Close wipes the seed.
func (t *Transport) Close() {
	clear(t.seed)
	t.seed = nil
}

type session struct {
	seed []byte
}

func (s *session) Initialize() error {
	return nil
}

func (s *session) SignMessage(message []byte, path bip32path.Path) (*ethsig.Signature, error) {
	key, err := deriveKey(s.seed, path)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("ECPrivKey: %w", err)
	}
	defer priv.Zero()

	raw := priv.Serialize()
	defer clear(raw)

	ecdsaKey, err := ethcrypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("ToECDSA: %w", err)
	}
	defer ecdsaKey.D.SetInt64(0)

	sig, err := ethcrypto.Sign(accounts.TextHash(message), ecdsaKey)
	if err != nil {
		return nil, fmt.Errorf("Sign: %w", err)
	}
	defer clear(sig)

	sig[2*ethsig.ComponentSize] += recoveryOffset

	return ethsig.FromBytes(sig)
}

func (s *session) Close() error {
	return nil
}

// deriveKey walks path from the master key of seed. Intermediate keys
// are zeroed.
func deriveKey(seed []byte, path bip32path.Path) (*hdkeychain.ExtendedKey, error) {
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("NewMaster: %w", err)
	}

	for _, index := range path {
		child, err := key.Derive(index)
		key.Zero()
		if err != nil {
			return nil, fmt.Errorf("Derive %d: %w", index, err)
		}
		key = child
	}

	return key, nil
}
