// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tillitis/tkeyutil"

	"github.com/tillitis/tkey-sigkeys/hwsigner"
	"github.com/tillitis/tkey-sigkeys/hwsigner/soft"
	"github.com/tillitis/tkey-sigkeys/hwsigner/tkey"
	"github.com/tillitis/tkey-sigkeys/internal/util"
	"github.com/tillitis/tkey-sigkeys/sigkeys"
)

var notify = func(msg string) {
	tkeyutil.Notify(progname, msg)
}

type Port struct {
	Path  string
	Speed int
}

type UssConfig struct {
	EnterManually bool
	Path          string
	PinentryPath  string
}

type SourceConfig struct {
	Port           Port
	Uss            UssConfig
	AppPath        string
	MnemonicPath   string
	Passphrase     bool
	SignaturePath  string
	DerivationPath string
	Message        string

	// Set when given on the command line.
	PathSet    bool
	MessageSet bool
}

// keySource is where keys come from: a signer that just signed, or a
// recorded signature.
type keySource interface {
	sigkeys.EncryptionIdentityGenerator
	sigkeys.ScalarGenerator
	Close() error
}

// openSource returns a signed key source. The returned cleanup func
// wipes everything and must always be called.
func openSource(conf SourceConfig) (keySource, func(), error) {
	if conf.SignaturePath != "" {
		recorded, err := openRecorded(conf)
		if err != nil {
			return nil, func() {}, err
		}
		return recorded, func() { _ = recorded.Close() }, nil
	}

	transport, closeTransport, err := openTransport(conf)
	if err != nil {
		return nil, func() {}, err
	}

	le.Printf("Signing with path %s\n", conf.DerivationPath)
	signer, err := hwsigner.SignWithPath(transport, conf.DerivationPath, conf.Message)
	closeTransport()
	if err != nil {
		switch {
		case errors.Is(err, hwsigner.ErrDeviceNotFound):
			notify("Could not find any TKey plugged in.")
		case errors.Is(err, hwsigner.ErrMultipleDevices):
			notify("Cannot work with more than 1 TKey plugged in.")
		}
		return nil, func() {}, err
	}

	return signer, func() { _ = signer.Close() }, nil
}

// openRecorded reads a signature saved with --save-signature.
func openRecorded(conf SourceConfig) (*sigkeys.Recorded, error) {
	raw, err := util.ReadSecret(conf.SignaturePath)
	if err != nil {
		return nil, fmt.Errorf("Failed to read signature file: %w", err)
	}
	defer clear(raw)

	recorded, err := parseSavedSignature(raw, conf)
	if err != nil {
		return nil, fmt.Errorf("Invalid signature file: %w", err)
	}

	return recorded, nil
}

func openTransport(conf SourceConfig) (hwsigner.Transport, func(), error) {
	if conf.MnemonicPath != "" {
		return openSoft(conf)
	}

	tkeyConf := tkey.Config{
		Port:   conf.Port.Path,
		Speed:  conf.Port.Speed,
		USS:    ussFunc(conf.Uss),
		Notify: notify,
	}

	if conf.AppPath != "" {
		app, err := os.ReadFile(conf.AppPath)
		if err != nil {
			return nil, func() {}, fmt.Errorf("Failed to read app: %w", err)
		}
		le.Printf("Signer app %s SHA512: %s\n", conf.AppPath, appDigest(app))
		tkeyConf.AppBinary = app
	}

	return tkey.New(tkeyConf), func() {}, nil
}

func openSoft(conf SourceConfig) (hwsigner.Transport, func(), error) {
	raw, err := util.ReadSecret(conf.MnemonicPath)
	if err != nil {
		return nil, func() {}, fmt.Errorf("Failed to read mnemonic: %w", err)
	}
	defer clear(raw)

	var passphrase []byte
	if conf.Passphrase {
		passphrase, err = util.InputSecret("BIP-39 passphrase", true)
		if err != nil {
			return nil, func() {}, err
		}
		defer clear(passphrase)
	}

	mnemonic := strings.Join(strings.Fields(string(raw)), " ")
	transport, err := soft.New(mnemonic, string(passphrase))
	if err != nil {
		return nil, func() {}, err
	}

	return transport, transport.Close, nil
}

func ussFunc(conf UssConfig) func(udi string) ([]byte, error) {
	switch {
	case conf.EnterManually:
		return func(udi string) ([]byte, error) {
			secret, err := getSecret(udi, conf.PinentryPath)
			if err != nil {
				notify(fmt.Sprintf("Could not show USS prompt: %s", errors.Unwrap(err)))
			}
			return secret, err
		}
	case conf.Path != "":
		return func(string) ([]byte, error) {
			secret, err := tkeyutil.ReadUSS(conf.Path)
			if err != nil {
				notify(fmt.Sprintf("Could not read USS file: %s", err))
				return nil, fmt.Errorf("Failed to read uss-file %s: %w", conf.Path, err)
			}
			return secret, nil
		}
	}

	return nil
}

func appDigest(app []byte) string {
	digest := sha512.Sum512(app)
	return hex.EncodeToString(digest[:])
}
