// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tillitis/tkey-sigkeys/bip32path"
	"github.com/tillitis/tkey-sigkeys/ethsig"
	"github.com/tillitis/tkey-sigkeys/sigkeys"
)

var ErrSignatureConflict = errors.New("flag conflicts with signature file")

// savedSignature is the --save-signature file: the signature together
// with the message and path it was made with.
type savedSignature struct {
	sigkeys.Metadata
	Signature string `json:"signature"`
}

// marshalSavedSignature returns the file contents for source. The
// caller should wipe the result.
func marshalSavedSignature(source keySource) ([]byte, error) {
	sig, err := source.Signature()
	if err != nil {
		return nil, err
	}
	defer clear(sig)

	data, err := json.Marshal(savedSignature{
		Metadata:  source.Info(),
		Signature: string(sig),
	})
	if err != nil {
		return nil, fmt.Errorf("Marshal: %w", err)
	}

	return append(data, '\n'), nil
}

// parseSavedSignature reads a signature file. The signature is
// reformatted to the canonical lower case text, so the same keys are
// derived regardless of how it was stored. Path and message set on the
// command line must match the file.
func parseSavedSignature(data []byte, conf SourceConfig) (*sigkeys.Recorded, error) {
	var saved savedSignature
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("Unmarshal: %w", err)
	}

	path, err := bip32path.Parse(saved.DerivationPath)
	if err != nil {
		return nil, err
	}

	if conf.PathSet {
		flagPath, err := bip32path.Parse(conf.DerivationPath)
		if err != nil {
			return nil, err
		}
		if flagPath.String() != path.String() {
			return nil, fmt.Errorf("%w: --path %s, file has %s",
				ErrSignatureConflict, conf.DerivationPath, saved.DerivationPath)
		}
	}

	if conf.MessageSet && conf.Message != saved.Message {
		return nil, fmt.Errorf("%w: --message differs from the file", ErrSignatureConflict)
	}

	sig, err := ethsig.ParseHex(saved.Signature)
	if err != nil {
		return nil, err
	}
	defer sig.Wipe()

	text, err := sig.MarshalText()
	if err != nil {
		return nil, err
	}

	return sigkeys.NewRecorded(saved.DerivationPath, saved.Message, text)
}
