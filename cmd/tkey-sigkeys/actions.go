// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age/agessh"

	"github.com/tillitis/tkey-sigkeys/sigkeys"
)

// run performs the single action set in actions.
func run(actions Actions, source keySource, stdin io.Reader, stdout io.Writer) error {
	switch {
	case actions.ShowInfo:
		fmt.Fprintf(stdout, "%s\n", source.Info().JSON())
		return nil
	case actions.ShowPubkey:
		return showPubkey(source, stdout)
	case actions.ShowScalar:
		return showScalar(source, stdout)
	case actions.ShowRecipient:
		return showRecipient(source, stdout)
	case actions.ExportSSH != "":
		return exportSSH(source, actions.ExportSSH)
	case actions.SaveSignature != "":
		return saveSignature(source, actions.SaveSignature)
	case actions.Encrypt:
		id, err := source.Identity()
		if err != nil {
			return err
		}
		return encrypt(stdout, stdin, id.Recipient())
	case actions.Decrypt:
		id, err := source.Identity()
		if err != nil {
			return err
		}
		return decrypt(stdout, stdin, id)
	case actions.AgentPath != "":
		return serveAgent(source, actions.AgentPath)
	}

	return errors.New("no action")
}

func keyComment(source keySource) string {
	return fmt.Sprintf("%s %s", progname, source.Info().DerivationPath)
}

func showPubkey(source keySource, stdout io.Writer) error {
	keypair, err := source.Keypair()
	if err != nil {
		return err
	}
	defer keypair.Wipe()

	authorized, err := keypair.AuthorizedKey()
	if err != nil {
		return err
	}

	le.Printf("Your SSH public key (on stdout):\n")
	_, err = stdout.Write(authorized)
	return err
}

func showScalar(source keySource, stdout io.Writer) error {
	scalar, err := source.Scalar()
	if err != nil {
		return err
	}
	defer sigkeys.WipeScalar(scalar)

	b := scalar.Bytes()
	defer clear(b)

	text := make([]byte, hex.EncodedLen(len(b)), hex.EncodedLen(len(b))+1)
	defer clear(text)
	hex.Encode(text, b)

	le.Printf("Your secret scalar (on stdout):\n")
	_, err = stdout.Write(append(text, '\n'))
	return err
}

// showRecipient outputs the SSH public key, which is the text form of
// the age recipient.
func showRecipient(source keySource, stdout io.Writer) error {
	keypair, err := source.Keypair()
	if err != nil {
		return err
	}
	defer keypair.Wipe()

	authorized, err := keypair.AuthorizedKey()
	if err != nil {
		return err
	}

	if _, err := agessh.ParseRecipient(string(authorized)); err != nil {
		return fmt.Errorf("ParseRecipient: %w", err)
	}

	le.Printf("Your age recipient (on stdout):\n")
	_, err = stdout.Write(authorized)
	return err
}

func exportSSH(source keySource, fileName string) error {
	keypair, err := source.Keypair()
	if err != nil {
		return err
	}
	defer keypair.Wipe()

	private, err := keypair.OpenSSHPrivateKey(keyComment(source))
	if err != nil {
		return err
	}
	defer clear(private)

	authorized, err := keypair.AuthorizedKey()
	if err != nil {
		return err
	}

	if err := writeNewFile(fileName, private, 0o600); err != nil {
		return err
	}
	if err := writeNewFile(fileName+".pub", authorized, 0o644); err != nil {
		return err
	}

	le.Printf("Wrote %s and %s.pub\n", fileName, fileName)
	return nil
}

func saveSignature(source keySource, fileName string) error {
	data, err := marshalSavedSignature(source)
	if err != nil {
		return err
	}
	defer clear(data)

	if err := writeNewFile(fileName, data, 0o600); err != nil {
		return err
	}

	le.Printf("Wrote signature to %s\n", fileName)
	return nil
}

func serveAgent(source keySource, agentPath string) error {
	keypair, err := source.Keypair()
	if err != nil {
		return err
	}
	defer keypair.Wipe()

	agent, err := NewSSHAgent(keypair, keyComment(source))
	if err != nil {
		return err
	}

	return agent.Serve(agentPath)
}

// writeNewFile writes data to a file that must not exist.
func writeNewFile(fileName string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("OpenFile: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("Write: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("Close: %w", err)
	}

	return nil
}
