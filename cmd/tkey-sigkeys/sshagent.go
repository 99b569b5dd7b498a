// SPDX-FileCopyrightText: 2022 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/tillitis/tkey-sigkeys/sigkeys"
)

// SSHAgent serves a single derived Ed25519 key. The key is derived
// once, before serving, so signing needs no device.
type SSHAgent struct {
	signer      ssh.Signer
	comment     string
	operationMu sync.Mutex // only handling 1 agent op at a time
}

func NewSSHAgent(keypair *sigkeys.Keypair, comment string) (*SSHAgent, error) {
	signer, err := keypair.SSHSigner()
	if err != nil {
		return nil, err
	}

	return &SSHAgent{signer: signer, comment: comment}, nil
}

func (s *SSHAgent) Serve(path string) error {
	listener, err := nativeListen(path)
	if err != nil {
		return fmt.Errorf("Could not create listener: %w", err)
	}
	le.Printf("Listening on %s\n", listener.Addr())

	for {
		conn, err := listener.Accept()
		if err != nil {
			return fmt.Errorf("Accept: %w", err)
		}
		le.Printf("Handling a client connection\n")
		go s.handleConn(conn)
	}
}

func (s *SSHAgent) handleConn(c net.Conn) {
	if err := agent.ServeAgent(s, c); err != nil && !errors.Is(err, io.EOF) {
		le.Printf("Agent client connection ended with error: %s\n", err)
	}
}

// implementing agent.ExtendedAgent below

var ErrNotImplemented = errors.New("not implemented")

func (s *SSHAgent) List() ([]*agent.Key, error) {
	s.operationMu.Lock()
	defer s.operationMu.Unlock()

	pub := s.signer.PublicKey()

	return []*agent.Key{{
		Format:  pub.Type(),
		Blob:    pub.Marshal(),
		Comment: s.comment,
	}}, nil
}

func (s *SSHAgent) Sign(key ssh.PublicKey, data []byte) (*ssh.Signature, error) {
	s.operationMu.Lock()
	defer s.operationMu.Unlock()

	if !bytes.Equal(key.Marshal(), s.signer.PublicKey().Marshal()) {
		return nil, fmt.Errorf("pubkey mismatch")
	}

	signature, err := s.signer.Sign(rand.Reader, data)
	if err != nil {
		return nil, fmt.Errorf("Signer.Sign: %w", err)
	}
	return signature, nil
}

func (s *SSHAgent) SignWithFlags(key ssh.PublicKey, data []byte, _ agent.SignatureFlags) (*ssh.Signature, error) {
	// we only do ed25519, so no need to care about flags
	return s.Sign(key, data)
}

func (s *SSHAgent) Extension(_ string, _ []byte) ([]byte, error) {
	return nil, agent.ErrExtensionUnsupported
}

func (s *SSHAgent) Add(_ agent.AddedKey) error {
	return ErrNotImplemented
}

func (s *SSHAgent) Remove(_ ssh.PublicKey) error {
	return ErrNotImplemented
}

func (s *SSHAgent) RemoveAll() error {
	return ErrNotImplemented
}

func (s *SSHAgent) Lock(_ []byte) error {
	return ErrNotImplemented
}

func (s *SSHAgent) Unlock(_ []byte) error {
	return ErrNotImplemented
}

func (s *SSHAgent) Signers() ([]ssh.Signer, error) {
	s.operationMu.Lock()
	defer s.operationMu.Unlock()

	return []ssh.Signer{s.signer}, nil
}
