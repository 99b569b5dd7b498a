// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

// Package hwsigner is a signature source backed by an external signing
// device. Use it like this:
//
//	signer, err := hwsigner.SignWithPath(transport, "m/44h/60h/11h/0/12", msg)
//	defer signer.Close()
//
// and then derive keys from the signature:
//
//	keypair, err := signer.Keypair()
//
// Exactly one device must be attached unless another DeviceSelector
// is given. Signing talks to one physical device and is not safe for
// concurrent use; failures are returned as is and never retried.
package hwsigner

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"filippo.io/edwards25519"
	"github.com/tillitis/tkey-sigkeys/bip32path"
	"github.com/tillitis/tkey-sigkeys/ethsig"
	"github.com/tillitis/tkey-sigkeys/sigkeys"
)

var le = log.New(os.Stderr, "", 0)

// SilenceLogging silences diagnostics from this package.
func SilenceLogging() {
	le.SetOutput(io.Discard)
}

// DefaultMessage is signed when no message is given.
const DefaultMessage = "This is a default message for testing Ethereum signature functionality. It has no financial or operational implications."

var (
	// ErrSigning wraps every failure to get a signature.
	ErrSigning = errors.New("signing failed")

	ErrDeviceNotFound      = errors.New("no signing device found")
	ErrMultipleDevices     = errors.New("more than one signing device found")
	ErrDeviceCommunication = errors.New("device communication failed")
)

var _ sigkeys.EncryptionIdentityGenerator = (*Signer)(nil)
var _ sigkeys.ScalarGenerator = (*Signer)(nil)

// Signer is a signature source that gets its signature from a device
// through a Transport.
type Signer struct {
	*sigkeys.State

	path         bip32path.Path
	transport    Transport
	selectDevice DeviceSelector
}

type options struct {
	path         string
	message      string
	selectDevice DeviceSelector
}

type Option func(*options)

// WithPath sets the derivation path. The default is
// bip32path.DefaultPath.
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithMessage sets the message recorded before signing. Sign replaces
// it with the message actually signed.
func WithMessage(message string) Option {
	return func(o *options) {
		o.message = message
	}
}

// WithDeviceSelector replaces ExactlyOne.
func WithDeviceSelector(selectDevice DeviceSelector) Option {
	return func(o *options) {
		o.selectDevice = selectDevice
	}
}

// New returns an unsigned Signer. It fails with a
// *bip32path.PathParseError if the path is malformed.
func New(transport Transport, opts ...Option) (*Signer, error) {
	o := options{
		path:         bip32path.DefaultPath,
		message:      DefaultMessage,
		selectDevice: ExactlyOne,
	}
	for _, opt := range opts {
		opt(&o)
	}

	path, err := bip32path.Parse(o.path)
	if err != nil {
		return nil, err
	}

	return &Signer{
		State:        sigkeys.NewState(o.path, o.message),
		path:         path,
		transport:    transport,
		selectDevice: o.selectDevice,
	}, nil
}

// SignWithPath returns a Signer that has signed message with the key at
// path.
func SignWithPath(transport Transport, path string, message string, opts ...Option) (*Signer, error) {
	opts = append(opts, WithPath(path), WithMessage(message))

	signer, err := New(transport, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}

	sig, err := signer.Sign(message)
	if err != nil {
		return nil, err
	}
	sig.Wipe()

	return signer, nil
}

// Sign connects to the device, has it sign message and records the
// signature. The caller owns the returned signature and should wipe
// it. All errors wrap ErrSigning.
func (s *Signer) Sign(message string) (*ethsig.Signature, error) {
	sig, err := s.sign(message)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}

	return sig, nil
}

func (s *Signer) sign(message string) (*ethsig.Signature, error) {
	if s.Signed() {
		return nil, sigkeys.ErrAlreadySigned
	}

	devices, err := s.transport.Devices()
	if err != nil {
		return nil, commError("Devices", err)
	}

	dev, err := s.selectDevice(devices)
	if err != nil {
		return nil, err
	}

	le.Printf("Connecting to signing device %s\n", dev)
	session, err := s.transport.Connect(dev)
	if err != nil {
		return nil, commError("Connect", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			le.Printf("Close failed: %s\n", err)
		}
	}()

	if err := session.Initialize(); err != nil {
		return nil, commError("Initialize", err)
	}

	le.Printf("Signing a %d bytes message with path %s\n", len(message), s.path)
	sig, err := session.SignMessage([]byte(message), s.path)
	if err != nil {
		return nil, commError("SignMessage", err)
	}

	text, err := sig.MarshalText()
	if err != nil {
		sig.Wipe()
		return nil, fmt.Errorf("MarshalText: %w", err)
	}

	if err := s.Record(message, text); err != nil {
		sig.Wipe()
		return nil, err
	}

	return sig, nil
}

// DerivationPath returns the parsed derivation path.
func (s *Signer) DerivationPath() bip32path.Path {
	return append(bip32path.Path(nil), s.path...)
}

// Scalar is DeriveScalar of the recorded signature.
func (s *Signer) Scalar() (*edwards25519.Scalar, error) {
	return sigkeys.DeriveScalar(s)
}

// Keypair is DeriveKeypair of the recorded signature.
func (s *Signer) Keypair() (*sigkeys.Keypair, error) {
	return sigkeys.DeriveKeypair(s)
}

// Identity is DeriveIdentity of the recorded signature.
func (s *Signer) Identity() (*sigkeys.Identity, error) {
	return sigkeys.DeriveIdentity(s)
}

// commError marks err as a communication failure unless the transport
// already classified it.
func commError(op string, err error) error {
	if errors.Is(err, ErrDeviceCommunication) ||
		errors.Is(err, ErrDeviceNotFound) ||
		errors.Is(err, ErrMultipleDevices) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%s: %w: %w", op, ErrDeviceCommunication, err)
}
