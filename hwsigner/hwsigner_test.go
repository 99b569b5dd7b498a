// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package hwsigner

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillitis/tkey-sigkeys/bip32path"
	"github.com/tillitis/tkey-sigkeys/ethsig"
	"github.com/tillitis/tkey-sigkeys/sigkeys"
)

func init() {
	SilenceLogging()
}

// stubTransport hands out sessions returning a fixed signature.
type stubTransport struct {
	devices    []Device
	devicesErr error
	connectErr error
	initErr    error
	signErr    error

	connected []Device
	sessions  []*stubSession
}

type stubSession struct {
	t       *stubTransport
	closed  bool
	message []byte
	path    bip32path.Path
}

func newStub() *stubTransport {
	return &stubTransport{devices: []Device{{Path: "/dev/stub0"}}}
}

func stubSignature() *ethsig.Signature {
	var sig ethsig.Signature
	for i := range sig.R {
		sig.R[i] = 0x11
		sig.S[i] = 0x22
	}
	sig.V = 0x1b

	return &sig
}

func (t *stubTransport) Devices() ([]Device, error) {
	return t.devices, t.devicesErr
}

func (t *stubTransport) Connect(dev Device) (Session, error) {
	t.connected = append(t.connected, dev)
	if t.connectErr != nil {
		return nil, t.connectErr
	}
	s := &stubSession{t: t}
	t.sessions = append(t.sessions, s)

	return s, nil
}

func (s *stubSession) Initialize() error {
	return s.t.initErr
}

func (s *stubSession) SignMessage(message []byte, path bip32path.Path) (*ethsig.Signature, error) {
	s.message = append([]byte(nil), message...)
	s.path = path
	if s.t.signErr != nil {
		return nil, s.t.signErr
	}

	return stubSignature(), nil
}

func (s *stubSession) Close() error {
	s.closed = true
	return nil
}

func TestSignWithPath(t *testing.T) {
	tr := newStub()

	signer, err := SignWithPath(tr, "m/44h/60h/0h/0/0", "test")
	require.NoError(t, err)
	defer signer.Close()

	require.Len(t, tr.sessions, 1)
	session := tr.sessions[0]
	require.True(t, session.closed)
	require.Equal(t, "test", string(session.message))
	require.Equal(t, bip32path.Path{0x8000002c, 0x8000003c, 0x80000000, 0, 0}, session.path)

	sig, err := signer.Signature()
	require.NoError(t, err)
	want, err := stubSignature().MarshalText()
	require.NoError(t, err)
	require.Equal(t, want, sig)

	require.Equal(t, sigkeys.Metadata{Message: "test", DerivationPath: "m/44h/60h/0h/0/0"}, signer.Info())
	require.Equal(t, session.path, signer.DerivationPath())
}

func TestEndToEndReproducible(t *testing.T) {
	for i := 0; i < 2; i++ {
		signer, err := SignWithPath(newStub(), "m/44h/60h/0h/0/0", "test")
		require.NoError(t, err)

		seed, err := signer.Seed()
		require.NoError(t, err)
		assert.Equal(t, "d4bf9bddab59dab45ac30a9e4788d14f1242e30282a32325424be1800aee6eb4", hex.EncodeToString(seed))

		sc, err := signer.Scalar()
		require.NoError(t, err)
		assert.Equal(t, "a5a40bdf891710ec2406679db6cb3c6a1142e30282a32325424be1800aee6e04", hex.EncodeToString(sc.Bytes()))

		kp, err := signer.Keypair()
		require.NoError(t, err)
		assert.Equal(t, "df2b9bab065ab1e8865b586c659adce19d6462ed9fbf4889dc46d4936aaae456", hex.EncodeToString(kp.Public()))

		id, err := signer.Identity()
		require.NoError(t, err)
		assert.Equal(t, `{"message":"test","derivation_path":"m/44h/60h/0h/0/0"}`, id.Label)

		kp.Wipe()
		require.NoError(t, signer.Close())
	}
}

func TestSignNoDevice(t *testing.T) {
	tr := newStub()
	tr.devices = nil

	signer, err := New(tr)
	require.NoError(t, err)

	_, err = signer.Sign("test")
	require.ErrorIs(t, err, ErrSigning)
	require.ErrorIs(t, err, ErrDeviceNotFound)
	require.Empty(t, tr.connected)

	_, err = signer.Signature()
	require.ErrorIs(t, err, sigkeys.ErrNotYetSigned)
	_, err = signer.Seed()
	require.ErrorIs(t, err, sigkeys.ErrNotYetSigned)
	_, err = signer.Keypair()
	require.ErrorIs(t, err, sigkeys.ErrNotYetSigned)
}

func TestSignMultipleDevices(t *testing.T) {
	tr := newStub()
	tr.devices = []Device{{Path: "/dev/stub0"}, {Path: "/dev/stub1"}}

	_, err := SignWithPath(tr, bip32path.DefaultPath, "test")
	require.ErrorIs(t, err, ErrSigning)
	require.ErrorIs(t, err, ErrMultipleDevices)
	require.Empty(t, tr.connected)
}

func TestDeviceSelector(t *testing.T) {
	tr := newStub()
	tr.devices = []Device{{Path: "/dev/stub0"}, {Path: "/dev/stub1", SerialNumber: "42"}}

	selectSerial := func(devices []Device) (Device, error) {
		for _, d := range devices {
			if d.SerialNumber == "42" {
				return d, nil
			}
		}
		return Device{}, ErrDeviceNotFound
	}

	signer, err := SignWithPath(tr, bip32path.DefaultPath, "test", WithDeviceSelector(selectSerial))
	require.NoError(t, err)
	defer signer.Close()

	require.Equal(t, []Device{tr.devices[1]}, tr.connected)
}

func TestSignCommunicationErrors(t *testing.T) {
	boom := errors.New("boom")

	for name, setup := range map[string]func(*stubTransport){
		"devices":    func(tr *stubTransport) { tr.devicesErr = boom },
		"connect":    func(tr *stubTransport) { tr.connectErr = boom },
		"initialize": func(tr *stubTransport) { tr.initErr = boom },
		"sign":       func(tr *stubTransport) { tr.signErr = boom },
	} {
		t.Run(name, func(t *testing.T) {
			tr := newStub()
			setup(tr)

			signer, err := New(tr)
			require.NoError(t, err)

			_, err = signer.Sign("test")
			require.ErrorIs(t, err, ErrSigning)
			require.ErrorIs(t, err, ErrDeviceCommunication)
			require.ErrorIs(t, err, boom)
			require.False(t, signer.Signed())

			for _, s := range tr.sessions {
				require.True(t, s.closed)
			}
		})
	}
}

func TestSignClassifiedError(t *testing.T) {
	tr := newStub()
	tr.connectErr = ErrDeviceNotFound

	_, err := SignWithPath(tr, bip32path.DefaultPath, "test")
	require.ErrorIs(t, err, ErrDeviceNotFound)
	require.False(t, errors.Is(err, ErrDeviceCommunication))
}

func TestSignTwice(t *testing.T) {
	tr := newStub()

	signer, err := SignWithPath(tr, bip32path.DefaultPath, "test")
	require.NoError(t, err)
	defer signer.Close()

	seed, err := signer.Seed()
	require.NoError(t, err)
	seed = append([]byte(nil), seed...)

	_, err = signer.Sign("other")
	require.ErrorIs(t, err, sigkeys.ErrAlreadySigned)
	require.Len(t, tr.sessions, 1)
	require.Equal(t, "test", signer.Message())

	again, err := signer.Seed()
	require.NoError(t, err)
	require.Equal(t, seed, again)
}

func TestNewDefaults(t *testing.T) {
	signer, err := New(newStub())
	require.NoError(t, err)

	require.Equal(t, bip32path.DefaultPath, signer.Path())
	require.Equal(t, DefaultMessage, signer.Message())
	require.False(t, signer.Signed())
}

func TestNewBadPath(t *testing.T) {
	_, err := New(newStub(), WithPath("m/abc"))
	var perr *bip32path.PathParseError
	require.True(t, errors.As(err, &perr))

	tr := newStub()
	_, err = SignWithPath(tr, "m/44h/x", "test")
	require.ErrorIs(t, err, ErrSigning)
	require.True(t, errors.As(err, &perr))
	require.Empty(t, tr.connected)
}

func TestExactlyOne(t *testing.T) {
	_, err := ExactlyOne(nil)
	require.ErrorIs(t, err, ErrDeviceNotFound)

	dev, err := ExactlyOne([]Device{{Path: "a"}})
	require.NoError(t, err)
	require.Equal(t, "a", dev.Path)

	_, err = ExactlyOne([]Device{{Path: "a"}, {Path: "b"}, {Path: "c"}})
	require.ErrorIs(t, err, ErrMultipleDevices)
	require.True(t, strings.Contains(err.Error(), "3"))
}

func TestDeviceString(t *testing.T) {
	require.Equal(t, "/dev/ttyACM0", Device{Path: "/dev/ttyACM0"}.String())
	require.Equal(t, "/dev/ttyACM0 (serial number 7)", Device{Path: "/dev/ttyACM0", SerialNumber: "7"}.String())
}
