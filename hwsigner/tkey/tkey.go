// SPDX-FileCopyrightText: 2022 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

// Package tkey is a hwsigner.Transport for a Tillitis TKey running the
// ed25519 signer device app.
//
// The TKey signer app has a single key per app and User Supplied
// Secret (USS), so the derivation path is bound into what is signed
// instead: the device signs the encoded path followed by the message.
// The signer app's Ed25519 signatures are deterministic, giving the
// same signature, and thereby the same derived keys, every time.
// R and S of the returned signature are the two halves of the Ed25519
// signature and V is SignatureVersion.
package tkey

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/tillitis/tkeyclient"
	"github.com/tillitis/tkeysign"

	"github.com/tillitis/tkey-sigkeys/bip32path"
	"github.com/tillitis/tkey-sigkeys/ethsig"
	"github.com/tillitis/tkey-sigkeys/hwsigner"
	"github.com/tillitis/tkey-sigkeys/internal/util"
)

var le = log.New(os.Stderr, "", 0)

// SilenceLogging silences this package and tkeyclient.
func SilenceLogging() {
	le.SetOutput(io.Discard)
	tkeyclient.SilenceLogging()
}

const (
	// 4 chars each.
	wantFWName0  = "tk1 "
	wantFWName1  = "mkdf"
	wantAppName0 = "tk1 "
	wantAppName1 = "sign"

	// SignatureVersion is the V of signatures made by the TKey
	// signer app.
	SignatureVersion = 0xed

	// MaxSignSize is the largest payload the signer app signs.
	MaxSignSize = 4096

	touchNotifyDelay = 4 * time.Second
)

var (
	ErrNoApp    = errors.New("TKey is in firmware mode and no signer app was given")
	ErrWrongApp = errors.New("TKey is not running the signer app")
	ErrVerify   = errors.New("signature from TKey did not verify")
)

// Config configures the transport.
type Config struct {
	// Port is the serial port of the TKey. If empty, attached TKeys
	// are enumerated.
	Port string

	// Speed of the serial port. Defaults to tkeyclient.SerialSpeed.
	Speed int

	// AppBinary is the signer app loaded if the TKey is in firmware
	// mode.
	AppBinary []byte

	// USS, if set, is asked for the User Supplied Secret when loading
	// the app. It gets the Unique Device Identifier of the TKey. The
	// returned secret is wiped after use.
	USS func(udi string) ([]byte, error)

	// Notify, if set, is called when the user has to touch the TKey.
	Notify func(msg string)
}

var _ hwsigner.Transport = (*Transport)(nil)

type Transport struct {
	conf Config
}

func New(conf Config) *Transport {
	if conf.Speed == 0 {
		conf.Speed = tkeyclient.SerialSpeed
	}

	return &Transport{conf: conf}
}

// Devices returns the configured port, or else all attached TKeys.
func (t *Transport) Devices() ([]hwsigner.Device, error) {
	if t.conf.Port != "" {
		return []hwsigner.Device{{Path: t.conf.Port}}, nil
	}

	ports, err := util.GetSerialPorts()
	if err != nil {
		return nil, err
	}

	devices := make([]hwsigner.Device, 0, len(ports))
	for _, p := range ports {
		devices = append(devices, hwsigner.Device{Path: p.DevPath, SerialNumber: p.SerialNumber})
	}

	return devices, nil
}

func (t *Transport) Connect(dev hwsigner.Device) (hwsigner.Session, error) {
	tk := tkeyclient.New()

	le.Printf("Connecting to TKey on serial port %s\n", dev.Path)
	if err := tk.Connect(dev.Path, tkeyclient.WithSpeed(t.conf.Speed)); err != nil {
		return nil, fmt.Errorf("Could not connect to a TKey on port %v: %w", dev.Path, err)
	}

	return &session{
		tk:     tk,
		signer: tkeysign.New(tk),
		conf:   t.conf,
	}, nil
}

type session struct {
	tk     *tkeyclient.TillitisKey
	signer tkeysign.Signer
	conf   Config
	pub    ed25519.PublicKey
}

func (s *session) Initialize() error {
	if s.isFirmwareMode() {
		le.Printf("TKey is in firmware mode.\n")
		if err := s.loadApp(); err != nil {
			return err
		}
	}

	if !s.isWantedApp() {
		return ErrWrongApp
	}

	pub, err := s.signer.GetPubkey()
	if err != nil {
		return fmt.Errorf("GetPubkey: %w", err)
	}
	s.pub = ed25519.PublicKey(pub)

	return nil
}

func (s *session) isFirmwareMode() bool {
	nameVer, err := s.tk.GetNameVersion()
	if err != nil {
		return false
	}
	// not caring about nameVer.Version
	return nameVer.Name0 == wantFWName0 &&
		nameVer.Name1 == wantFWName1
}

func (s *session) isWantedApp() bool {
	nameVer, err := s.signer.GetAppNameVersion()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			le.Printf("GetAppNameVersion: %s\n", err)
		}
		return false
	}
	// not caring about nameVer.Version
	return nameVer.Name0 == wantAppName0 &&
		nameVer.Name1 == wantAppName1
}

func (s *session) loadApp() error {
	if len(s.conf.AppBinary) == 0 {
		return ErrNoApp
	}

	var secret []byte
	if s.conf.USS != nil {
		udi, err := s.tk.GetUDI()
		if err != nil {
			return fmt.Errorf("GetUDI: %w", err)
		}

		secret, err = s.conf.USS(udi.String())
		if err != nil {
			return fmt.Errorf("Failed to get USS: %w", err)
		}
		defer clear(secret)
	}

	le.Printf("Loading signer app...\n")
	if err := s.tk.LoadApp(s.conf.AppBinary, secret); err != nil {
		return fmt.Errorf("LoadApp: %w", err)
	}
	le.Printf("Signer app loaded.\n")

	return nil
}

func (s *session) SignMessage(message []byte, path bip32path.Path) (*ethsig.Signature, error) {
	if s.pub == nil {
		return nil, errors.New("session not initialized")
	}

	data, err := payload(message, path)
	if err != nil {
		return nil, err
	}

	if s.conf.Notify != nil {
		timer := time.AfterFunc(touchNotifyDelay, func() {
			s.conf.Notify("Touch your TKey to confirm signing.")
		})
		defer timer.Stop()
	}

	le.Printf("Sign: user will have to touch the TKey\n")
	raw, err := s.signer.Sign(data)
	if err != nil {
		return nil, fmt.Errorf("Sign: %w", err)
	}
	defer clear(raw)

	if len(raw) != ed25519.SignatureSize || !ed25519.Verify(s.pub, data, raw) {
		return nil, ErrVerify
	}

	sig := &ethsig.Signature{V: SignatureVersion}
	copy(sig.R[:], raw[:ethsig.ComponentSize])
	copy(sig.S[:], raw[ethsig.ComponentSize:])

	return sig, nil
}

func (s *session) Close() error {
	if err := s.signer.Close(); err != nil {
		return fmt.Errorf("Close: %w", err)
	}
	return nil
}

// payload is what the signer app signs: the encoded path followed by
// the message.
func payload(message []byte, path bip32path.Path) ([]byte, error) {
	enc, err := path.Encode()
	if err != nil {
		return nil, fmt.Errorf("Encode: %w", err)
	}

	if len(enc)+len(message) > MaxSignSize {
		return nil, fmt.Errorf("message too large: %d bytes, max %d",
			len(message), MaxSignSize-len(enc))
	}

	return append(enc, message...), nil
}
