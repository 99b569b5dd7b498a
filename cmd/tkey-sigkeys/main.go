// SPDX-FileCopyrightText: 2022 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/tillitis/tkeyclient"

	"github.com/tillitis/tkey-sigkeys/bip32path"
	"github.com/tillitis/tkey-sigkeys/hwsigner"
	"github.com/tillitis/tkey-sigkeys/hwsigner/tkey"
	"github.com/tillitis/tkey-sigkeys/internal/util"
)

// Use when printing err/diag msgs
var le = log.New(os.Stderr, "", 0)

const progname = "tkey-sigkeys"

var version string

type Actions struct {
	ShowInfo      bool
	ShowPubkey    bool
	ShowScalar    bool
	ShowRecipient bool
	ExportSSH     string
	SaveSignature string
	Encrypt       bool
	Decrypt       bool
	AgentPath     string
}

func (a Actions) count() int {
	n := 0
	for _, set := range []bool{
		a.ShowInfo, a.ShowPubkey, a.ShowScalar, a.ShowRecipient,
		a.ExportSSH != "", a.SaveSignature != "", a.Encrypt, a.Decrypt,
		a.AgentPath != "",
	} {
		if set {
			n++
		}
	}
	return n
}

func main() {
	exit := func(code int) {
		os.Exit(code)
	}

	if version == "" {
		version = readBuildInfo()
	}

	var conf SourceConfig
	var actions Actions
	var listPortsOnly, verbose, versionOnly, helpOnly bool
	pflag.CommandLine.SetOutput(os.Stderr)
	pflag.CommandLine.SortFlags = false
	pflag.StringVarP(&conf.DerivationPath, "path", "P", bip32path.DefaultPath,
		"Derivation `PATH` the device signs with, like m/44h/60h/11h/0/12. Hardened segments end in h or '.")
	pflag.StringVarP(&conf.Message, "message", "m", hwsigner.DefaultMessage,
		"`MESSAGE` the device signs. A different message gives different keys.")
	pflag.BoolVarP(&actions.ShowInfo, "show-info", "i", false,
		"Output the message and derivation path as JSON.")
	pflag.BoolVarP(&actions.ShowPubkey, "show-pubkey", "p", false,
		"Output the derived ssh-ed25519 public key.")
	pflag.BoolVar(&actions.ShowScalar, "show-scalar", false,
		"Output the derived Ed25519 scalar in hex. This is secret.")
	pflag.BoolVar(&actions.ShowRecipient, "show-recipient", false,
		"Output the age recipient of the derived identity.")
	pflag.StringVar(&actions.ExportSSH, "export-ssh", "",
		"Write the derived OpenSSH private key to `FILE` and the public key to FILE.pub.")
	pflag.StringVar(&actions.SaveSignature, "save-signature", "",
		"Write the device signature, with its message and path, to `FILE` for later use with --signature-file. Anyone with the file can derive the keys.")
	pflag.BoolVarP(&actions.Encrypt, "encrypt", "e", false,
		"Encrypt stdin to the derived age recipient, writing armored output to stdout.")
	pflag.BoolVarP(&actions.Decrypt, "decrypt", "d", false,
		"Decrypt stdin with the derived age identity, writing to stdout.")
	pflag.StringVarP(&actions.AgentPath, "agent-path", "a", "",
		fmt.Sprintf("Start an SSH agent with the derived key, setting the `PATH` to the UNIX-domain socket that it should listen on. On Windows, a Named Pipe at '%s\\PATH' will be used.", agentPathPrefix))
	pflag.BoolVarP(&listPortsOnly, "list-ports", "L", false,
		"List possible serial ports to use with --port.")
	pflag.StringVar(&conf.Port.Path, "port", "",
		"Set serial port device `PATH`. If this is not passed, auto-detection will be attempted.")
	pflag.IntVar(&conf.Port.Speed, "speed", tkeyclient.SerialSpeed,
		"Set serial port speed in `BPS` (bits per second).")
	pflag.StringVar(&conf.AppPath, "app", "",
		"Signer app `FILE` to load if the TKey is in firmware mode.")
	pflag.BoolVar(&conf.Uss.EnterManually, "uss", false,
		"Enable typing of a phrase to be hashed as the User Supplied Secret. The USS is loaded onto the TKey along with the app itself. A different USS results in different keys.")
	pflag.StringVar(&conf.Uss.Path, "uss-file", "",
		"Read `FILE` and hash its contents as the USS. Use '-' (dash) to read from stdin. The full contents are hashed unmodified (e.g. newlines are not stripped).")
	pflag.StringVar(&conf.Uss.PinentryPath, "pinentry", "",
		"Pinentry `PROGRAM` for use by --uss. The default is found by looking in your gpg-agent.conf for pinentry-program, or 'pinentry' if not found there.")
	pflag.StringVar(&conf.MnemonicPath, "mnemonic-file", "",
		"Sign with the BIP-39 mnemonic in `FILE` instead of a TKey. Use '-' (dash) to read from stdin.")
	pflag.BoolVar(&conf.Passphrase, "passphrase", false,
		"Ask for a BIP-39 passphrase for --mnemonic-file.")
	pflag.StringVar(&conf.SignaturePath, "signature-file", "",
		"Derive keys from the signature in `FILE`, saved with --save-signature, instead of signing. Its message and path are used; --path and --message must match them if given.")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "Output diagnostics from device communication.")
	pflag.BoolVar(&versionOnly, "version", false, "Output version information.")
	pflag.BoolVar(&helpOnly, "help", false, "Output this help.")
	pflag.Usage = func() {
		desc := fmt.Sprintf(`Usage: %[1]s -i|-p|-e|-d|-a|-L|--show-scalar|--show-recipient|--export-ssh FILE|--save-signature FILE [flags...]

%[1]s derives keys from a signature made by a Tillitis TKey USB stick. The
stick signs a fixed message with a derivation path, and the SHA-256 hash of the
signature is the seed of an Ed25519 key. The same stick, USS, path and message
always give the same keys: an SSH key, an age identity for encryption, and a
raw Ed25519 scalar.

To make the TKey sign, pass the signer app binary with --app. It is loaded
onto the stick if it is in firmware mode. The stick will flash green when it
must be touched to complete the signature.`, progname)
		le.Printf("%s\n\n%s", desc,
			pflag.CommandLine.FlagUsagesWrapped(86))
	}
	pflag.Parse()
	conf.PathSet = pflag.CommandLine.Changed("path")
	conf.MessageSet = pflag.CommandLine.Changed("message")

	if pflag.NArg() > 0 {
		le.Printf("Unexpected argument: %s\n\n", strings.Join(pflag.Args(), " "))
		pflag.Usage()
		exit(2)
	}

	if helpOnly {
		pflag.Usage()
		exit(0)
	}

	if versionOnly {
		fmt.Printf("%s %s\n", progname, version)
		exit(0)
	}

	if !verbose {
		hwsigner.SilenceLogging()
		tkey.SilenceLogging()
	}

	if listPortsOnly {
		if actions.count() > 0 {
			le.Printf("Pass only one action.\n\n")
			pflag.Usage()
			exit(2)
		}
		n, err := printPorts()
		if err != nil {
			le.Printf("%v\n", err)
			exit(1)
		} else if n == 0 {
			exit(1)
		}
		// Successful only if we found some port
		exit(0)
	}

	switch actions.count() {
	case 0:
		le.Printf("Please pass an action.\n\n")
		pflag.Usage()
		exit(2)
	case 1:
	default:
		le.Printf("Pass only one action.\n\n")
		pflag.Usage()
		exit(2)
	}

	if conf.Uss.EnterManually && conf.Uss.Path != "" {
		le.Printf("Pass only one of --uss or --uss-file.\n\n")
		pflag.Usage()
		exit(2)
	}

	if conf.MnemonicPath != "" && conf.SignaturePath != "" {
		le.Printf("Pass only one of --mnemonic-file or --signature-file.\n\n")
		pflag.Usage()
		exit(2)
	}

	if _, err := bip32path.Parse(conf.DerivationPath); err != nil {
		le.Printf("%s\n", err)
		exit(2)
	}

	if actions.AgentPath != "" {
		var err error
		actions.AgentPath, err = resolveAgentPath(actions.AgentPath)
		if err != nil {
			le.Printf("%s\n", err)
			exit(1)
		}
	}

	source, cleanup, err := openSource(conf)
	if err != nil {
		le.Printf("%s\n", err)
		exit(1)
	}

	prevExitFunc := exit
	exit = func(code int) {
		cleanup()
		if actions.AgentPath != "" {
			_ = os.Remove(actions.AgentPath)
		}
		prevExitFunc(code)
	}

	handleSignals(func() {
		exit(1)
	}, os.Interrupt, syscall.SIGTERM)

	if err := run(actions, source, os.Stdin, os.Stdout); err != nil {
		le.Printf("%s\n", err)
		exit(1)
	}

	exit(0)
}

// resolveAgentPath returns the absolute path, or pipe name, of the
// agent after checking that no agent is already there.
func resolveAgentPath(agentPath string) (string, error) {
	if runtime.GOOS == "windows" {
		agentPath = filepath.Join(agentPathPrefix, agentPath)
	} else {
		var err error
		agentPath, err = filepath.Abs(agentPath)
		if err != nil {
			return "", fmt.Errorf("Failed to resolve socket path: %w", err)
		}
	}

	_, err := os.Stat(agentPath)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("Is an agent already running? Path %s exists.", agentPath)
	}

	return agentPath, nil
}

func readBuildInfo() string {
	version := "devel without BuildInfo"
	if info, ok := debug.ReadBuildInfo(); ok {
		sb := strings.Builder{}
		sb.WriteString("devel")
		for _, setting := range info.Settings {
			if strings.HasPrefix(setting.Key, "vcs") {
				sb.WriteString(fmt.Sprintf(" %s=%s", setting.Key, setting.Value))
			}
		}
		version = sb.String()
	}
	return version
}

func printPorts() (int, error) {
	ports, err := util.GetSerialPorts()
	if err != nil {
		return 0, fmt.Errorf("Failed to list ports: %w", err)
	}
	if len(ports) == 0 {
		le.Printf("No TKey serial ports found.\n")
	} else {
		le.Printf("TKey serial ports (on stdout):\n")
		for _, p := range ports {
			fmt.Fprintf(os.Stdout, "%s serialNumber:%s\n", p.DevPath, p.SerialNumber)
		}
	}
	return len(ports), nil
}

func handleSignals(action func(), sig ...os.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sig...)
	go func() {
		for {
			<-ch
			action()
		}
	}()
}
