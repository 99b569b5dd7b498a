// SPDX-FileCopyrightText: 2022 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/twpayne/go-pinentry"
)

func getSecret(udi string, pinentryProgram string) ([]byte, error) {
	// Showing the UDI so the user knows which TKey is asked about.
	desc := fmt.Sprintf("%s needs the User Supplied Secret\n"+
		"(USS) your keys are derived with, for the TKey with number:\n"+
		"%v", progname, udi)

	opts := []pinentry.ClientOption{
		pinentry.WithBinaryNameFromGnuPGAgentConf(),
		pinentry.WithGPGTTY(),
		pinentry.WithDesc(desc),
		// pinentry-gnome3 uses Prompt as a title
		pinentry.WithPrompt("User Supplied Secret"),
		pinentry.WithTitle(progname),
	}

	if pinentryProgram != "" {
		opts = append(opts, pinentry.WithBinaryName(pinentryProgram))
	} else if runtime.GOOS == "windows" {
		if found := findWindowsPinentry(); found != "" {
			le.Printf("Found gpgconf and got pinentry program: %s\n", found)
			opts = append(opts, pinentry.WithBinaryName(found))
		}
	}

	client, err := pinentry.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("pinentry.NewClient: %w", err)
	}
	defer client.Close()

	pin, _, err := client.GetPIN()
	if err != nil {
		return nil, fmt.Errorf("pinentry GetPin: %w", err)
	}
	return []byte(pin), nil
}

// findWindowsPinentry looks for the pinentry of a Gpg4win installed
// next to gpgconf.exe, then for one in PATH.
func findWindowsPinentry() string {
	if gpgconf, err := exec.LookPath("gpgconf.exe"); err == nil {
		gpgDir := filepath.Dir(gpgconf)
		if filepath.Base(gpgDir) == "bin" {
			gpgDir = filepath.Dir(gpgDir)
		}

		for _, rel := range []string{`..\Gpg4win\bin\pinentry.exe`, `..\Gpg4win\pinentry.exe`} {
			candidate := filepath.Join(gpgDir, rel)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
			le.Printf("Tried %s\n", candidate)
		}
	} else {
		le.Printf("LookPath: %s\n", err)
	}

	for _, exe := range []string{`pinentry.exe`, `pinentry-basic.exe`} {
		if candidate, err := exec.LookPath(exe); err == nil {
			return candidate
		}
	}

	return ""
}
