// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package sigkeys

import (
	"encoding/json"
)

// Metadata is the public description of a signature source: what was
// signed and with which key.
type Metadata struct {
	Message        string `json:"message"`
	DerivationPath string `json:"derivation_path"`
}

// JSON renders m as a compact JSON object. It is used as the label of
// derived identities.
func (m Metadata) JSON() string {
	// A struct of two strings always marshals.
	b, _ := json.Marshal(m)
	return string(b)
}
