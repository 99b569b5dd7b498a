// SPDX-FileCopyrightText: 2026 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

// Package bip32path converts BIP-0032 derivation paths between their
// human readable form, like "m/44h/60h/11h/0/12", and the list of
// 32-bit indices a signing device expects.
package bip32path

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// HardenedKeyStart is the index of the first hardened key. A
	// hardened segment has this bit set.
	HardenedKeyStart = uint32(0x80000000)

	// Root is the first component of every path.
	Root = "m"

	// HardenedSuffix is the hardening marker used when formatting.
	// The alternative marker "'" is accepted when parsing.
	HardenedSuffix = "h"

	// DefaultPath is used when no path is given. It is deliberately
	// not one of the common wallet account paths.
	DefaultPath = "m/44h/60h/11h/0/12"

	// MaxDepth is the highest number of segments that Encode can
	// represent.
	MaxDepth = 255
)

var (
	ErrInvalidRoot   = errors.New("path must start with \"" + Root + "\"")
	ErrIndexOverflow = errors.New("index out of range")
)

// PathParseError describes a malformed derivation path.
type PathParseError struct {
	Path string
	// Position is the 1-based position of the offending component,
	// the root being 1.
	Position int
	Segment  string
	Err      error
}

func (e *PathParseError) Error() string {
	return fmt.Sprintf("invalid derivation path %q: component %d (%q): %v",
		e.Path, e.Position, e.Segment, e.Err)
}

func (e *PathParseError) Unwrap() error {
	return e.Err
}

// Path is a parsed BIP-0032 path: the indices following the root.
type Path []uint32

// Parse parses a path like "m/44h/60h/0h/0/12". Segments ending in "h"
// or "'" are hardened and must be below HardenedKeyStart; other segments
// may use the full 32-bit range.
func Parse(s string) (Path, error) {
	components := strings.Split(s, "/")

	if components[0] != Root {
		return nil, &PathParseError{Path: s, Position: 1, Segment: components[0], Err: ErrInvalidRoot}
	}

	path := make(Path, 0, len(components)-1)
	for i, component := range components[1:] {
		index, err := parseSegment(component)
		if err != nil {
			return nil, &PathParseError{Path: s, Position: i + 2, Segment: component, Err: err}
		}
		path = append(path, index)
	}

	return path, nil
}

func parseSegment(segment string) (uint32, error) {
	num, hardened := strings.CutSuffix(segment, HardenedSuffix)
	if !hardened {
		num, hardened = strings.CutSuffix(segment, "'")
	}

	n, err := strconv.ParseUint(num, 10, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, ErrIndexOverflow
		}
		return 0, fmt.Errorf("not a decimal index: %w", errors.Unwrap(err))
	}

	index := uint32(n)
	if hardened {
		if index >= HardenedKeyStart {
			return 0, fmt.Errorf("%w: hardened index %d exceeds %d",
				ErrIndexOverflow, index, HardenedKeyStart-1)
		}
		index |= HardenedKeyStart
	}

	return index, nil
}

// String formats the path, marking hardened segments with "h". Any
// index with the top bit set is formatted as hardened.
func (p Path) String() string {
	var sb strings.Builder

	sb.WriteString(Root)
	for _, index := range p {
		sb.WriteByte('/')
		if index >= HardenedKeyStart {
			sb.WriteString(strconv.FormatUint(uint64(index-HardenedKeyStart), 10))
			sb.WriteString(HardenedSuffix)
		} else {
			sb.WriteString(strconv.FormatUint(uint64(index), 10))
		}
	}

	return sb.String()
}

// MarshalText encodes the path in text form.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a text marshaled path.
func (p *Path) UnmarshalText(text []byte) error {
	path, err := Parse(string(text))
	if err != nil {
		return err
	}

	*p = path
	return nil
}

// Encode returns the device wire form of the path: one byte with the
// number of segments followed by each index as a big-endian uint32.
func (p Path) Encode() ([]byte, error) {
	if len(p) > MaxDepth {
		return nil, fmt.Errorf("path too deep: %d segments", len(p))
	}

	buf := make([]byte, 1+4*len(p))
	buf[0] = byte(len(p))
	for i, index := range p {
		binary.BigEndian.PutUint32(buf[1+4*i:], index)
	}

	return buf, nil
}
