// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mapping

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// encodeIndent is the indentation used when writing mapRoles. It matches
// the layout produced by eksctl and the AWS documentation.
const encodeIndent = 2

// DecodeError reports a mapRoles value that is not a YAML list of entries.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed mapRoles: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses a mapRoles value into its entries, preserving order.
// Blank text decodes to an empty list.
func Decode(text string) ([]Entry, error) {
	entries := []Entry{}
	if strings.TrimSpace(text) == "" {
		return entries, nil
	}
	if err := yaml.Unmarshal([]byte(text), &entries); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if entries == nil {
		// "null" and "~" are valid YAML for an absent list.
		entries = []Entry{}
	}
	return entries, nil
}

// Encode renders entries as a mapRoles value. The output is deterministic:
// fields are written in a fixed order and unmanaged keys are sorted, so
// Encode(Decode(Encode(x))) == Encode(x).
func Encode(entries []Entry) (string, error) {
	if entries == nil {
		entries = []Entry{}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(encodeIndent)
	if err := enc.Encode(entries); err != nil {
		return "", fmt.Errorf("encode mapRoles: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode mapRoles: %w", err)
	}
	return buf.String(), nil
}
