// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mapping

import (
	"k8s.io/apimachinery/pkg/util/sets"
)

// Entry is one item of the mapRoles list in the aws-auth ConfigMap.
type Entry struct {
	RoleARN  string   `yaml:"rolearn"`
	Username string   `yaml:"username"`
	Groups   []string `yaml:"groups"`

	// Extra keeps keys this operator does not manage so that entries written
	// by other tools survive a rewrite of the list.
	Extra map[string]any `yaml:",inline"`
}

// Key returns the identity of the entry.
func (e Entry) Key() string {
	return e.RoleARN
}

// Matches reports whether e already grants what desired asks for.
// Group order and repetition carry no meaning for the authenticator.
func (e Entry) Matches(desired Entry) bool {
	return e.Username == desired.Username && GroupsEqual(e.Groups, desired.Groups)
}

// GroupsEqual compares two group lists as sets.
func GroupsEqual(a, b []string) bool {
	return sets.New(a...).Equal(sets.New(b...))
}

// DuplicateKeys returns the role ARNs that occur more than once, in order
// of their second occurrence.
func DuplicateKeys(entries []Entry) []string {
	seen := sets.New[string]()
	reported := sets.New[string]()
	var dups []string
	for _, e := range entries {
		k := e.Key()
		if seen.Has(k) && !reported.Has(k) {
			dups = append(dups, k)
			reported.Insert(k)
		}
		seen.Insert(k)
	}
	return dups
}

func indexOf(entries []Entry, key string) int {
	for i := range entries {
		if entries[i].Key() == key {
			return i
		}
	}
	return -1
}
