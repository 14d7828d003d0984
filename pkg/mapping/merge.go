// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mapping

import "slices"

// ApplyMerge returns the entry list with desired materialized in it.
//
// An entry with the same key is updated in place when its username or groups
// differ; otherwise desired is appended. If the list already holds several
// entries for the key, only the first one is considered and later
// duplicates are left untouched. The input slice is never modified.
func ApplyMerge(entries []Entry, desired Entry) ([]Entry, bool) {
	i := indexOf(entries, desired.Key())
	if i >= 0 && entries[i].Matches(desired) {
		return entries, false
	}

	next := slices.Clone(entries)
	if i < 0 {
		return append(next, Entry{
			RoleARN:  desired.RoleARN,
			Username: desired.Username,
			Groups:   slices.Clone(desired.Groups),
		}), true
	}

	updated := next[i]
	updated.Username = desired.Username
	updated.Groups = slices.Clone(desired.Groups)
	next[i] = updated
	return next, true
}

// CleanupMerge returns the entry list without the first entry keyed like
// desired. It reports false when no such entry exists. The input slice is
// never modified.
func CleanupMerge(entries []Entry, desired Entry) ([]Entry, bool) {
	i := indexOf(entries, desired.Key())
	if i < 0 {
		return entries, false
	}
	return slices.Delete(slices.Clone(entries), i, i+1), true
}
