// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mapping

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/onsi/gomega"
)

var (
	alice = Entry{RoleARN: "roleA", Username: "alice", Groups: []string{"g1"}}
	bob   = Entry{RoleARN: "roleB", Username: "bob", Groups: []string{"g2"}}
)

func TestApplyMerge(t *testing.T) {
	tests := []struct {
		name        string
		entries     []Entry
		desired     Entry
		want        []Entry
		wantChanged bool
	}{
		{
			name:        "append to empty list",
			entries:     []Entry{},
			desired:     alice,
			want:        []Entry{alice},
			wantChanged: true,
		},
		{
			name:        "append after existing entries",
			entries:     []Entry{bob},
			desired:     alice,
			want:        []Entry{bob, alice},
			wantChanged: true,
		},
		{
			name:        "already present",
			entries:     []Entry{bob, alice},
			desired:     alice,
			want:        []Entry{bob, alice},
			wantChanged: false,
		},
		{
			name:        "group order is not a difference",
			entries:     []Entry{{RoleARN: "roleA", Username: "alice", Groups: []string{"g2", "g1"}}},
			desired:     Entry{RoleARN: "roleA", Username: "alice", Groups: []string{"g1", "g2"}},
			want:        []Entry{{RoleARN: "roleA", Username: "alice", Groups: []string{"g2", "g1"}}},
			wantChanged: false,
		},
		{
			name:        "nil and empty groups are equal",
			entries:     []Entry{{RoleARN: "roleA", Username: "alice", Groups: []string{}}},
			desired:     Entry{RoleARN: "roleA", Username: "alice"},
			want:        []Entry{{RoleARN: "roleA", Username: "alice", Groups: []string{}}},
			wantChanged: false,
		},
		{
			name:        "username drift is replaced in place",
			entries:     []Entry{{RoleARN: "roleA", Username: "mallory", Groups: []string{"g1"}}, bob},
			desired:     alice,
			want:        []Entry{alice, bob},
			wantChanged: true,
		},
		{
			name:        "groups drift is replaced in place",
			entries:     []Entry{bob, {RoleARN: "roleA", Username: "alice", Groups: []string{"g1", "g9"}}},
			desired:     alice,
			want:        []Entry{bob, alice},
			wantChanged: true,
		},
		{
			name:        "only the first duplicate is updated",
			entries:     []Entry{{RoleARN: "roleA", Username: "old"}, {RoleARN: "roleA", Username: "older"}},
			desired:     alice,
			want:        []Entry{alice, {RoleARN: "roleA", Username: "older"}},
			wantChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := gomega.NewWithT(t)
			got, changed := ApplyMerge(tt.entries, tt.desired)
			g.Expect(changed).To(gomega.Equal(tt.wantChanged))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ApplyMerge() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyMergeKeepsUnmanagedKeys(t *testing.T) {
	g := gomega.NewWithT(t)

	existing := []Entry{{RoleARN: "roleA", Username: "old", Extra: map[string]any{"note": "keep"}}}
	got, changed := ApplyMerge(existing, alice)
	g.Expect(changed).To(gomega.BeTrue())
	g.Expect(got[0].Username).To(gomega.Equal("alice"))
	g.Expect(got[0].Extra).To(gomega.HaveKeyWithValue("note", "keep"))
}

func TestApplyMergeDoesNotMutateInput(t *testing.T) {
	g := gomega.NewWithT(t)

	existing := []Entry{{RoleARN: "roleA", Username: "old", Groups: []string{"x"}}, bob}
	snapshot := []Entry{{RoleARN: "roleA", Username: "old", Groups: []string{"x"}}, bob}

	desired := Entry{RoleARN: "roleA", Username: "alice", Groups: []string{"g1"}}
	got, _ := ApplyMerge(existing, desired)
	g.Expect(existing).To(gomega.Equal(snapshot))

	// The result must not alias the caller's groups.
	desired.Groups[0] = "changed"
	g.Expect(got[0].Groups).To(gomega.Equal([]string{"g1"}))
}

func TestApplyMergeIsIdempotent(t *testing.T) {
	g := gomega.NewWithT(t)

	inputs := [][]Entry{
		{},
		{bob},
		{{RoleARN: "roleA", Username: "mallory"}, bob},
		{bob, alice},
	}
	for _, entries := range inputs {
		once, _ := ApplyMerge(entries, alice)
		twice, changed := ApplyMerge(once, alice)
		g.Expect(changed).To(gomega.BeFalse())
		g.Expect(twice).To(gomega.Equal(once))
	}
}

func TestApplyMergeKeepsKeysUnique(t *testing.T) {
	g := gomega.NewWithT(t)

	entries := []Entry{bob}
	for _, d := range []Entry{alice, alice, {RoleARN: "roleA", Username: "x"}, bob} {
		entries, _ = ApplyMerge(entries, d)
	}
	g.Expect(DuplicateKeys(entries)).To(gomega.BeEmpty())
	g.Expect(entries).To(gomega.HaveLen(2))
}

func TestCleanupMerge(t *testing.T) {
	tests := []struct {
		name        string
		entries     []Entry
		want        []Entry
		wantChanged bool
	}{
		{name: "absent from empty list", entries: []Entry{}, want: []Entry{}, wantChanged: false},
		{name: "absent among others", entries: []Entry{bob}, want: []Entry{bob}, wantChanged: false},
		{name: "removes entry", entries: []Entry{bob, alice}, want: []Entry{bob}, wantChanged: true},
		{
			name:        "removes regardless of principal",
			entries:     []Entry{{RoleARN: "roleA", Username: "someone-else"}, bob},
			want:        []Entry{bob},
			wantChanged: true,
		},
		{
			name:        "removes only the first duplicate",
			entries:     []Entry{alice, bob, {RoleARN: "roleA", Username: "dup"}},
			want:        []Entry{bob, {RoleARN: "roleA", Username: "dup"}},
			wantChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := gomega.NewWithT(t)
			got, changed := CleanupMerge(tt.entries, alice)
			g.Expect(changed).To(gomega.Equal(tt.wantChanged))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("CleanupMerge() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCleanupUndoesApply(t *testing.T) {
	g := gomega.NewWithT(t)

	for _, entries := range [][]Entry{{}, {bob}, {bob, {RoleARN: "roleC", Username: "carol"}}} {
		applied, changed := ApplyMerge(entries, alice)
		g.Expect(changed).To(gomega.BeTrue())

		cleaned, changed := CleanupMerge(applied, alice)
		g.Expect(changed).To(gomega.BeTrue())
		g.Expect(cleaned).To(gomega.Equal(entries))
	}
}

func TestDuplicateKeys(t *testing.T) {
	g := gomega.NewWithT(t)

	g.Expect(DuplicateKeys(nil)).To(gomega.BeEmpty())
	g.Expect(DuplicateKeys([]Entry{alice, bob})).To(gomega.BeEmpty())
	g.Expect(DuplicateKeys([]Entry{alice, bob, alice, bob, alice})).To(gomega.Equal([]string{"roleA", "roleB"}))
}
