// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package sharedrecord

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	jsonpatch "github.com/evanphx/json-patch"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/telekom/aws-auth-operator/pkg/mapping"
)

// memoryDocument mirrors the parts of a ConfigMap a patch may touch.
type memoryDocument struct {
	Metadata struct {
		ResourceVersion string `json:"resourceVersion"`
	} `json:"metadata"`
	Data map[string]string `json:"data"`
}

// MemoryStore is an in-process Store. Patches are applied with the same
// JSON patch semantics the API server uses, so conflicts behave alike.
type MemoryStore struct {
	mu       sync.Mutex
	ref      string
	key      string
	exists   bool
	data     map[string]string
	version  int
	patches  int
	getErr   error
	patchErr error

	// BeforePatch, if set, runs before each patch is applied and without
	// the store lock held. Tests use it to simulate a concurrent writer.
	BeforePatch func(*MemoryStore)
}

var _ Store = &MemoryStore{}

// NewMemoryStore returns an existing, empty record named ref.
func NewMemoryStore(ref, key string) *MemoryStore {
	return &MemoryStore{ref: ref, key: key, exists: true, version: 1}
}

// SetText overwrites the field and bumps the version, like an external
// writer would.
func (m *MemoryStore) SetText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]string{}
	}
	m.data[m.key] = text
	m.exists = true
	m.version++
}

// Text returns the current field value and whether it is set.
func (m *MemoryStore) Text() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.data[m.key]
	return text, ok
}

// Remove deletes the whole record.
func (m *MemoryStore) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exists = false
	m.data = nil
}

// Patches returns the number of successfully applied patches.
func (m *MemoryStore) Patches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.patches
}

// FailNextGet makes the next Get return err, classified.
func (m *MemoryStore) FailNextGet(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// FailNextPatch makes the next ConditionalPatch return err, classified.
func (m *MemoryStore) FailNextPatch(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patchErr = err
}

// Ref returns the name the store was created with.
func (m *MemoryStore) Ref() string {
	return m.ref
}

func (m *MemoryStore) notFound() error {
	return apierrors.NewNotFound(schema.GroupResource{Resource: "configmaps"}, m.ref)
}

func (m *MemoryStore) Get(_ context.Context) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.getErr; err != nil {
		m.getErr = nil
		return Record{}, Classify("get", m.ref, err)
	}
	if !m.exists {
		return Record{}, Classify("get", m.ref, m.notFound())
	}
	text, ok := m.data[m.key]
	return Record{
		Ref:             m.ref,
		Key:             m.key,
		Text:            text,
		HasKey:          ok,
		HasData:         m.data != nil,
		ResourceVersion: strconv.Itoa(m.version),
	}, nil
}

func (m *MemoryStore) ConditionalPatch(_ context.Context, p mapping.Patch) error {
	if m.BeforePatch != nil {
		m.BeforePatch(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.patchErr; err != nil {
		m.patchErr = nil
		return Classify("patch", m.ref, err)
	}
	if !m.exists {
		return Classify("patch", m.ref, m.notFound())
	}

	raw, err := p.Bytes()
	if err != nil {
		return &Error{Op: "patch", Ref: m.ref, Kind: ErrFatal, Err: err}
	}
	decoded, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return &Error{Op: "patch", Ref: m.ref, Kind: ErrFatal, Err: fmt.Errorf("decode patch: %w", err)}
	}

	var doc memoryDocument
	doc.Metadata.ResourceVersion = strconv.Itoa(m.version)
	doc.Data = m.data
	current, err := json.Marshal(doc)
	if err != nil {
		return &Error{Op: "patch", Ref: m.ref, Kind: ErrFatal, Err: err}
	}
	patched, err := decoded.Apply(current)
	if err != nil {
		return Classify("patch", m.ref, err)
	}

	var next memoryDocument
	if err := json.Unmarshal(patched, &next); err != nil {
		return &Error{Op: "patch", Ref: m.ref, Kind: ErrFatal, Err: err}
	}
	m.data = next.Data
	m.version++
	m.patches++
	return nil
}
