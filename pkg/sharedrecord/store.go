// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package sharedrecord

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/telekom/aws-auth-operator/pkg/mapping"
)

// Record is a snapshot of the shared field.
type Record struct {
	// Ref identifies the record in messages.
	Ref string
	// Key is the name of the field inside the record.
	Key string
	// Text is the exact value of the field, or "" if HasKey is false.
	Text   string
	HasKey bool
	// HasData is false when the record has no fields at all.
	HasData         bool
	ResourceVersion string
}

// Patch returns the conditional patch that replaces the field with next,
// guarded by the snapshot.
func (r Record) Patch(next string) mapping.Patch {
	if r.HasKey {
		return mapping.BuildConditionalPatch(mapping.DataPath(r.Key), r.Text, next)
	}
	return mapping.BuildCreateFieldPatch(r.ResourceVersion, r.HasData, r.Key, next)
}

// Store gives access to the shared record.
type Store interface {
	// Ref identifies the record in messages.
	Ref() string
	// Get returns a fresh snapshot of the record.
	Get(ctx context.Context) (Record, error)
	// ConditionalPatch applies p atomically. If any test operation of p
	// fails, nothing is written and an ErrConflict error is returned.
	ConditionalPatch(ctx context.Context, p mapping.Patch) error
}

// ConfigMapStore is a Store backed by a ConfigMap data key.
type ConfigMapStore struct {
	reader client.Reader
	writer client.Writer
	name   types.NamespacedName
	key    string
}

var _ Store = &ConfigMapStore{}

// NewConfigMapStore returns a store for key in the given ConfigMap.
//
// reader should bypass the informer cache; a stale read only costs a
// conflict retry, but a cache also means watching every ConfigMap.
func NewConfigMapStore(reader client.Reader, writer client.Writer, name types.NamespacedName, key string) *ConfigMapStore {
	return &ConfigMapStore{reader: reader, writer: writer, name: name, key: key}
}

// Ref returns namespace/name of the ConfigMap.
func (s *ConfigMapStore) Ref() string {
	return s.name.String()
}

func (s *ConfigMapStore) Get(ctx context.Context) (Record, error) {
	cm := &corev1.ConfigMap{}
	if err := s.reader.Get(ctx, s.name, cm); err != nil {
		return Record{}, Classify("get", s.Ref(), err)
	}
	text, ok := cm.Data[s.key]
	return Record{
		Ref:             s.Ref(),
		Key:             s.key,
		Text:            text,
		HasKey:          ok,
		HasData:         cm.Data != nil,
		ResourceVersion: cm.ResourceVersion,
	}, nil
}

func (s *ConfigMapStore) ConditionalPatch(ctx context.Context, p mapping.Patch) error {
	data, err := p.Bytes()
	if err != nil {
		return &Error{Op: "patch", Ref: s.Ref(), Kind: ErrFatal, Err: err}
	}
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: s.name.Name, Namespace: s.name.Namespace},
	}
	if err := s.writer.Patch(ctx, cm, client.RawPatch(types.JSONPatchType, data)); err != nil {
		return Classify("patch", s.Ref(), fmt.Errorf("json patch: %w", err))
	}
	return nil
}
