// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/wait"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/telekom/aws-auth-operator/pkg/metrics"
)

// CRDWaiter provides functionality to wait for CRDs to become available and established.
type CRDWaiter struct {
	client client.Reader
	log    logr.Logger
}

// NewCRDWaiter creates a new CRDWaiter.
func NewCRDWaiter(c client.Reader, log logr.Logger) *CRDWaiter {
	return &CRDWaiter{
		client: c,
		log:    log.WithName("crd-waiter"),
	}
}

// WaitForCRDs waits for all specified CRDs to be established. The CRDs are
// polled concurrently and the first failure cancels the others.
// It returns an error if the context is cancelled or times out.
func (w *CRDWaiter) WaitForCRDs(ctx context.Context, gvks []schema.GroupVersionKind, timeout time.Duration) error {
	start := time.Now()
	defer func() {
		metrics.CRDWaitDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for _, gvk := range gvks {
		crdName := crdNameFromGVK(gvk)
		g.Go(func() error {
			w.log.Info("waiting for CRD to be established", "crd", crdName, "gvk", gvk.String())
			if err := w.waitForCRD(ctx, crdName); err != nil {
				return fmt.Errorf("failed waiting for CRD %s: %w", crdName, err)
			}
			w.log.Info("CRD is established", "crd", crdName)
			return nil
		})
	}
	return g.Wait()
}

// waitForCRD waits for a single CRD to be established.
func (w *CRDWaiter) waitForCRD(ctx context.Context, crdName string) error {
	backoff := wait.Backoff{
		Duration: 500 * time.Millisecond,
		Factor:   1.5,
		Jitter:   0.1,
		Steps:    30, // ~2.5 minutes with this backoff
		Cap:      10 * time.Second,
	}

	return wait.ExponentialBackoffWithContext(ctx, backoff, func(ctx context.Context) (bool, error) {
		crd := &apiextensionsv1.CustomResourceDefinition{}
		err := w.client.Get(ctx, types.NamespacedName{Name: crdName}, crd)
		if err != nil {
			if apierrors.IsNotFound(err) {
				w.log.V(1).Info("CRD not found, retrying...", "crd", crdName)
				return false, nil
			}
			w.log.V(1).Info("error fetching CRD, retrying...", "crd", crdName, "error", err.Error())
			return false, nil
		}

		if IsEstablished(crd) {
			return true, nil
		}
		w.log.V(1).Info("CRD not yet established, retrying...", "crd", crdName)
		return false, nil
	})
}

// IsEstablished reports whether the CRD has an Established=True condition.
func IsEstablished(crd *apiextensionsv1.CustomResourceDefinition) bool {
	for _, condition := range crd.Status.Conditions {
		if condition.Type == apiextensionsv1.Established {
			return condition.Status == apiextensionsv1.ConditionTrue
		}
	}
	return false
}

// crdNameFromGVK constructs the CRD name from a GroupVersionKind
// CRD names follow the pattern: <plural>.<group>
// For example: maproles.aws-auth.t-caas.telekom.com.
func crdNameFromGVK(gvk schema.GroupVersionKind) string {
	return fmt.Sprintf("%s.%s", pluralize(gvk.Kind), gvk.Group)
}

// pluralize converts a Kind to its lowercase plural form
// This is a simple heuristic that works for most Kubernetes resource kinds.
func pluralize(kind string) string {
	lower := strings.ToLower(kind)
	switch {
	case strings.HasSuffix(lower, "s"):
		return lower + "es"
	case strings.HasSuffix(lower, "y"):
		// Vowel + y: just add 's' (e.g., gateway -> gateways, key -> keys)
		// Consonant + y: replace with 'ies' (e.g., policy -> policies)
		if len(lower) >= 2 && strings.ContainsRune("aeiou", rune(lower[len(lower)-2])) {
			return lower + "s"
		}
		return lower[:len(lower)-1] + "ies"
	default:
		return lower + "s"
	}
}
