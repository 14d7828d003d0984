// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
)

// EnsureCRD creates the CRD or brings the spec of an existing one in line
// with desired. Labels and annotations on desired are merged in.
func EnsureCRD(ctx context.Context, c client.Client, desired *apiextensionsv1.CustomResourceDefinition, log logr.Logger) error {
	crd := &apiextensionsv1.CustomResourceDefinition{}
	crd.Name = desired.Name

	result, err := controllerutil.CreateOrUpdate(ctx, c, crd, func() error {
		if crd.Labels == nil {
			crd.Labels = map[string]string{}
		}
		for k, v := range desired.Labels {
			crd.Labels[k] = v
		}
		if crd.Annotations == nil {
			crd.Annotations = map[string]string{}
		}
		for k, v := range desired.Annotations {
			crd.Annotations[k] = v
		}
		desired.Spec.DeepCopyInto(&crd.Spec)
		return nil
	})
	if err != nil {
		return fmt.Errorf("ensure CRD %s: %w", desired.Name, err)
	}
	log.Info("CRD ensured", "crd", desired.Name, "result", result)
	return nil
}
