// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
)

// CRDName is the name of the MapRole CustomResourceDefinition.
var CRDName = MapRolePlural + "." + GroupVersion.Group

// CustomResourceDefinition returns the MapRole CRD, equivalent to the
// manifest rendered from the kubebuilder markers on MapRole.
func CustomResourceDefinition() *apiextensionsv1.CustomResourceDefinition {
	nonEmpty := apiextensionsv1.JSONSchemaProps{Type: "string", MinLength: ptr.To[int64](1)}

	spec := apiextensionsv1.JSONSchemaProps{
		Type:        "object",
		Description: "MapRoleSpec maps a role in AWS IAM to a Kubernetes username and groups.",
		Required:    []string{"rolearn", "username"},
		Properties: map[string]apiextensionsv1.JSONSchemaProps{
			"rolearn":  withDescription(immutable(nonEmpty, "rolearn is immutable"), "RoleARN is the ARN of the IAM role."),
			"username": withDescription(nonEmpty, "Username is the Kubernetes username the role is mapped to."),
			"groups": {
				Type:        "array",
				Description: "Groups are the Kubernetes groups the role is mapped to.",
				Items: &apiextensionsv1.JSONSchemaPropsOrArray{
					Schema: &apiextensionsv1.JSONSchemaProps{Type: "string"},
				},
			},
		},
	}

	condition := apiextensionsv1.JSONSchemaProps{
		Type:     "object",
		Required: []string{"lastTransitionTime", "message", "reason", "status", "type"},
		Properties: map[string]apiextensionsv1.JSONSchemaProps{
			"lastTransitionTime": {Type: "string", Format: "date-time"},
			"message":            {Type: "string", MaxLength: ptr.To[int64](32768)},
			"observedGeneration": {Type: "integer", Format: "int64", Minimum: ptr.To[float64](0)},
			"reason":             {Type: "string", MaxLength: ptr.To[int64](1024), MinLength: ptr.To[int64](1)},
			"status":             {Type: "string", Enum: []apiextensionsv1.JSON{{Raw: []byte(`"True"`)}, {Raw: []byte(`"False"`)}, {Raw: []byte(`"Unknown"`)}}},
			"type":               {Type: "string", MaxLength: ptr.To[int64](316)},
		},
	}

	status := apiextensionsv1.JSONSchemaProps{
		Type:        "object",
		Description: "MapRoleStatus defines the observed state of MapRole.",
		Properties: map[string]apiextensionsv1.JSONSchemaProps{
			"observedGeneration": {Type: "integer", Format: "int64"},
			"lastOutcome":        {Type: "string"},
			"conditions": {
				Type:         "array",
				XListType:    ptr.To("map"),
				XListMapKeys: []string{"type"},
				Items:        &apiextensionsv1.JSONSchemaPropsOrArray{Schema: &condition},
			},
		},
	}

	return &apiextensionsv1.CustomResourceDefinition{
		TypeMeta: metav1.TypeMeta{
			APIVersion: apiextensionsv1.SchemeGroupVersion.String(),
			Kind:       "CustomResourceDefinition",
		},
		ObjectMeta: metav1.ObjectMeta{Name: CRDName},
		Spec: apiextensionsv1.CustomResourceDefinitionSpec{
			Group: GroupVersion.Group,
			Names: apiextensionsv1.CustomResourceDefinitionNames{
				Kind:       MapRoleKind,
				ListKind:   MapRoleKind + "List",
				Plural:     MapRolePlural,
				Singular:   "maprole",
				ShortNames: []string{"mr"},
			},
			Scope: apiextensionsv1.NamespaceScoped,
			Versions: []apiextensionsv1.CustomResourceDefinitionVersion{{
				Name:    GroupVersion.Version,
				Served:  true,
				Storage: true,
				Subresources: &apiextensionsv1.CustomResourceSubresources{
					Status: &apiextensionsv1.CustomResourceSubresourceStatus{},
				},
				AdditionalPrinterColumns: []apiextensionsv1.CustomResourceColumnDefinition{
					{Name: "Role ARN", Type: "string", JSONPath: ".spec.rolearn"},
					{Name: "Username", Type: "string", JSONPath: ".spec.username"},
					{Name: "Ready", Type: "string", JSONPath: ".status.conditions[?(@.type=='Ready')].status"},
					{Name: "Age", Type: "date", JSONPath: ".metadata.creationTimestamp"},
				},
				Schema: &apiextensionsv1.CustomResourceValidation{
					OpenAPIV3Schema: &apiextensionsv1.JSONSchemaProps{
						Type:        "object",
						Description: "MapRole is the Schema for the maproles API.",
						Properties: map[string]apiextensionsv1.JSONSchemaProps{
							"apiVersion": {Type: "string"},
							"kind":       {Type: "string"},
							"metadata":   {Type: "object"},
							"spec":       spec,
							"status":     status,
						},
					},
				},
			}},
		},
	}
}

func immutable(p apiextensionsv1.JSONSchemaProps, msg string) apiextensionsv1.JSONSchemaProps {
	p.XValidations = apiextensionsv1.ValidationRules{{Rule: "self == oldSelf", Message: msg}}
	return p
}

func withDescription(p apiextensionsv1.JSONSchemaProps, desc string) apiextensionsv1.JSONSchemaProps {
	p.Description = desc
	return p
}
