// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// MapRoleSpec maps a role in AWS IAM to a Kubernetes username and groups.
type MapRoleSpec struct {
	// RoleARN is the ARN of the IAM role. It is treated as an opaque key and
	// identifies the entry this MapRole owns in the aws-auth ConfigMap.
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:MinLength=1
	// +kubebuilder:validation:XValidation:rule="self == oldSelf",message="rolearn is immutable"
	RoleARN string `json:"rolearn"`

	// Username is the Kubernetes username the role is mapped to.
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:MinLength=1
	Username string `json:"username"`

	// Groups are the Kubernetes groups the role is mapped to.
	// +kubebuilder:validation:Optional
	Groups []string `json:"groups,omitempty"`
}

// MapRoleStatus defines the observed state of MapRole.
type MapRoleStatus struct {
	// ObservedGeneration is the last observed generation of the resource.
	// This is used by kstatus to determine if the resource is current.
	// +kubebuilder:validation:Optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// LastOutcome is the outcome of the most recent reconciliation attempt.
	// +kubebuilder:validation:Optional
	LastOutcome string `json:"lastOutcome,omitempty"`

	// Conditions represent the latest available observations of the MapRole.
	// +kubebuilder:validation:Optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=mr
// +kubebuilder:printcolumn:name="Role ARN",type="string",JSONPath=".spec.rolearn"
// +kubebuilder:printcolumn:name="Username",type="string",JSONPath=".spec.username"
// +kubebuilder:printcolumn:name="Ready",type="string",JSONPath=".status.conditions[?(@.type=='Ready')].status",description="Whether the mapping is materialized"
// +kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp"

// MapRole is the Schema for the maproles API.
type MapRole struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   MapRoleSpec   `json:"spec,omitempty"`
	Status MapRoleStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// MapRoleList contains a list of MapRole.
type MapRoleList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []MapRole `json:"items"`
}

func init() {
	SchemeBuilder.Register(&MapRole{}, &MapRoleList{})
}

// GetConditions returns the conditions of the MapRole.
func (mr *MapRole) GetConditions() []metav1.Condition {
	return mr.Status.Conditions
}

// SetConditions sets the conditions of the MapRole.
func (mr *MapRole) SetConditions(conditions []metav1.Condition) {
	mr.Status.Conditions = conditions
}

// IsBeingDeleted reports whether the MapRole carries a deletion timestamp.
func (mr *MapRole) IsBeingDeleted() bool {
	return !mr.DeletionTimestamp.IsZero()
}
