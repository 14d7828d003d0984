// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package v1

const (
	// MapRoleFinalizer blocks deletion of a MapRole until its entry has been
	// removed from the aws-auth ConfigMap.
	MapRoleFinalizer = "aws-auth.t-caas.telekom.com/finalizer"

	// MapRoleKind is the kind name of the MapRole resource.
	MapRoleKind = "MapRole"

	// MapRolePlural is the resource name of MapRole.
	MapRolePlural = "maproles"
)

// Defaults for the shared aws-auth ConfigMap consumed by the EKS authenticator.
const (
	DefaultAWSAuthNamespace = "kube-system"
	DefaultAWSAuthName      = "aws-auth"
	DefaultAWSAuthKey       = "mapRoles"
)
