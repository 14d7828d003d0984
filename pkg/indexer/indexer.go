/*
Copyright © 2026 Deutsche Telekom AG.
*/
package indexer

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/manager"

	awsauthv1 "github.com/telekom/aws-auth-operator/api/awsauth/v1"
)

const (
	// MapRoleRoleARNField is the field index for MapRole.Spec.RoleARN.
	MapRoleRoleARNField = ".spec.rolearn"
)

// SetupIndexes registers field indexes on the manager's cache for efficient lookups.
// This should be called before starting the manager.
func SetupIndexes(ctx context.Context, mgr manager.Manager) error {
	// Index MapRole by Spec.RoleARN to find MapRoles sharing an aws-auth entry
	if err := mgr.GetFieldIndexer().IndexField(
		ctx,
		&awsauthv1.MapRole{},
		MapRoleRoleARNField,
		MapRoleRoleARNFunc,
	); err != nil {
		return fmt.Errorf("failed to create index for MapRole.Spec.RoleARN: %w", err)
	}

	return nil
}

// MapRoleRoleARNFunc extracts the index value for the rolearn field.
// Exported for testing and fake client setup.
func MapRoleRoleARNFunc(obj client.Object) []string {
	mr, ok := obj.(*awsauthv1.MapRole)
	if !ok || mr.Spec.RoleARN == "" {
		return nil
	}
	return []string{mr.Spec.RoleARN}
}
