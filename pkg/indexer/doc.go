// Package indexer registers controller-runtime field indexes on MapRole
// resources (by Spec.RoleARN) so that MapRoles claiming the same IAM role
// can be found without scanning the cache.
package indexer
