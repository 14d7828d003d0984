// Package awsauth contains the MapRole controller.
//
// MappingReconciler performs a single read-merge-patch pass against the
// aws-auth ConfigMap and reports an Outcome. MapRoleReconciler wraps it in
// the finalizer lifecycle of a MapRole, records status, events and metrics,
// and turns the Outcome into a requeue decision through a RequeuePolicy.
package awsauth
