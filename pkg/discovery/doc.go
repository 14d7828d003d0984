// Package discovery waits for CustomResourceDefinitions to become
// established before controllers start watching them, and optionally
// installs the operator's own CRD.
package discovery
