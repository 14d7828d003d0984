// Package mapping holds the pure parts of aws-auth reconciliation: the
// mapRoles codec, the apply/cleanup merge of a desired entry into the entry
// list, and the conditional JSON patch that swaps the serialized list in
// place only if nobody changed it since it was read.
//
// Nothing in this package performs I/O.
package mapping
