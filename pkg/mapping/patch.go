// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mapping

import (
	"encoding/json"
	"fmt"
	"strings"

	"gomodules.xyz/jsonpatch/v2"
)

// JSON patch operation names, see RFC 6902.
const (
	opTest    = "test"
	opReplace = "replace"
	opAdd     = "add"
)

// Patch is a conditional RFC 6902 patch. Stores apply it atomically: if its
// test operation fails, nothing is written.
type Patch struct {
	ops []jsonpatch.Operation
}

// BuildConditionalPatch returns a patch that sets the value at path to next,
// but only if it is still exactly prior.
func BuildConditionalPatch(path, prior, next string) Patch {
	return Patch{ops: []jsonpatch.Operation{
		jsonpatch.NewOperation(opTest, path, prior),
		jsonpatch.NewOperation(opReplace, path, next),
	}}
}

// BuildCreateFieldPatch returns a patch that adds a missing data key. There
// is no prior value to test, so the object's resourceVersion guards the
// write instead. When the object has no data map at all, the map is created.
func BuildCreateFieldPatch(resourceVersion string, hasData bool, key, next string) Patch {
	guard := jsonpatch.NewOperation(opTest, "/metadata/resourceVersion", resourceVersion)
	if !hasData {
		return Patch{ops: []jsonpatch.Operation{
			guard,
			jsonpatch.NewOperation(opAdd, "/data", map[string]string{key: next}),
		}}
	}
	return Patch{ops: []jsonpatch.Operation{
		guard,
		jsonpatch.NewOperation(opAdd, DataPath(key), next),
	}}
}

// Operations returns a copy of the patch operations.
func (p Patch) Operations() []jsonpatch.Operation {
	return append([]jsonpatch.Operation(nil), p.ops...)
}

// Bytes renders the patch as a JSON document.
func (p Patch) Bytes() ([]byte, error) {
	if len(p.ops) == 0 {
		return nil, fmt.Errorf("empty patch")
	}
	b, err := json.Marshal(p.ops)
	if err != nil {
		return nil, fmt.Errorf("marshal patch: %w", err)
	}
	return b, nil
}

// DataPath returns the JSON pointer of a ConfigMap data key.
func DataPath(key string) string {
	return "/data/" + JSONPointerEscape(key)
}

// JSONPointerEscape escapes a single reference token as described in
// RFC 6901 section 4.
func JSONPointerEscape(token string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(token)
}
