package k8s

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/validation"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// PatchOp is a single RFC 6902 operation.
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

var validPatchOps = map[string]bool{
	"add": true, "remove": true, "replace": true, "move": true, "copy": true, "test": true,
}

func jsonPatch(label string, ops []PatchOp) (client.Patch, error) {
	if len(ops) == 0 {
		return nil, invalid(label, "patch must contain at least one operation")
	}
	for i, op := range ops {
		if !validPatchOps[op.Op] {
			return nil, invalid(label, "patch operation %d: unsupported op %q", i, op.Op)
		}
		if !strings.HasPrefix(op.Path, "/") {
			return nil, invalid(label, "patch operation %d: path must start with /", i)
		}
	}
	data, err := json.Marshal(ops)
	if err != nil {
		return nil, invalid(label, "encode patch: %v", err)
	}
	return client.RawPatch(types.JSONPatchType, data), nil
}

// parseBracketList reads values stored as "[a, b, c]". A bare value without
// brackets is treated as a one element list.
func parseBracketList(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func formatBracketList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

// hasAll reports whether every key of want is present in got with the same value.
func hasAll(got, want map[string]string) bool {
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func decodeBase64(label, field, value string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, invalid(label, "%s must be base64 encoded", field)
	}
	return data, nil
}

func validateDNSSubdomain(label, field, value string) error {
	if errs := validation.IsDNS1123Subdomain(value); len(errs) > 0 {
		return invalid(label, "invalid %s %q: %s", field, value, strings.Join(errs, "; "))
	}
	return nil
}

func validateDNSLabel(label, field, value string) error {
	if errs := validation.IsDNS1123Label(value); len(errs) > 0 {
		return invalid(label, "invalid %s %q: %s", field, value, strings.Join(errs, "; "))
	}
	return nil
}

func validateNamespace(label, ns string) error {
	if ns == "" {
		return invalid(label, "namespace is required")
	}
	return validateDNSLabel(label, "namespace", ns)
}

func objectKey(ns, name string) client.ObjectKey {
	return client.ObjectKey{Namespace: ns, Name: name}
}

func describe(kind, ns, name string) string {
	return fmt.Sprintf("%s %s/%s", kind, ns, name)
}
