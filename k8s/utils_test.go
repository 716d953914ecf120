package k8s

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseBracketList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"[]", nil},
		{"[github]", []string{"github"}},
		{"[github, gitlab]", []string{"github", "gitlab"}},
		{" [ github ,gitlab , ] ", []string{"github", "gitlab"}},
		{"bitbucket", []string{"bitbucket"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, parseBracketList(tt.in)); diff != "" {
				t.Errorf("parseBracketList(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestFormatBracketList(t *testing.T) {
	if got := formatBracketList([]string{"github", "gitlab"}); got != "[github, gitlab]" {
		t.Errorf("formatBracketList() = %q", got)
	}
	if got := formatBracketList(nil); got != "[]" {
		t.Errorf("formatBracketList(nil) = %q", got)
	}
	if diff := cmp.Diff([]string{"a", "b"}, parseBracketList(formatBracketList([]string{"a", "b"}))); diff != "" {
		t.Errorf("round trip mismatch: %s", diff)
	}
}

func TestJSONPatchValidation(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := jsonPatch(LabelDevWorkspace, nil)
		if StatusOf(err) != http.StatusBadRequest {
			t.Fatalf("expected 400, got %v", err)
		}
	})
	t.Run("bad op", func(t *testing.T) {
		_, err := jsonPatch(LabelDevWorkspace, []PatchOp{{Op: "merge", Path: "/spec"}})
		if StatusOf(err) != http.StatusBadRequest {
			t.Fatalf("expected 400, got %v", err)
		}
	})
	t.Run("bad path", func(t *testing.T) {
		_, err := jsonPatch(LabelDevWorkspace, []PatchOp{{Op: "add", Path: "spec"}})
		if StatusOf(err) != http.StatusBadRequest {
			t.Fatalf("expected 400, got %v", err)
		}
	})
	t.Run("ok", func(t *testing.T) {
		p, err := jsonPatch(LabelDevWorkspace, []PatchOp{{Op: "replace", Path: "/spec/started", Value: true}})
		if err != nil {
			t.Fatalf("jsonPatch() error: %v", err)
		}
		data, _ := p.Data(nil)
		if string(data) != `[{"op":"replace","path":"/spec/started","value":true}]` {
			t.Errorf("unexpected patch body %s", data)
		}
	})
}

func TestHasAll(t *testing.T) {
	got := map[string]string{"a": "1", "b": "2"}
	if !hasAll(got, map[string]string{"a": "1"}) {
		t.Error("expected subset to match")
	}
	if hasAll(got, map[string]string{"a": "2"}) {
		t.Error("expected value mismatch to fail")
	}
	if hasAll(nil, map[string]string{"a": "1"}) {
		t.Error("expected nil map to fail")
	}
}
