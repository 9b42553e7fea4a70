package indexer

import (
	"testing"

	"github.com/flowd-org/ask/internal/types"
)

func TestBuildAliasIndexValidation(t *testing.T) {
	actions := []ActionInfo{{Name: "deploy"}, {Name: "db:migrate"}}
	aliases := []types.ActionAlias{
		{From: "dm", To: `db\migrate`},
		{From: ":plan", To: "deploy"},
		{From: "deploy", To: "db:migrate"},
		{From: "bad name", To: "deploy"},
		{From: "", To: "deploy"},
	}

	index, errs := BuildAliasIndex(actions, aliases)
	if len(index.Entries) != 1 || index.Entries[0].Name != "dm" || index.Entries[0].Target != "db:migrate" {
		t.Fatalf("unexpected entries %+v", index.Entries)
	}
	want := map[string]string{
		":plan":    "alias.reserved",
		"deploy":   "alias.name.conflict",
		"bad name": "alias.name.invalid",
	}
	for name, code := range want {
		if got := index.Invalid[name].Code; got != code {
			t.Fatalf("alias %q: expected %s, got %q", name, code, got)
		}
	}
	if len(errs) != 4 {
		t.Fatalf("expected 4 errors, got %+v", errs)
	}
}

func TestNormalizeAliasTarget(t *testing.T) {
	cases := map[string]string{
		"a/b":    "a:b",
		" a:b ":  "a:b",
		`a\b`:    "a:b",
		"/a//b/": "a:b",
		"single": "single",
	}
	for in, want := range cases {
		if got := normalizeAliasTarget(in); got != want {
			t.Fatalf("normalizeAliasTarget(%q) = %q, want %q", in, got, want)
		}
	}
}
