package softdelete

import (
	"testing"
	"time"
)

func TestGroupByEntity(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	records := []Record{
		{ItemID: "a", EntityType: "users", CreatedAt: now},
		{ItemID: "b", EntityType: "posts", CreatedAt: now},
		{ItemID: "c", EntityType: "users", CreatedAt: now},
	}

	groups := GroupByEntity(records)

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if len(groups["users"]) != 2 {
		t.Errorf("expected 2 user ids, got %v", groups["users"])
	}
	if len(groups["posts"]) != 1 {
		t.Errorf("expected 1 post id, got %v", groups["posts"])
	}
}

func TestGroupByEntity_DuplicateEntriesTolerated(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	records := []Record{
		{ItemID: "a", EntityType: "users", CreatedAt: now},
		{ItemID: "a", EntityType: "users", CreatedAt: now.Add(time.Minute)},
		{ItemID: "a", EntityType: "users", CreatedAt: now.Add(2 * time.Minute)},
	}

	groups := GroupByEntity(records)

	if len(groups["users"]) != 1 {
		t.Errorf("expected repeated soft-delete entries to collapse to one id, got %v", groups["users"])
	}
}

func TestGroupByEntity_Empty(t *testing.T) {
	groups := GroupByEntity(nil)
	if len(groups) != 0 {
		t.Errorf("expected no groups, got %v", groups)
	}
}

func TestWhereActive(t *testing.T) {
	if got := WhereActive(""); got != ActiveFilter {
		t.Errorf("expected bare active filter, got %q", got)
	}

	got := WhereActive("email = $1")
	want := "email = $1 AND " + ActiveFilter
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
