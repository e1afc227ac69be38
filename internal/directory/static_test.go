package directory

import (
	"context"
	"testing"
)

func TestStaticDirectory(t *testing.T) {
	dir, err := NewStaticDirectory([]byte(`{"organizations":{"org_1":[{"id":"user_1","fullName":"Dana","imageUrl":"https://img/d.png"},{"id":"user_2","primaryEmail":"lee@example.com"}]}}`))
	if err != nil {
		t.Fatalf("NewStaticDirectory() error = %v", err)
	}
	members, err := dir.ListOrganizationMembers(context.Background(), "org_1")
	if err != nil {
		t.Fatalf("ListOrganizationMembers() error = %v", err)
	}
	if len(members) != 2 || members[0].FullName != "Dana" || members[1].PrimaryEmail != "lee@example.com" {
		t.Fatalf("unexpected members: %+v", members)
	}

	members[0].FullName = "mutated"
	again, _ := dir.ListOrganizationMembers(context.Background(), "org_1")
	if again[0].FullName != "Dana" {
		t.Fatal("expected fixture to be isolated from caller mutation")
	}

	unknown, _ := dir.ListOrganizationMembers(context.Background(), "org_missing")
	if len(unknown) != 0 {
		t.Fatalf("expected no members for unknown org, got %v", unknown)
	}
}

func TestStaticDirectoryRejectsMemberWithoutID(t *testing.T) {
	if _, err := NewStaticDirectory([]byte(`{"organizations":{"org_1":[{"fullName":"Ghost"}]}}`)); err == nil {
		t.Fatal("expected error for member without id")
	}
}
