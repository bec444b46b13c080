package services

import (
	"context"
	"testing"

	"github.com/formdesk/server/internal/config"
	"github.com/formdesk/server/internal/models"
)

func TestCan(t *testing.T) {
	tests := []struct {
		role   Role
		action Action
		policy config.LockPolicy
		want   bool
	}{
		{RoleOwner, ActionDelete, config.LockPolicyAnyCollaborator, true},
		{RoleEditor, ActionDelete, config.LockPolicyAnyCollaborator, false},
		{RoleEditor, ActionManage, config.LockPolicyAnyCollaborator, false},
		{RoleEditor, ActionEdit, config.LockPolicyAnyCollaborator, true},
		{RoleViewer, ActionEdit, config.LockPolicyAnyCollaborator, false},
		{RoleViewer, ActionViewResponses, config.LockPolicyAnyCollaborator, true},
		{RoleNone, ActionViewResponses, config.LockPolicyAnyCollaborator, false},
		{RoleViewer, ActionToggleLock, config.LockPolicyAnyCollaborator, true},
		{RoleViewer, ActionToggleLock, config.LockPolicyOwnerOnly, false},
		{RoleEditor, ActionToggleLock, config.LockPolicyOwnerOnly, false},
		{RoleOwner, ActionToggleLock, config.LockPolicyOwnerOnly, true},
		{RoleNone, ActionRead, config.LockPolicyAnyCollaborator, true},
		{RoleNone, ActionSubmit, config.LockPolicyAnyCollaborator, true},
		{RoleOwner, Action("unknown"), config.LockPolicyAnyCollaborator, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.action)+"/"+string(tt.policy), func(t *testing.T) {
			if got := Can(tt.role, tt.action, tt.policy); got != tt.want {
				t.Fatalf("Can(%s, %s, %s) = %v, want %v", tt.role, tt.action, tt.policy, got, tt.want)
			}
		})
	}
}

func TestAccessService_ResolveRole(t *testing.T) {
	ctx := context.Background()
	db := setupServiceTestDB(t)
	service := NewAccessService(db, "")

	owner := createTestUser(t, db, "owner@test.com", "Owner")
	editor := createTestUser(t, db, "editor@test.com", "Editor")
	viewer := createTestUser(t, db, "viewer@test.com", "Viewer")
	stranger := createTestUser(t, db, "stranger@test.com", "Stranger")
	form := createTestForm(t, db, owner, "Survey")
	addTestCollaborator(t, db, form, editor, models.CollaboratorRoleEditor)
	addTestCollaborator(t, db, form, viewer, models.CollaboratorRoleViewer)

	if service.LockPolicy != config.LockPolicyAnyCollaborator {
		t.Fatalf("expected default lock policy, got %q", service.LockPolicy)
	}

	tests := []struct {
		name   string
		formID uint
		userID *uint
		want   Role
	}{
		{"owner", form.ID, &owner.ID, RoleOwner},
		{"editor", form.ID, &editor.ID, RoleEditor},
		{"viewer", form.ID, &viewer.ID, RoleViewer},
		{"stranger", form.ID, &stranger.ID, RoleNone},
		{"anonymous", form.ID, nil, RoleNone},
		{"missing form", form.ID + 100, &owner.ID, RoleNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := service.ResolveRole(ctx, tt.formID, tt.userID); got != tt.want {
				t.Fatalf("ResolveRole() = %s, want %s", got, tt.want)
			}
		})
	}

	t.Run("derived checks", func(t *testing.T) {
		if service.HasAccess(ctx, form.ID, nil) {
			t.Fatal("expected anonymous caller to have no access")
		}
		if !service.HasAccess(ctx, form.ID, &viewer.ID) {
			t.Fatal("expected viewer to have access")
		}
		if !service.CanEdit(ctx, form.ID, &editor.ID) || service.CanEdit(ctx, form.ID, &viewer.ID) {
			t.Fatal("expected only editor and owner to edit")
		}
		if service.CanManage(ctx, form.ID, &editor.ID) || !service.CanManage(ctx, form.ID, &owner.ID) {
			t.Fatal("expected only owner to manage")
		}
		if !service.CanToggleLock(ctx, form.ID, &viewer.ID) {
			t.Fatal("expected viewer to toggle lock under the default policy")
		}
	})

	t.Run("owner-only lock policy", func(t *testing.T) {
		strict := NewAccessService(db, config.LockPolicyOwnerOnly)
		if strict.CanToggleLock(ctx, form.ID, &editor.ID) {
			t.Fatal("expected editor to be denied lock toggle")
		}
		if !strict.CanToggleLock(ctx, form.ID, &owner.ID) {
			t.Fatal("expected owner to toggle lock")
		}
	})
}

func TestAccessService_Authorize(t *testing.T) {
	ctx := context.Background()
	db := setupServiceTestDB(t)
	service := NewAccessService(db, config.LockPolicyAnyCollaborator)

	owner := createTestUser(t, db, "owner@test.com", "Owner")
	editor := createTestUser(t, db, "editor@test.com", "Editor")
	stranger := createTestUser(t, db, "stranger@test.com", "Stranger")

	private := createTestForm(t, db, owner, "Private")
	addTestCollaborator(t, db, private, editor, models.CollaboratorRoleEditor)

	public := createTestForm(t, db, owner, "Public")
	db.Model(public).Update("allow_unauthenticated", true)

	locked := createTestForm(t, db, owner, "Locked")
	db.Model(locked).Updates(map[string]interface{}{"is_locked": true, "allow_unauthenticated": true})

	tests := []struct {
		name   string
		formID uint
		userID *uint
		action Action
		want   ErrorKind
		ok     bool
	}{
		{"missing form before auth", private.ID + 1000, nil, ActionRead, KindNotFound, false},
		{"anonymous read of private form", private.ID, nil, ActionRead, KindAuthRequired, false},
		{"anonymous submit to private form", private.ID, nil, ActionSubmit, KindAuthRequired, false},
		{"anonymous read of public form", public.ID, nil, ActionRead, 0, true},
		{"anonymous submit to public form", public.ID, nil, ActionSubmit, 0, true},
		{"anonymous responses of public form", public.ID, nil, ActionViewResponses, KindAuthRequired, false},
		{"locked before auth", locked.ID, nil, ActionSubmit, KindLocked, false},
		{"locked form still readable", locked.ID, nil, ActionRead, 0, true},
		{"stranger reads private form", private.ID, &stranger.ID, ActionRead, 0, true},
		{"stranger views responses", private.ID, &stranger.ID, ActionViewResponses, KindAccessDenied, false},
		{"editor edits", private.ID, &editor.ID, ActionEdit, 0, true},
		{"editor deletes", private.ID, &editor.ID, ActionDelete, KindAccessDenied, false},
		{"editor manages", private.ID, &editor.ID, ActionManage, KindAccessDenied, false},
		{"owner deletes", private.ID, &owner.ID, ActionDelete, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form, _, err := service.Authorize(ctx, tt.formID, tt.userID, tt.action)
			if tt.ok {
				if err != nil {
					t.Fatalf("expected access, got %v", err)
				}
				if form == nil || form.ID != tt.formID {
					t.Fatalf("expected form %d, got %+v", tt.formID, form)
				}
				return
			}
			if KindOf(err) != tt.want {
				t.Fatalf("expected %s, got %v", tt.want, err)
			}
		})
	}

	t.Run("owner-only messages", func(t *testing.T) {
		_, _, err := service.Authorize(ctx, private.ID, &editor.ID, ActionDelete)
		if err == nil || err.(*Error).Message != "Only form owner can delete the form" {
			t.Fatalf("unexpected delete denial: %v", err)
		}
		_, _, err = service.Authorize(ctx, private.ID, &editor.ID, ActionManage)
		if err == nil || err.(*Error).Message != "Only form owner can manage collaborators" {
			t.Fatalf("unexpected manage denial: %v", err)
		}
	})
}
