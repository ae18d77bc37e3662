package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

var (
	testUser       = &domain.User{ID: "1", Email: "user@example.com", Name: "User", PasswordHash: "hash:oldPassword", Role: domain.RoleUser}
	testAdmin      = &domain.User{ID: "2", Email: "admin@example.com", Name: "Admin", Role: domain.RoleAdmin}
	testSuperAdmin = &domain.User{ID: "3", Email: "root@example.com", Name: "Root", Role: domain.RoleSuperAdmin}
	testOtherAdmin = &domain.User{ID: "4", Email: "admin2@example.com", Name: "Admin 2", Role: domain.RoleAdmin}
)

func newUserFixture() (*UserService, *stubUserRepo, *countingHasher, *recordingAudit) {
	repo := newStubUserRepo()
	for _, u := range []*domain.User{testUser, testAdmin, testSuperAdmin, testOtherAdmin} {
		repo.seed(u)
	}
	hasher := &countingHasher{}
	audit := &recordingAudit{}
	return NewUserService(repo, hasher, audit, zerolog.Nop()), repo, hasher, audit
}

func strPtr(s string) *string { return &s }

func rolePtr(r domain.Role) *domain.Role { return &r }

func TestUserService_UpdateUser_TargetNotFound(t *testing.T) {
	svc, _, _, _ := newUserFixture()

	_, err := svc.UpdateUser(context.Background(), testSuperAdmin, "999", domain.UserChanges{Name: strPtr("x")})
	if !errors.Is(err, domain.ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestUserService_UpdateUser_AdminCannotUpdateAdmin(t *testing.T) {
	svc, repo, _, audit := newUserFixture()

	_, err := svc.UpdateUser(context.Background(), testAdmin, testOtherAdmin.ID, domain.UserChanges{Name: strPtr("x")})
	if !errors.Is(err, domain.ErrInsufficientPrivilege) {
		t.Fatalf("expected ErrInsufficientPrivilege, got %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("repository must not be touched on deny")
	}
	ev, _ := audit.last()
	if ev.Outcome != domain.OutcomeDenied || ev.Reason == "" {
		t.Fatalf("expected denied audit event, got %+v", ev)
	}
}

func TestUserService_UpdateUser_SuperAdminUpdatesAdmin(t *testing.T) {
	svc, _, _, audit := newUserFixture()

	updated, err := svc.UpdateUser(context.Background(), testSuperAdmin, testAdmin.ID, domain.UserChanges{Name: strPtr("Updated Admin")})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Name != "Updated Admin" {
		t.Fatalf("expected updated name, got %q", updated.Name)
	}
	ev, _ := audit.last()
	if ev.Action != domain.AuditUpdate || ev.Outcome != domain.OutcomeAllowed {
		t.Fatalf("unexpected audit event: %+v", ev)
	}
}

func TestUserService_UpdateUser_DefaultsToSelf(t *testing.T) {
	svc, _, _, _ := newUserFixture()

	updated, err := svc.UpdateUser(context.Background(), testUser, "", domain.UserChanges{Name: strPtr("  Renamed  ")})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.ID != testUser.ID || updated.Name != "Renamed" {
		t.Fatalf("unexpected result: %+v", updated)
	}
}

func TestUserService_UpdateUser_SelfRoleChange(t *testing.T) {
	svc, _, _, audit := newUserFixture()

	_, err := svc.UpdateUser(context.Background(), testUser, "", domain.UserChanges{Role: rolePtr(domain.RoleAdmin)})
	if !errors.Is(err, domain.ErrSelfRoleChange) {
		t.Fatalf("expected ErrSelfRoleChange, got %v", err)
	}
	ev, _ := audit.last()
	if ev.Action != domain.AuditRoleChange {
		t.Fatalf("expected role_change audit action, got %s", ev.Action)
	}
}

func TestUserService_UpdateUser_UserCannotUpdateOthers(t *testing.T) {
	svc, repo, _, _ := newUserFixture()
	repo.seed(&domain.User{ID: "5", Email: "other@example.com", Role: domain.RoleUser})

	_, err := svc.UpdateUser(context.Background(), testUser, "5", domain.UserChanges{Name: strPtr("x")})
	if !errors.Is(err, domain.ErrInsufficientPrivilege) {
		t.Fatalf("expected ErrInsufficientPrivilege, got %v", err)
	}
}

func TestUserService_UpdateUser_AdminPromotesUser(t *testing.T) {
	svc, _, _, _ := newUserFixture()

	updated, err := svc.UpdateUser(context.Background(), testAdmin, testUser.ID, domain.UserChanges{Role: rolePtr(domain.RoleAdmin)})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Role != domain.RoleAdmin {
		t.Fatalf("expected ADMIN, got %s", updated.Role)
	}
}

func TestUserService_UpdateUser_NoChanges(t *testing.T) {
	svc, repo, _, _ := newUserFixture()

	got, err := svc.UpdateUser(context.Background(), testUser, "", domain.UserChanges{})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if got.ID != testUser.ID {
		t.Fatalf("expected current record, got %+v", got)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("empty change set must not reach the repository")
	}
}

func TestUserService_DeleteUser_Self(t *testing.T) {
	svc, repo, _, _ := newUserFixture()
	repo.findErr = errDatabase // a lookup would fail; self check must come first

	if err := svc.DeleteUser(context.Background(), testUser, testUser.ID); !errors.Is(err, domain.ErrSelfDelete) {
		t.Fatalf("expected ErrSelfDelete, got %v", err)
	}
}

func TestUserService_DeleteUser_NotFound(t *testing.T) {
	svc, _, _, _ := newUserFixture()

	if err := svc.DeleteUser(context.Background(), testSuperAdmin, "999"); !errors.Is(err, domain.ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestUserService_DeleteUser_AdminCannotDeleteAdmin(t *testing.T) {
	svc, repo, _, _ := newUserFixture()

	if err := svc.DeleteUser(context.Background(), testAdmin, testOtherAdmin.ID); !errors.Is(err, domain.ErrInsufficientPrivilege) {
		t.Fatalf("expected ErrInsufficientPrivilege, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatalf("repository must not be touched on deny")
	}
}

func TestUserService_DeleteUser_SuperAdminDeletesAdmin(t *testing.T) {
	svc, repo, _, _ := newUserFixture()

	if err := svc.DeleteUser(context.Background(), testSuperAdmin, testAdmin.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := repo.FindByID(context.Background(), testAdmin.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected admin to be gone, got %v", err)
	}
}

func TestUserService_DeleteUser_RepositoryError(t *testing.T) {
	svc, repo, _, _ := newUserFixture()
	repo.findErr = errDatabase

	if err := svc.DeleteUser(context.Background(), testSuperAdmin, testAdmin.ID); !errors.Is(err, errDatabase) {
		t.Fatalf("expected wrapped database error, got %v", err)
	}
}

func TestUserService_ChangePassword_InvalidOld(t *testing.T) {
	svc, repo, _, _ := newUserFixture()

	_, err := svc.ChangePassword(context.Background(), testUser, "wrongOldPassword", "newSecure123")
	if !errors.Is(err, domain.ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("repository must not be touched on deny")
	}
}

func TestUserService_ChangePassword_Unchanged(t *testing.T) {
	svc, _, _, _ := newUserFixture()

	_, err := svc.ChangePassword(context.Background(), testUser, "oldPassword", "oldPassword")
	if !errors.Is(err, domain.ErrPasswordUnchanged) {
		t.Fatalf("expected ErrPasswordUnchanged, got %v", err)
	}
}

func TestUserService_ChangePassword_Success(t *testing.T) {
	svc, _, hasher, _ := newUserFixture()

	updated, err := svc.ChangePassword(context.Background(), testUser, "oldPassword", "newSecure123")
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if updated.PasswordHash != "hash:newSecure123" {
		t.Fatalf("expected new hash, got %q", updated.PasswordHash)
	}
	if updated.PasswordHash == testUser.PasswordHash {
		t.Fatalf("hash must change")
	}
	if hasher.verifyCalls != 2 || hasher.hashCalls != 1 {
		t.Fatalf("unexpected hasher usage verify=%d hash=%d", hasher.verifyCalls, hasher.hashCalls)
	}
}

func TestUserService_ChangePassword_HashFailure(t *testing.T) {
	repo := newStubUserRepo()
	repo.seed(testUser)
	svc := NewUserService(repo, &countingHasher{hashErr: errors.New("boom")}, nil, zerolog.Nop())

	_, err := svc.ChangePassword(context.Background(), testUser, "oldPassword", "newSecure123")
	if !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestUserService_ChangePassword_OverlongNewPassword(t *testing.T) {
	hasher := newTestHasher(t)
	oldHash, err := hasher.Hash("oldPassword")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	actor := &domain.User{ID: "1", Email: "user@example.com", PasswordHash: oldHash, Role: domain.RoleUser}
	repo := newStubUserRepo()
	repo.seed(actor)
	audit := &recordingAudit{}
	svc := NewUserService(repo, hasher, audit, zerolog.Nop())

	_, err = svc.ChangePassword(context.Background(), actor, "oldPassword", strings.Repeat("b", 100))
	if !errors.Is(err, domain.ErrPasswordTooLong) || errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("repository must not be touched")
	}
	ev, _ := audit.last()
	if ev.Outcome != domain.OutcomeDenied {
		t.Fatalf("expected denied audit event, got %+v", ev)
	}
}

func TestUserService_ListUsers(t *testing.T) {
	svc, repo, _, _ := newUserFixture()
	ctx := context.Background()

	all, err := svc.ListUsers(ctx, testSuperAdmin)
	if err != nil || len(all) != 4 {
		t.Fatalf("super admin should see all 4 users, got %d (err %v)", len(all), err)
	}

	visible, err := svc.ListUsers(ctx, testAdmin)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(visible) != 3 {
		t.Fatalf("admin should see 3 users, got %d", len(visible))
	}
	for _, u := range visible {
		if u.Role == domain.RoleSuperAdmin {
			t.Fatalf("admin must not see super admins")
		}
	}

	callsBefore := repo.listCalls
	none, err := svc.ListUsers(ctx, testUser)
	if err != nil {
		t.Fatalf("plain user listing must not error, got %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", none)
	}
	if repo.listCalls != callsBefore {
		t.Fatalf("repository must not be queried for a user without listing scope")
	}
}

func TestUserService_AdminActsOnSuperAdminAndGrantsAnyRole(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newUserFixture()

	updated, err := svc.UpdateUser(ctx, testAdmin, testSuperAdmin.ID, domain.UserChanges{Name: strPtr("Renamed Root")})
	if err != nil {
		t.Fatalf("admin updates super admin name: %v", err)
	}
	if updated.Name != "Renamed Root" {
		t.Fatalf("expected renamed super admin, got %q", updated.Name)
	}

	promoted, err := svc.UpdateUser(ctx, testAdmin, testUser.ID, domain.UserChanges{Role: rolePtr(domain.RoleSuperAdmin)})
	if err != nil {
		t.Fatalf("admin promotes user to super admin: %v", err)
	}
	if promoted.Role != domain.RoleSuperAdmin {
		t.Fatalf("expected SUPER_ADMIN, got %s", promoted.Role)
	}

	if err := svc.DeleteUser(ctx, testAdmin, testSuperAdmin.ID); err != nil {
		t.Fatalf("admin deletes super admin: %v", err)
	}
	if _, err := repo.FindByID(ctx, testSuperAdmin.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected super admin to be gone, got %v", err)
	}
}
