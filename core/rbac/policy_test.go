package rbac

import "testing"

func TestServiceRolePermissions(t *testing.T) {
	p, err := NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	allowed := []Permission{PermCrisisScan, PermCrisisRespond, PermRiskAssess}
	for _, perm := range allowed {
		if !p.Allowed(RoleService, perm) {
			t.Fatalf("service should hold %s", perm)
		}
	}
	denied := []Permission{PermCrisisRead, PermCrisisManage, PermRiskRead}
	for _, perm := range denied {
		if p.Allowed(RoleService, perm) {
			t.Fatalf("service must not hold %s", perm)
		}
	}
}

func TestAdminInheritsService(t *testing.T) {
	p, err := NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	for _, perm := range []Permission{PermCrisisScan, PermCrisisRespond, PermCrisisRead, PermCrisisManage, PermRiskAssess, PermRiskRead} {
		if !p.Allowed(RoleAdmin, perm) {
			t.Fatalf("admin should hold %s", perm)
		}
	}
}

func TestUnknownRoleDeniedEverything(t *testing.T) {
	p, err := NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	if p.Allowed("guest", PermCrisisScan) {
		t.Fatalf("unknown role must be denied")
	}
	if p.Allowed("", PermCrisisScan) {
		t.Fatalf("empty role must be denied")
	}
}
