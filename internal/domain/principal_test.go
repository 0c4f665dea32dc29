package domain

import "testing"

func TestPrincipalCanModify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		principal Principal
		ownerID   string
		want      bool
	}{
		{"system bypasses ownership", SystemPrincipal(), "someone-else", true},
		{"owner", UserPrincipal("u1", RoleUser), "u1", true},
		{"other user", UserPrincipal("u2", RoleUser), "u1", false},
		{"admin", UserPrincipal("u2", RoleAdmin), "u1", true},
		{"zero principal", Principal{}, "u1", false},
		{"user without id", Principal{Kind: PrincipalKindUser, Role: RoleAdmin}, "u1", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.principal.CanModify(tc.ownerID); got != tc.want {
				t.Errorf("CanModify(%q) = %v, want %v", tc.ownerID, got, tc.want)
			}
		})
	}
}

func TestUserPrincipalDefaultsRole(t *testing.T) {
	t.Parallel()

	p := UserPrincipal("u1", "")
	if p.Role != RoleUser {
		t.Errorf("Expected default role %s, got %s", RoleUser, p.Role)
	}
	if p.IsSystem() {
		t.Error("User principal must not be a system principal")
	}
	if !SystemPrincipal().IsSystem() {
		t.Error("SystemPrincipal must report IsSystem")
	}
}
