package whisker

import "testing"

func TestRoleValidate(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		wantErr bool
	}{
		{name: "system", role: RoleSystem},
		{name: "user", role: RoleUser},
		{name: "assistant", role: RoleAssistant},
		{name: "empty fails", role: "", wantErr: true},
		{name: "unknown fails", role: "narrator", wantErr: true},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			err := testCase.role.Validate()
			if testCase.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !testCase.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestTurnValidate(t *testing.T) {
	tests := []struct {
		name    string
		turn    Turn
		wantErr bool
	}{
		{name: "user turn", turn: Turn{Role: RoleUser, Content: "hello"}},
		{name: "assistant turn", turn: Turn{Role: RoleAssistant, Content: "hi"}},
		{name: "system role fails", turn: Turn{Role: RoleSystem, Content: "x"}, wantErr: true},
		{name: "blank content fails", turn: Turn{Role: RoleUser, Content: "  "}, wantErr: true},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			err := testCase.turn.Validate()
			if testCase.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !testCase.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
