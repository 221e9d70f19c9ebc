package action

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		param   string
		wantErr error
	}{
		{"move forward bare", MoveForward, "", nil},
		{"move forward speed", MoveForward, "55", nil},
		{"move backward max speed", MoveBackward, "100", nil},
		{"speed zero", MoveForward, "0", ErrInvalidParam},
		{"speed too high", MoveBackward, "101", ErrInvalidParam},
		{"speed not numeric", MoveForward, "fast", ErrInvalidParam},
		{"turn left angle", TurnLeft, "90", nil},
		{"turn right full circle", TurnRight, "360", nil},
		{"angle too large", TurnRight, "361", ErrInvalidParam},
		{"wait bare", Wait, "", nil},
		{"wait with param", Wait, "5", ErrInvalidParam},
		{"cleaning bare", Cleaning, "", nil},
		{"patrol bare", Patrol, "", nil},
		{"charging with param", Charging, "dock", ErrInvalidParam},
		{"custom named", Custom, "dock-reset_2", nil},
		{"custom missing name", Custom, "", ErrInvalidParam},
		{"custom uppercase", Custom, "Dock", ErrInvalidParam},
		{"custom too long", Custom, strings.Repeat("a", 51), ErrInvalidParam},
		{"unknown action", Action("fly"), "", ErrInvalidAction},
		{"empty action", Action(""), "", ErrInvalidAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.action, tt.param)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate(%q, %q) unexpected error: %v", tt.action, tt.param, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate(%q, %q) = %v, want %v", tt.action, tt.param, err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	for i := 0; i < 3; i++ {
		if err := Validate(TurnLeft, "45"); err != nil {
			t.Fatalf("call %d: unexpected error %v", i, err)
		}
	}
}

func TestParse(t *testing.T) {
	a, err := Parse("charging")
	if err != nil || a != Charging {
		t.Errorf("Parse(charging) = %q, %v", a, err)
	}
	if _, err := Parse("teleport"); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Parse(teleport) error = %v, want ErrInvalidAction", err)
	}
}

func TestAll(t *testing.T) {
	all := All()
	if len(all) != 9 {
		t.Fatalf("All() returned %d entries, want 9", len(all))
	}
	if all[0].Action != MoveForward {
		t.Errorf("first entry = %q, want move-forward", all[0].Action)
	}

	// Returned slice is a copy.
	all[0].Label = "changed"
	if MoveForward.Label() != "Move Forward" {
		t.Error("mutating All() result leaked into the catalog")
	}
}

func TestLookupAndLabel(t *testing.T) {
	d, ok := Lookup(Charging)
	if !ok {
		t.Fatal("Lookup(charging) not found")
	}
	if d.Label != "Return to Charge" || d.Param != ParamNone {
		t.Errorf("Lookup(charging) = %+v", d)
	}
	if _, ok := Lookup("unknown"); ok {
		t.Error("Lookup(unknown) should fail")
	}
	if Action("mystery").Label() != "mystery" {
		t.Error("unknown action label should fall back to identifier")
	}
}
