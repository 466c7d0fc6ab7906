package discount

import (
	"errors"
	"testing"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		code string
		want int64
	}{
		{"SAVE10", 10},
		{"save10", 10},
		{"Save20", 20},
		{"welcome15", 15},
		{" STUDENT ", 25},
	}

	for _, tt := range tests {
		percent, err := Lookup(tt.code)
		if err != nil {
			t.Fatalf("Lookup(%q) failed: %v", tt.code, err)
		}
		if percent.IntPart() != tt.want {
			t.Errorf("Lookup(%q) = %s, expected %d", tt.code, percent, tt.want)
		}
	}
}

func TestLookupUnknownCode(t *testing.T) {
	_, err := Lookup("BOGUS")
	if !errors.Is(err, ErrInvalidCode) {
		t.Errorf("Expected ErrInvalidCode, got: %v", err)
	}
}

func TestFormApplyValidCode(t *testing.T) {
	var f Form
	f.SetInput("save10")

	if err := f.Apply(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if f.Percent.IntPart() != 10 {
		t.Errorf("Expected 10%%, got %s", f.Percent)
	}
	if f.Input != "" {
		t.Errorf("Expected input to be cleared, got %q", f.Input)
	}
	if !f.Active() {
		t.Error("Expected discount to be active")
	}
}

func TestFormApplyInvalidCodeKeepsDiscount(t *testing.T) {
	var f Form
	f.SetInput("SAVE20")
	if err := f.Apply(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	f.SetInput("BOGUS")
	err := f.Apply()
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("Expected ErrInvalidCode, got: %v", err)
	}
	if f.Percent.IntPart() != 20 {
		t.Errorf("Expected discount to stay 20%%, got %s", f.Percent)
	}
	if f.Error != "Invalid discount code" {
		t.Errorf("Unexpected error message %q", f.Error)
	}
	if f.Input != "BOGUS" {
		t.Errorf("Expected input to be kept, got %q", f.Input)
	}

	f.SetInput("B")
	if f.Error != "" {
		t.Errorf("Expected typing to clear the error, got %q", f.Error)
	}
}

func TestFormApplyReplacesPercentage(t *testing.T) {
	var f Form
	f.SetInput("STUDENT")
	f.Apply()
	f.SetInput("SAVE10")
	f.Apply()

	if f.Percent.IntPart() != 10 {
		t.Errorf("Expected 10%% after replacing, got %s", f.Percent)
	}
}

func TestFormApplyBlankInputIsNoop(t *testing.T) {
	var f Form
	f.SetInput("   ")
	if f.CanApply() {
		t.Error("Expected blank input to be rejected")
	}
	if err := f.Apply(); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if f.Active() || f.Error != "" {
		t.Errorf("Expected no change, got %+v", f)
	}
}

func TestFormClear(t *testing.T) {
	var f Form
	f.SetInput("save20")
	if err := f.Apply(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	f.SetInput("bogus")
	f.Apply()

	f.Clear()
	if f.Active() || f.Error != "" || f.Input != "" {
		t.Errorf("Expected empty form, got %+v", f)
	}
}
