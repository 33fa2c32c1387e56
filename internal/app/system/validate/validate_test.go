package validate

import (
	"strings"
	"testing"
)

type sample struct {
	Email string `validate:"required,email"`
	Name  string `validate:"required,min=2"`
	Role  string `validate:"omitempty,oneof=admin user"`
}

func TestStruct(t *testing.T) {
	if err := Struct(sample{Email: "a@b.co", Name: "Ann"}); err != nil {
		t.Errorf("valid struct rejected: %v", err)
	}

	err := Struct(sample{Email: "nope", Name: ""})
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "email must be a valid email address") {
		t.Errorf("missing email message: %q", msg)
	}
	if !strings.Contains(msg, "name is required") {
		t.Errorf("missing name message: %q", msg)
	}

	err = Struct(sample{Email: "a@b.co", Name: "Ann", Role: "root"})
	if err == nil || !strings.Contains(err.Error(), "role must be one of") {
		t.Errorf("expected oneof message, got %v", err)
	}
}
