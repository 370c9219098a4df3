package prompt

import "testing"

func TestValidateNonEmpty(t *testing.T) {
	validate := ValidateNonEmpty("username")

	if err := validate("user@example.com"); err != nil {
		t.Errorf("valid value rejected: %v", err)
	}
	for _, bad := range []string{"", "   ", "\t"} {
		if err := validate(bad); err == nil {
			t.Errorf("blank value %q accepted", bad)
		}
	}
}

func TestValidatePort(t *testing.T) {
	for _, ok := range []string{"1", "8080", "65535", " 4200 "} {
		if err := ValidatePort(ok); err != nil {
			t.Errorf("port %q rejected: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "0", "-1", "65536", "abc", "80.5"} {
		if err := ValidatePort(bad); err == nil {
			t.Errorf("port %q accepted", bad)
		}
	}
}
