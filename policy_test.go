package openwire

import "testing"

func TestActionPolicyIsAllowed(t *testing.T) {
	allowed := []string{"increment", "decrement"}

	tests := []struct {
		method string
		want   bool
	}{
		{"increment", true},
		{"decrement", true},
		{"Increment", false},
		{"incr*", false},
		{"delete", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			if got := (ActionPolicy{}).IsAllowed(tt.method, allowed); got != tt.want {
				t.Errorf("IsAllowed(%q) = %v, want %v", tt.method, got, tt.want)
			}
		})
	}
}

func TestActionPolicyIsValidMethod(t *testing.T) {
	tests := []struct {
		method string
		want   bool
	}{
		{"increment", true},
		{"load", true},
		{"", false},
		{"_private", false},
		{"__construct", false},
		{"__destruct", false},
		{"toHtml", false},
		{"setTemplate", false},
		{"getTemplate", false},
		{"setData", false},
		{"getData", false},
		{"mount", false},
		{"hydrate", false},
		{"dehydrate", false},
		{"render", false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			if got := (ActionPolicy{}).IsValidMethod(tt.method); got != tt.want {
				t.Errorf("IsValidMethod(%q) = %v, want %v", tt.method, got, tt.want)
			}
		})
	}
}

func TestActionPolicyCheck(t *testing.T) {
	p := ActionPolicy{}

	if err := p.Check("increment", []string{"increment"}); err != nil {
		t.Errorf("Check(increment) = %v", err)
	}

	// Allowlisting a forbidden name does not make it callable.
	err := p.Check("render", []string{"render"})
	if !IsForbidden(err) {
		t.Fatalf("Check(render) = %v, want forbidden", err)
	}
	if err.Error() != "Action 'render' not allowed" {
		t.Errorf("message = %q", err.Error())
	}
}
