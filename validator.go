package openwire

import "crypto/subtle"

// RequestValidator checks the raw update payload before any component is
// created. Frontend updates must echo the session's form key; admin updates
// are authenticated by the admin session instead.
type RequestValidator struct {
	admin bool
}

// NewRequestValidator creates a validator. admin disables the form key check.
func NewRequestValidator(admin bool) RequestValidator {
	return RequestValidator{admin: admin}
}

// Validate checks data against the session form key. The form key is read
// from the top-level form_key, then security.form_key.
func (v RequestValidator) Validate(data map[string]any, sessionFormKey string) error {
	if data == nil {
		return invalidInput("Invalid payload")
	}
	if _, ok := data["component"]; !ok {
		return invalidInput("Missing component")
	}
	if raw, ok := data["calls"]; ok {
		calls, _ := raw.([]any)
		for _, item := range calls {
			call, _ := item.(map[string]any)
			if _, ok := call["method"]; !ok {
				return invalidInput("Missing method in call")
			}
		}
	}
	if v.admin {
		return nil
	}
	key, _ := data["form_key"].(string)
	if key == "" {
		security, _ := data["security"].(map[string]any)
		key, _ = security["form_key"].(string)
	}
	if key == "" || sessionFormKey == "" ||
		subtle.ConstantTimeCompare([]byte(key), []byte(sessionFormKey)) != 1 {
		return forbidden("Invalid form key")
	}
	return nil
}
