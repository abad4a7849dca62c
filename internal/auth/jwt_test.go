package auth

import "testing"

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("user-1", true, "secret")
	if err != nil {
		t.Fatalf("GenerateJWT returned error: %v", err)
	}

	actor, err := ParseJWT(token, "secret")
	if err != nil {
		t.Fatalf("ParseJWT returned error: %v", err)
	}
	if actor.UserID != "user-1" {
		t.Fatalf("UserID = %q, want user-1", actor.UserID)
	}
	if !actor.IsAdmin {
		t.Fatalf("IsAdmin = false, want true")
	}
}

func TestParseJWTWrongSecret(t *testing.T) {
	token, err := GenerateJWT("user-1", false, "secret")
	if err != nil {
		t.Fatalf("GenerateJWT returned error: %v", err)
	}

	if _, err := ParseJWT(token, "other"); err == nil {
		t.Fatalf("ParseJWT accepted token signed with a different secret")
	}
}
