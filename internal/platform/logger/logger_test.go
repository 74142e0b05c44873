package logger

import (
	"strings"
	"testing"
)

func TestScrubRedactsAndHashes(t *testing.T) {
	out := scrub([]interface{}{
		"jwt_token", "abc",
		"user_id", "u-1",
		"media_id", "42",
	})
	if len(out) != 6 {
		t.Fatalf("len: want=6 got=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("token: want=[REDACTED] got=%v", out[1])
	}
	hashedID, _ := out[3].(string)
	if !strings.HasPrefix(hashedID, "hash:") || len(hashedID) != len("hash:")+12 {
		t.Fatalf("user_id: want hash:<12> got=%q", hashedID)
	}
	if out[5] != "42" {
		t.Fatalf("media_id: want=42 got=%v", out[5])
	}
}

func TestScrubKeepsDanglingKey(t *testing.T) {
	out := scrub([]interface{}{"step", "vector_insert", "orphan"})
	if len(out) != 3 || out[2] != "orphan" {
		t.Fatalf("dangling key lost: got=%v", out)
	}
}

func TestScrubNestedMapAndJWTValue(t *testing.T) {
	jwtish := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.sig"
	out := scrub([]interface{}{
		"headers", map[string]interface{}{"Authorization": "Bearer x", "accept": "json"},
		"raw", jwtish,
	})
	m, ok := out[1].(map[string]interface{})
	if !ok {
		t.Fatalf("headers type: got=%T", out[1])
	}
	if m["Authorization"] != "[REDACTED]" || m["accept"] != "json" {
		t.Fatalf("nested scrub mismatch: got=%v", m)
	}
	if out[3] != "[REDACTED]" {
		t.Fatalf("jwt value: want=[REDACTED] got=%v", out[3])
	}
}
