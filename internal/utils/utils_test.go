package utils

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestRandomString(t *testing.T) {
	for _, n := range []int{VerifyCodeLen, SessionTokenLen, NewPasswordLen} {
		s, err := RandomString(n)
		if err != nil {
			t.Fatalf("RandomString(%d): %v", n, err)
		}
		if len(s) != n {
			t.Errorf("len = %d, want %d", len(s), n)
		}
		if strings.Trim(s, alphanumeric) != "" {
			t.Errorf("%q contains non-alphanumeric characters", s)
		}
	}
	a, _ := RandomString(SessionTokenLen)
	b, _ := RandomString(SessionTokenLen)
	if a == b {
		t.Error("two session tokens collided")
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := VerifyPassword(hash, "correct horse")
	if err != nil || !ok {
		t.Errorf("VerifyPassword(good) = %v, %v", ok, err)
	}
	ok, err = VerifyPassword(hash, "wrong horse")
	if err != nil || ok {
		t.Errorf("VerifyPassword(bad) = %v, %v", ok, err)
	}
	if _, err := VerifyPassword("not-a-hash", "x"); err == nil {
		t.Error("malformed hash should return an error")
	}
}

func TestSecureEqual(t *testing.T) {
	if !SecureEqual("abc", "abc") || SecureEqual("abc", "abd") || SecureEqual("abc", "abcd") {
		t.Error("SecureEqual gave a wrong answer")
	}
}
