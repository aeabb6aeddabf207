// Package assert contains small test assertions backed by go-cmp.
package assert

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Equal asserts exp == act, printing a diff otherwise.
func Equal(t testing.TB, name string, exp, act interface{}) {
	t.Helper()

	diff := cmp.Diff(exp, act, cmpopts.EquateErrors())
	if diff != "" {
		t.Fatalf("unexpected %v (-exp +act):\n%v", name, diff)
	}
}

// Success asserts err == nil.
func Success(t testing.TB, err error) {
	t.Helper()

	if err != nil {
		t.Fatal(err)
	}
}

// Error asserts err != nil.
func Error(t testing.TB, err error) {
	t.Helper()

	if err == nil {
		t.Fatal("expected error")
	}
}

// Contains asserts the fmt.Sprint(v) contains sub.
func Contains(t testing.TB, v interface{}, sub string) {
	t.Helper()

	s := fmt.Sprint(v)
	if !strings.Contains(s, sub) {
		t.Fatalf("expected %q to contain %q", s, sub)
	}
}

// ErrorIs asserts errors.Is(got, exp)
func ErrorIs(t testing.TB, exp, got error) {
	t.Helper()

	if !errors.Is(got, exp) {
		t.Fatalf("expected %v but got %v", exp, got)
	}
}
