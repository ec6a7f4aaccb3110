package tester

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// prefix renders optional context for a failure message. The first element
// may be a format string for the rest.
func prefix(msgAndArgs []any) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	if format, ok := msgAndArgs[0].(string); ok && len(msgAndArgs) > 1 {
		return fmt.Sprintf(format, msgAndArgs[1:]...) + ": "
	}
	return fmt.Sprint(msgAndArgs...) + ": "
}

// Eq fails the test when got and want differ (reflect.DeepEqual).
func Eq[T any](t *testing.T, got, want T, msgAndArgs ...any) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("%sgot %#v, want %#v", prefix(msgAndArgs), got, want)
	}
}

// True fails the test when cond is false.
func True(t *testing.T, cond bool, msgAndArgs ...any) {
	t.Helper()
	if !cond {
		t.Fatalf("%scondition is false", prefix(msgAndArgs))
	}
}

// False fails the test when cond is true.
func False(t *testing.T, cond bool, msgAndArgs ...any) {
	t.Helper()
	if cond {
		t.Fatalf("%scondition is true", prefix(msgAndArgs))
	}
}

// NoErr fails the test when err is non-nil.
func NoErr(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		t.Fatalf("%sunexpected error: %v", prefix(msgAndArgs), err)
	}
}

// Err fails the test when err is nil.
func Err(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	if err == nil {
		t.Fatalf("%sexpected an error, got nil", prefix(msgAndArgs))
	}
}

// ErrIs fails the test unless errors.Is(err, target).
func ErrIs(t *testing.T, err, target error, msgAndArgs ...any) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("%serror %v is not %v", prefix(msgAndArgs), err, target)
	}
}

// ErrAs fails the test unless err matches *T, and returns the match.
func ErrAs[T error](t *testing.T, err error, msgAndArgs ...any) T {
	t.Helper()
	var target T
	if !errors.As(err, &target) {
		t.Fatalf("%serror %v does not match %T", prefix(msgAndArgs), err, target)
	}
	return target
}

// Contains fails the test when s does not contain sub.
func Contains(t *testing.T, s, sub string, msgAndArgs ...any) {
	t.Helper()
	if !strings.Contains(s, sub) {
		t.Fatalf("%s%q does not contain %q", prefix(msgAndArgs), s, sub)
	}
}
