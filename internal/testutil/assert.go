package testutil

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"
)

// Assert provides test assertions. Every failure stops the test.
type Assert struct {
	t *testing.T
}

// NewAssert creates a new assert helper.
func NewAssert(t *testing.T) *Assert {
	return &Assert{t: t}
}

// Equal asserts that two values are deeply equal. NBT values that print the
// same but differ in tag type (int32 vs int64) are shown with their types.
func (a *Assert) Equal(expected, actual any, msgAndArgs ...any) {
	a.t.Helper()
	if reflect.DeepEqual(expected, actual) {
		return
	}
	want, got := fmt.Sprintf("%v", expected), fmt.Sprintf("%v", actual)
	if want == got {
		want, got = fmt.Sprintf("%#v", expected), fmt.Sprintf("%#v", actual)
	}
	a.fail(fmt.Sprintf("Expected: %s\nActual:   %s", want, got), msgAndArgs...)
}

// NotEqual asserts that two values differ.
func (a *Assert) NotEqual(expected, actual any, msgAndArgs ...any) {
	a.t.Helper()
	if reflect.DeepEqual(expected, actual) {
		a.fail(fmt.Sprintf("Expected values to differ, both were: %v", actual), msgAndArgs...)
	}
}

// NotNil asserts that a value is not nil, including typed nils.
func (a *Assert) NotNil(value any, msgAndArgs ...any) {
	a.t.Helper()
	if isNil(value) {
		a.fail("Expected non-nil value", msgAndArgs...)
	}
}

func (a *Assert) True(value bool, msgAndArgs ...any) {
	a.t.Helper()
	if !value {
		a.fail("Expected true", msgAndArgs...)
	}
}

func (a *Assert) False(value bool, msgAndArgs ...any) {
	a.t.Helper()
	if value {
		a.fail("Expected false", msgAndArgs...)
	}
}

func (a *Assert) Error(err error, msgAndArgs ...any) {
	a.t.Helper()
	if err == nil {
		a.fail("Expected an error", msgAndArgs...)
	}
}

func (a *Assert) NoError(err error, msgAndArgs ...any) {
	a.t.Helper()
	if err != nil {
		a.fail(fmt.Sprintf("Unexpected error: %v", err), msgAndArgs...)
	}
}

// ErrorIs asserts that err matches target with errors.Is. The whole chain is
// printed on failure so wrapped decode paths are visible.
func (a *Assert) ErrorIs(err, target error, msgAndArgs ...any) {
	a.t.Helper()
	if !errors.Is(err, target) {
		a.fail(fmt.Sprintf("Expected error matching %q\nActual: %v", target, err), msgAndArgs...)
	}
}

// Contains asserts that s contains substr.
func (a *Assert) Contains(s, substr string, msgAndArgs ...any) {
	a.t.Helper()
	if !strings.Contains(s, substr) {
		a.fail(fmt.Sprintf("Expected %q to contain %q", s, substr), msgAndArgs...)
	}
}

// Len asserts the length of a slice, map, array or string.
func (a *Assert) Len(collection any, length int, msgAndArgs ...any) {
	a.t.Helper()
	if n := lenOf(a.t, collection); n != length {
		a.fail(fmt.Sprintf("Expected length %d, got %d: %v", length, n, collection), msgAndArgs...)
	}
}

func (a *Assert) Empty(collection any, msgAndArgs ...any) {
	a.t.Helper()
	if n := lenOf(a.t, collection); n != 0 {
		a.fail(fmt.Sprintf("Expected empty, got length %d", n), msgAndArgs...)
	}
}

func (a *Assert) NotEmpty(collection any, msgAndArgs ...any) {
	a.t.Helper()
	if lenOf(a.t, collection) == 0 {
		a.fail("Expected non-empty", msgAndArgs...)
	}
}

// InDelta asserts that two floats are within delta, e.g. an observed
// selection frequency against its weight share.
func (a *Assert) InDelta(expected, actual, delta float64, msgAndArgs ...any) {
	a.t.Helper()
	if diff := math.Abs(expected - actual); diff > delta || math.IsNaN(diff) {
		a.fail(fmt.Sprintf("Expected %g ± %g, got %g", expected, delta, actual), msgAndArgs...)
	}
}

// Panics asserts that fn panics.
func (a *Assert) Panics(fn func(), msgAndArgs ...any) {
	a.t.Helper()
	defer func() {
		if recover() == nil {
			a.fail("Expected a panic", msgAndArgs...)
		}
	}()
	fn()
}

// NotPanics asserts that fn returns normally.
func (a *Assert) NotPanics(fn func(), msgAndArgs ...any) {
	a.t.Helper()
	defer func() {
		if r := recover(); r != nil {
			a.fail(fmt.Sprintf("Unexpected panic: %v", r), msgAndArgs...)
		}
	}()
	fn()
}

func (a *Assert) fail(message string, msgAndArgs ...any) {
	a.t.Helper()
	switch {
	case len(msgAndArgs) == 1:
		message = fmt.Sprintf("%v\n%s", msgAndArgs[0], message)
	case len(msgAndArgs) > 1:
		if format, ok := msgAndArgs[0].(string); ok {
			message = fmt.Sprintf(format, msgAndArgs[1:]...) + "\n" + message
		}
	}
	a.t.Fatal(message)
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	}
	return false
}

func lenOf(t *testing.T, value any) int {
	t.Helper()
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Array, reflect.Chan, reflect.Map, reflect.Slice, reflect.String:
		return v.Len()
	}
	t.Fatalf("cannot take the length of %T", value)
	return 0
}
