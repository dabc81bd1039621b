package environ

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"k8s.io/utils/ptr"
)

type envTest[K comparable] struct {
	name     string
	fallback K
	set      *string
	expected K
}

func testEnvGet[K comparable](t *testing.T, tests []envTest[K], fn func(string, K) K) {
	for _, test := range tests {
		if test.set != nil {
			t.Setenv(test.name, *test.set)
		}
		assert.Equal(t, test.expected, fn(test.name, test.fallback), test.name)
	}
}

func TestGetBool(t *testing.T) {
	tests := []envTest[bool]{
		{name: "RTCBENCH_TEST_BOOL1", fallback: true, expected: true},
		{name: "RTCBENCH_TEST_BOOL2", fallback: true, set: ptr.To("false"), expected: false},
		{name: "RTCBENCH_TEST_BOOL3", fallback: false, set: ptr.To("true"), expected: true},
		{name: "RTCBENCH_TEST_BOOL4", fallback: true, set: ptr.To("yes"), expected: false},
	}
	testEnvGet(t, tests, GetBool)
}

func TestGetDuration(t *testing.T) {
	tests := []envTest[time.Duration]{
		{name: "RTCBENCH_TEST_DURATION1", fallback: time.Minute, expected: time.Minute},
		{name: "RTCBENCH_TEST_DURATION2", fallback: time.Minute, set: ptr.To("1d"), expected: 24 * time.Hour},
		{name: "RTCBENCH_TEST_DURATION3", fallback: time.Minute, set: ptr.To("5s"), expected: 5 * time.Second},
		{name: "RTCBENCH_TEST_DURATION4", fallback: time.Minute, set: ptr.To("soon"), expected: time.Minute},
	}
	testEnvGet(t, tests, GetDuration)
}

func TestGetInt(t *testing.T) {
	tests := []envTest[int]{
		{name: "RTCBENCH_TEST_INT1", fallback: 10, expected: 10},
		{name: "RTCBENCH_TEST_INT2", fallback: 0, set: ptr.To("10"), expected: 10},
		{name: "RTCBENCH_TEST_INT3", fallback: 3, set: ptr.To("ten"), expected: 3},
	}
	testEnvGet(t, tests, GetInt)
}

func TestGetString(t *testing.T) {
	tests := []envTest[string]{
		{name: "RTCBENCH_TEST_STRING1", fallback: "hello", expected: "hello"},
		{name: "RTCBENCH_TEST_STRING2", fallback: "hello", set: ptr.To("world"), expected: "world"},
		{name: "RTCBENCH_TEST_STRING3", fallback: "hello", set: ptr.To(""), expected: ""},
	}
	testEnvGet(t, tests, GetString)
}
