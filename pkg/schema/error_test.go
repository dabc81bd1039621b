package schema

import (
	"fmt"
	"testing"

	"emperror.dev/errors"
	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "path only",
			err:  Missing("cpu", "utime"),
			want: "schema error at cpu.utime: required field is missing",
		},
		{
			name: "with source",
			err:  &Error{Source: "dump.txt", Path: []string{"PeerConnections"}, Reason: "required field is missing"},
			want: "schema error in dump.txt at PeerConnections: required field is missing",
		},
		{
			name: "no path",
			err:  Invalid("empty document"),
			want: "schema error: empty document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWithSource_FillsWrappedError(t *testing.T) {
	err := errors.Wrap(Missing("timestamp"), "line 3")
	err = WithSource(err, "pid-7.txt")

	var se *Error
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "pid-7.txt", se.Source)
}

func TestWithSource_KeepsExistingSource(t *testing.T) {
	err := error(&Error{Source: "a", Reason: "x"})
	err = WithSource(err, "b")
	assert.Equal(t, "a", err.(*Error).Source)
}

func TestIs(t *testing.T) {
	assert.True(t, Is(fmt.Errorf("wrapped: %w", Invalid("bad"))))
	assert.False(t, Is(errors.New("plain")))
	assert.False(t, Is(nil))
}
