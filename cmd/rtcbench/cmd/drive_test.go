package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionURL(t *testing.T) {
	assert.Equal(t, "https://abc.ngrok-free.app/", sessionURL("https://%s.ngrok-free.app/", "abc"))
	assert.Equal(t, "https://localhost:8080/", sessionURL("https://localhost:8080/", "ignored"))
}
