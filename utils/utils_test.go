package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCreateSHA256Hash(t *testing.T) {
	assert.Equal(t, CreateSHA256Hash([]byte("ab")), CreateSHA256Hash([]byte("a"), []byte("b")))
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", CreateSHA256Hash())
}

func TestSafeAsync_RecoversPanic(t *testing.T) {
	done := make(chan struct{})
	SafeAsync(func() {
		defer close(done)
		panic("boom")
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async routine did not run")
	}
}
