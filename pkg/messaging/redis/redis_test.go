package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRedisBroker_InvalidURL(t *testing.T) {
	_, err := NewRedisBroker(Config{URL: "://not-a-url"}, nil)
	assert.ErrorContains(t, err, "failed to parse Redis URL")
}
