package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pq.Error{Code: "23505", Constraint: "users_username_key"}
	assert.True(t, isUniqueViolation(unique))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert failed: %w", unique)))

	// Any other failure is an internal error, not a duplicate username.
	assert.False(t, isUniqueViolation(&pq.Error{Code: "57P01"}))
	assert.False(t, isUniqueViolation(errors.New("dial tcp: connection refused")))
	assert.False(t, isUniqueViolation(nil))
}
