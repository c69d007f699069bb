package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"auctiond/adapters/authz"
)

func TestStaticOperator(t *testing.T) {
	access := authz.NewStaticOperator("operator")

	assert.True(t, access.IsAuthorized("operator"))
	assert.False(t, access.IsAuthorized("someone-else"))
	assert.False(t, access.IsAuthorized(""))
}

func TestStaticOperator_EmptyOperator(t *testing.T) {
	// A misconfigured empty operator must not authorize anonymous callers.
	access := authz.NewStaticOperator("")
	assert.False(t, access.IsAuthorized(""))
}

func TestAllowList(t *testing.T) {
	access := authz.NewAllowList("op-a", "op-b")

	assert.True(t, access.IsAuthorized("op-a"))
	assert.True(t, access.IsAuthorized("op-b"))
	assert.False(t, access.IsAuthorized("op-c"))
	assert.False(t, access.IsAuthorized(""))
}
