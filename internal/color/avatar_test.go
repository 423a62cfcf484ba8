package color

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var hexColor = regexp.MustCompile(`^#[0-9A-F]{6}$`)

func TestForAccount_Deterministic(t *testing.T) {
	a := ForAccount("account_abc123")
	b := ForAccount("account_abc123")
	assert.Equal(t, a, b)
}

func TestForAccount_WellFormed(t *testing.T) {
	for _, id := range []string{"", "a", "account_abc123", "account_zzz999"} {
		assert.Regexp(t, hexColor, ForAccount(id))
	}
}

func TestForAccount_VariesByAccount(t *testing.T) {
	assert.NotEqual(t, ForAccount("account_abc123"), ForAccount("account_def456"))
}
