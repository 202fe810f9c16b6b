package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var huskyIDPattern = regexp.MustCompile(`^(TASK|POINT|CASE)-[0-9A-F]{8}-[1-9]\d{4}$`)

func TestNewHuskyIDFormat(t *testing.T) {
	for _, prefix := range []string{"TASK", "POINT", "CASE"} {
		id := NewHuskyID(prefix)
		assert.Regexp(t, huskyIDPattern, id, "prefix %s", prefix)
	}
}

func TestNewHuskyIDIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		id := NewHuskyID("TASK")
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestContentHuskyIDIsDeterministic(t *testing.T) {
	a := ContentHuskyID("POINT", "REQ-1", "login", "login with password")
	b := ContentHuskyID("POINT", "REQ-1", "login", "login with password")
	assert.Equal(t, a, b)
	assert.Regexp(t, huskyIDPattern, a)
}

func TestContentHuskyIDDiffersAcrossContent(t *testing.T) {
	a := ContentHuskyID("CASE", "REQ-1", "case A")
	b := ContentHuskyID("CASE", "REQ-1", "case B")
	c := ContentHuskyID("CASE", "REQ-2", "case A")
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestContentHuskyIDSeparatesAdjacentParts(t *testing.T) {
	// "ab"+"c" must not collide with "a"+"bc"
	a := ContentHuskyID("POINT", "ab", "c")
	b := ContentHuskyID("POINT", "a", "bc")
	assert.NotEqual(t, a, b)
}

func TestNewRequireIDFormat(t *testing.T) {
	id := NewRequireID()
	assert.Regexp(t, `^REQ-\d{14}-[1-9]\d{2}$`, id)
}
