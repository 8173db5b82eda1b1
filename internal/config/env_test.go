// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseHelpers(t *testing.T) {
	t.Setenv("SPLITCAP_TEST_STR", "hello")
	t.Setenv("SPLITCAP_TEST_INT", "42")
	t.Setenv("SPLITCAP_TEST_BAD_INT", "forty-two")
	t.Setenv("SPLITCAP_TEST_FLOAT", "29.97")
	t.Setenv("SPLITCAP_TEST_DUR", "250ms")
	t.Setenv("SPLITCAP_TEST_EMPTY", "")

	assert.Equal(t, "hello", ParseString("SPLITCAP_TEST_STR", "x"))
	assert.Equal(t, "x", ParseString("SPLITCAP_TEST_EMPTY", "x"))
	assert.Equal(t, "x", ParseString("SPLITCAP_TEST_UNSET", "x"))
	assert.Equal(t, 42, ParseInt("SPLITCAP_TEST_INT", 1))
	assert.Equal(t, 1, ParseInt("SPLITCAP_TEST_BAD_INT", 1))
	assert.InDelta(t, 29.97, ParseFloat("SPLITCAP_TEST_FLOAT", 30), 1e-9)
	assert.Equal(t, 250*time.Millisecond, ParseDuration("SPLITCAP_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, ParseDuration("SPLITCAP_TEST_STR", time.Second))
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"YES", false, true},
		{"1", false, true},
		{"false", true, false},
		{"no", true, false},
		{"0", true, false},
		{"maybe", true, true},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("SPLITCAP_TEST_BOOL", tt.value)
			assert.Equal(t, tt.want, ParseBool("SPLITCAP_TEST_BOOL", tt.def))
		})
	}
}
