package util

import (
	"testing"
	"time"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("T_STR", "value")
	t.Setenv("T_EMPTY", "")
	t.Setenv("T_NUM", "2.5")
	t.Setenv("T_BAD_NUM", "abc")
	t.Setenv("T_BOOL", "1")
	t.Setenv("T_DUR", "1500ms")
	t.Setenv("T_DUR_SECS", "3")
	t.Setenv("T_LIST", "a, b,,c ")

	if got := GetEnvString("T_STR", "def"); got != "value" {
		t.Errorf("GetEnvString = %q", got)
	}
	if got := GetEnvString("T_EMPTY", "def"); got != "def" {
		t.Errorf("empty value should fall back, got %q", got)
	}
	if got := GetEnvNumeric("T_NUM", 1); got != 2.5 {
		t.Errorf("GetEnvNumeric = %v", got)
	}
	if got := GetEnvInt("T_BAD_NUM", 4); got != 4 {
		t.Errorf("GetEnvInt fallback = %v", got)
	}
	if !GetEnvBool("T_BOOL", false) {
		t.Errorf("GetEnvBool should parse 1 as true")
	}
	if got := GetEnvDuration("T_DUR", time.Second); got != 1500*time.Millisecond {
		t.Errorf("GetEnvDuration = %v", got)
	}
	if got := GetEnvDuration("T_DUR_SECS", time.Second); got != 3*time.Second {
		t.Errorf("GetEnvDuration seconds = %v", got)
	}
	if got := GetEnvDuration("T_MISSING", time.Minute); got != time.Minute {
		t.Errorf("GetEnvDuration default = %v", got)
	}
	list := GetEnvList("T_LIST", nil)
	if len(list) != 3 || list[0] != "a" || list[1] != "b" || list[2] != "c" {
		t.Errorf("GetEnvList = %v", list)
	}
}
