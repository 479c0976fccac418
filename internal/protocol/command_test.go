package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePriority(t *testing.T) {
	tests := map[string]int{
		"0":  0,
		"5":  5,
		"9":  9,
		"":   defaultPriority,
		"10": defaultPriority,
		"a":  defaultPriority,
		" ":  defaultPriority,
	}
	for raw, want := range tests {
		assert.Equal(t, want, parsePriority(raw), "raw=%q", raw)
	}
}

func TestParseID_StripsHexPrefix(t *testing.T) {
	assert.Equal(t, "321", parseID("0x321"))
	assert.Equal(t, "321", parseID("0X321"))
	assert.Equal(t, "123", parseID(" 123 "))
}

func TestParseMillis(t *testing.T) {
	v, err := parseMillis("250ms")
	assert.NoError(t, err)
	assert.Equal(t, int64(250), v)

	v, err = parseMillis(" 1000 ")
	assert.NoError(t, err)
	assert.Equal(t, int64(1000), v)

	_, err = parseMillis("abc")
	assert.Error(t, err)

	v, err = parseMillis("-5")
	assert.NoError(t, err)
	assert.Equal(t, int64(-5), v)
}

func TestCanPayload(t *testing.T) {
	assert.Equal(t, "321#ABCDEF00", canPayload("321", "ABCDEF00"))
}

func TestCommandVerb(t *testing.T) {
	tests := map[string]string{
		"CANSEND#123#DEADBEEF#1000#vcan0": "CANSEND",
		"SEND_TASK#1#AA#500#vcan0":        "SEND_TASK",
		"PAUSE task_0":                    "PAUSE",
		"KILL_ALL_TASKS":                  "KILL_ALL_TASKS",
		"SHUTDOWN":                        "SHUTDOWN",
	}
	for line, want := range tests {
		assert.Equal(t, want, commandVerb(line), "line=%q", line)
	}
}
