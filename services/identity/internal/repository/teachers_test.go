package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextTeacherID(t *testing.T) {
	tests := []struct {
		last string
		want string
	}{
		{"", "SRIK-G-26001"},
		{"SRIK-G-26001", "SRIK-G-26002"},
		{"SRIK-G-26009", "SRIK-G-26010"},
		{"SRIK-G-26099", "SRIK-G-26100"},
		{"SRIK-G-25417", "SRIK-G-26001"},
		{"SRIK-G-26abc", "SRIK-G-26001"},
		{"SRIK-G-26999", "SRIK-G-261000"},
		{"SRIK-G-261000", "SRIK-G-261001"},
		{"SRIK-G-261234", "SRIK-G-261235"},
		{"SRIK-G-26-01", "SRIK-G-26001"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NextTeacherID("26", tt.last), tt.last)
	}
}
