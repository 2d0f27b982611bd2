package controllers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	loc := time.FixedZone("CET", 3600)
	ts := time.Date(2025, 3, 1, 13, 30, 0, 0, loc)
	assert.Equal(t, "2025-03-01T12:30:00Z", formatTimePtr(&ts))
}
