package capture

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekURL(t *testing.T) {
	day := time.Date(2025, 12, 3, 0, 0, 0, 0, time.UTC)

	cases := map[string]string{
		"http://127.0.0.1:8080":       "http://127.0.0.1:8080/week?start=2025-12-03",
		"http://127.0.0.1:8080/":      "http://127.0.0.1:8080/week?start=2025-12-03",
		"127.0.0.1:8080":              "http://127.0.0.1:8080/week?start=2025-12-03",
		":8080":                       "http://127.0.0.1:8080/week?start=2025-12-03",
		"https://cal.example.edu/app": "https://cal.example.edu/app/week?start=2025-12-03",
	}
	for base, want := range cases {
		got, err := WeekURL(base, day)
		require.NoError(t, err, base)
		assert.Equal(t, want, got, base)
	}
}

func TestOptionsDefaults(t *testing.T) {
	_, err := Options{OutputPath: "x.png"}.withDefaults()
	assert.Error(t, err)

	_, err = Options{URL: "http://x/week"}.withDefaults()
	assert.Error(t, err)

	o, err := Options{URL: "http://x/week", OutputPath: "x.png"}.withDefaults()
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, time.Duration(DefaultTimeoutSec)*time.Second, o.Timeout)
}

func TestCaptureRejectsMissingURL(t *testing.T) {
	err := CaptureWeekPNG(context.Background(), Options{OutputPath: t.TempDir() + "/week.png"})
	assert.ErrorContains(t, err, "URL is required")
}

func TestAuthHeader(t *testing.T) {
	h := authHeader("student", "s3cret")
	require.Contains(t, h, "Basic ")
	raw, err := base64.StdEncoding.DecodeString(h[len("Basic "):])
	require.NoError(t, err)
	assert.Equal(t, "student:s3cret", string(raw))
}
