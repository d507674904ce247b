package remote

import "testing"

func TestObjectName(t *testing.T) {
	cases := []struct {
		key      string
		expected string
	}{
		{"album/beach.jpg", "beach.jpg"},
		{"album/nested/sunset.png", "sunset.png"},
		{"beach day.jpg", "beach_day.jpg"},
		{"album/", ""},
		{"album/readme.txt", ""},
		{"album/.hidden", ""},
	}

	for _, tc := range cases {
		if got := ObjectName(tc.key); got != tc.expected {
			t.Errorf("ObjectName(%q) = %q, expected %q", tc.key, got, tc.expected)
		}
	}
}
