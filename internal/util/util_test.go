package util

import "testing"

func TestContentHash(t *testing.T) {
	testCases := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "Empty content",
			content:  "",
			expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:     "Known value",
			content:  "abc",
			expected: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ContentHash([]byte(tc.content)); got != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, got)
			}
		})
	}

	t.Run("Different content yields different hashes", func(t *testing.T) {
		if ContentHash([]byte("REDUX")) == ContentHash([]byte("REDUX 2.0")) {
			t.Error("Expected different hashes for different content")
		}
	})
}
