package repository

import "testing"

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"", ""},
		{":memory:", ":memory:"},
		{"file:cache.db?mode=ro", "file:cache.db?mode=ro"},
		{"./data/cache.db", "file:./data/cache.db?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := sqliteDSN(tt.path); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
