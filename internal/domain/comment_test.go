package domain

import "testing"

func TestComment_IsLive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		deleted bool
		hidden  bool
		want    bool
	}{
		{"live", false, false, true},
		{"deleted", true, false, false},
		{"hidden", false, true, false},
		{"deleted and hidden", true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := &Comment{Deleted: tt.deleted, Hidden: tt.hidden}
			if got := c.IsLive(); got != tt.want {
				t.Errorf("IsLive() = %v, want %v", got, tt.want)
			}
		})
	}
}
