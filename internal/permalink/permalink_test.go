package permalink

import "testing"

func TestZoteroItem(t *testing.T) {
	tests := []struct {
		name      string
		libraryID string
		key       string
		want      string
	}{
		{"group library", "4530692", "ABC123", "https://w3id.org/usgs/z/4530692/ABC123"},
		{"single char", "1", "K", "https://w3id.org/usgs/z/1/K"},
		{"lowercase key", "99", "abcd1234", "https://w3id.org/usgs/z/99/abcd1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ZoteroItem(tt.libraryID, tt.key)
			if got != tt.want {
				t.Errorf("ZoteroItem(%q, %q) = %q, want %q", tt.libraryID, tt.key, got, tt.want)
			}
			if again := ZoteroItem(tt.libraryID, tt.key); again != got {
				t.Errorf("ZoteroItem not deterministic: %q then %q", got, again)
			}
		})
	}
}

func TestZoteroItem_Prefix(t *testing.T) {
	got := ZoteroItem("4530692", "ABC123")
	want := ZoteroBase + "/4530692/ABC123"
	if got != want {
		t.Errorf("ZoteroItem() = %q, want %q", got, want)
	}
}

func TestScienceBaseItem(t *testing.T) {
	got := ScienceBaseItem("6618596fd34e7eb9eb7d7b7c")
	want := "https://w3id.org/usgs/sb/6618596fd34e7eb9eb7d7b7c"
	if got != want {
		t.Errorf("ScienceBaseItem() = %q, want %q", got, want)
	}
}
