package storage

import (
	"reflect"
	"testing"
)

func TestParseAnchors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int
		wantErr bool
	}{
		{"single day", "15", []int{15}, false},
		{"semi-monthly pair", "1,15", []int{1, 15}, false},
		{"spaces tolerated", " 3 , 31 ", []int{3, 31}, false},
		{"semi-annual quad", "3,31,9,30", []int{3, 31, 9, 30}, false},
		{"empty is nil", "", nil, false},
		{"junk", "1,abc", nil, true},
		{"trailing comma", "1,15,", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAnchors(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseAnchors(%q) = %v, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAnchors(%q) error = %v", tt.raw, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseAnchors(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
