package core_test

import (
	"reflect"
	"testing"

	"service-workorder/internal/core"
)

func TestCollectContacts(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  []string
	}{
		{
			name:  "comma separated",
			parts: []string{"a@x.com, b@x.com"},
			want:  []string{"a@x.com", "b@x.com"},
		},
		{
			name:  "newline separated",
			parts: []string{"a@x.com\nb@x.com\n\nc@x.com"},
			want:  []string{"a@x.com", "b@x.com", "c@x.com"},
		},
		{
			name:  "dedupes across parts in first-seen order",
			parts: []string{"admin@x.com", "cc@x.com, admin@x.com"},
			want:  []string{"admin@x.com", "cc@x.com"},
		},
		{
			name:  "trims and drops blanks",
			parts: []string{"  a@x.com ,  , ,b@x.com  "},
			want:  []string{"a@x.com", "b@x.com"},
		},
		{
			name:  "all empty",
			parts: []string{"", "  ", ",,,"},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.CollectContacts(tt.parts...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CollectContacts(%q) = %v, want %v", tt.parts, got, tt.want)
			}
		})
	}
}

func TestRecipientSet(t *testing.T) {
	s := core.NewRecipientSet("b@x.com", " a@x.com ")
	s.Add("b@x.com")
	s.Add("   ")
	s.AddAll([]string{"c@x.com", "a@x.com"})

	want := []string{"a@x.com", "b@x.com", "c@x.com"}
	if got := s.Sorted(); !reflect.DeepEqual(got, want) {
		t.Errorf("Sorted() = %v, want %v", got, want)
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
}

func TestRecipientSet_EmptySorted(t *testing.T) {
	if got := core.NewRecipientSet().Sorted(); got != nil {
		t.Errorf("Sorted() = %v, want nil", got)
	}
}
