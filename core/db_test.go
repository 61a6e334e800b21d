package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDBOrdering(t *testing.T) {
	tests := []struct {
		name string
		ord  DBOrdering
		want string
	}{
		{name: "ascending", ord: DBOrdering{Field: "name", Ascending: true}, want: "name ASC"},
		{name: "descending", ord: DBOrdering{Field: "created_at"}, want: "created_at DESC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ord.String())
		})
	}
}
