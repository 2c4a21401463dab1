package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckStructure(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		warnings bool
	}{
		{"valid contract", "title: Users\ntype: object\nproperties:\n  id:\n    type: integer\nrequired: [id]\n", false},
		{"missing type", "properties:\n  id:\n    type: integer\n", true},
		{"no properties", "type: object\nproperties: {}\n", true},
		{"required not strings", "type: object\nproperties:\n  id: {}\nrequired: [1]\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := CheckStructure(parseNode(t, tt.doc))
			if tt.warnings {
				assert.NotEmpty(t, warnings)
			} else {
				assert.Empty(t, warnings)
			}
		})
	}
	assert.NotEmpty(t, CheckStructure(nil))
}
