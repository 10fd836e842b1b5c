package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinText(t *testing.T) {
	tests := []struct {
		name   string
		blocks []TextBlock
		want   string
	}{
		{"no blocks", nil, ""},
		{"one component", []TextBlock{{Components: []TextComponent{{Value: "hello"}}}}, "hello \n"},
		{
			"two blocks",
			[]TextBlock{
				{Components: []TextComponent{{Value: "Total"}, {Value: "12.50"}}},
				{Components: []TextComponent{{Value: "Thanks"}}},
			},
			"Total 12.50 \nThanks \n",
		},
		{"empty block still ends a line", []TextBlock{{}}, "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JoinText(tt.blocks))
		})
	}
}
