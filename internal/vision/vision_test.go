package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  Analysis
	}{
		{
			name:  "PlainJSON",
			reply: `{"text":" 好的 ","description":"猫正在睡觉"}`,
			want:  Analysis{ExtractedText: "好的", Description: "猫正在睡觉"},
		},
		{
			name:  "FencedJSON",
			reply: "```json\n{\"text\":\"hi\",\"description\":\"a dog\"}\n```",
			want:  Analysis{ExtractedText: "hi", Description: "a dog"},
		},
		{
			name:  "Labelled",
			reply: "text: hello there\ndescription: a waving cat",
			want:  Analysis{ExtractedText: "hello there", Description: "a waving cat"},
		},
		{
			name:  "Unstructured",
			reply: "  just a picture  ",
			want:  Analysis{Description: "just a picture"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.reply))
		})
	}
}

func TestImageFormat(t *testing.T) {
	assert.Equal(t, "png", imageFormat("image/png"))
	assert.Equal(t, "webp", imageFormat("webp"))
	assert.Equal(t, "jpeg", imageFormat(""))
}

func TestNewGemini(t *testing.T) {
	_, err := NewGemini(types.VisionConfig{})
	assert.ErrorIs(t, err, ErrAPIKeyMissing)

	g, err := NewGemini(types.VisionConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, g.model)
}
