package filename

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		fields   Fields
		want     string
	}{
		{
			name:     "all tokens known",
			template: "%id%-%part%.%ext%",
			fields:   Fields{"id": "42", "part": "0", "ext": "png"},
			want:     "42-0.png",
		},
		{
			name:     "unknown token passes through",
			template: "%id%-%mystery%.%ext%",
			fields:   Fields{"id": "42", "ext": "png"},
			want:     "42-%mystery%.png",
		},
		{
			name:     "repeated token replaced everywhere",
			template: "%id%/%id%.%ext%",
			fields:   Fields{"id": "7", "ext": "jpg"},
			want:     "7/7.jpg",
		},
		{
			name:     "values are not re-expanded",
			template: "%artworkTitle% by %artworkAuthorName%",
			fields:   Fields{ArtworkTitle: "%artworkAuthorName%", ArtworkAuthorName: "someone"},
			want:     "%artworkAuthorName% by someone",
		},
		{
			name:     "stray percent signs",
			template: "100%% %id%",
			fields:   Fields{"id": "1"},
			want:     "100%% 1",
		},
		{
			name:     "empty value",
			template: "[%artworkId%]%imageFileExtension%",
			fields:   Fields{ArtworkID: "", ImageExtension: "gif"},
			want:     "[]gif",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.template, tt.fields))
		})
	}
}

func TestReferencedAndUnknown(t *testing.T) {
	tpl := "%artworkTitle% %artworkId% %artworkTitle% %colour%"
	assert.Equal(t, []string{ArtworkTitle, ArtworkID, "colour"}, Referenced(tpl))
	assert.Equal(t, []string{"colour"}, Unknown(tpl))
	assert.Empty(t, Unknown("%artworkId%.%imageFileExtension%"))
}

func TestKnownIsSorted(t *testing.T) {
	tokens := Known()
	assert.Len(t, tokens, 14)
	for i := 1; i < len(tokens); i++ {
		assert.Less(t, tokens[i-1].Name, tokens[i].Name)
	}
}
