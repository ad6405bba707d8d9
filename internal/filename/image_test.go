package filename

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sample = "https://i.pximg.net/img-master/img/2024/01/02/03/04/05/12345_p0_master1200.jpg"

func TestHighResolution(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{sample, "https://i.pximg.net/img-original/img/2024/01/02/03/04/05/12345_p0.jpg"},
		{"https://i.pximg.net/img-original/img/2024/01/02/03/04/05/12345_p1.png", "https://i.pximg.net/img-original/img/2024/01/02/03/04/05/12345_p1.png"},
		{"https://example.test/plain.gif", "https://example.test/plain.gif"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HighResolution(tt.in), tt.in)
	}
}

func TestURLHelpers(t *testing.T) {
	assert.Equal(t, "jpg", Extension(sample))
	assert.Equal(t, "png", Extension("https://example.test/a/b.png?x=1"))
	assert.Equal(t, "", Extension("https://example.test/a/noext"))

	assert.Equal(t, "12345_p0_master1200", OriginalName(sample))
	assert.Equal(t, "2024-01-02_03-04-05", DateFromPath(sample))
	assert.Equal(t, "", DateFromPath("https://example.test/a.png"))
}

func TestLang(t *testing.T) {
	assert.Equal(t, "en", Lang("https://www.pixiv.net/en/artworks/1"))
	assert.Equal(t, "", Lang("https://www.pixiv.net/artworks/1"))
	assert.Equal(t, "", Lang("https://www.pixiv.net/"))
}
