package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sohilsayed/Mangatan-sub002/internal/epub"
)

func TestExtractImagesVariantKeys(t *testing.T) {
	a, err := epub.OpenArchive(buildArchive(t, map[string][]byte{
		"OEBPS/images/cover.jpg": []byte("jpegbytes"),
		"OEBPS/ch1.xhtml":        chapterXHTML(`<p>x</p>`),
	}))
	require.NoError(t, err)

	store := extractImages(a, 4, zap.NewNop(), nil)

	plain, ok := store.Lookup("OEBPS/images/cover.jpg")
	require.True(t, ok)
	slashed, ok := store.Lookup("/OEBPS/images/cover.jpg")
	require.True(t, ok)

	assert.Equal(t, plain, slashed)
	assert.True(t, strings.HasPrefix(plain, "data:image/jpeg;base64,"))
	assert.Equal(t, 1, store.Len())

	_, ok = store.Lookup("OEBPS/ch1.xhtml")
	assert.False(t, ok)
}

func TestExtractImagesBatches(t *testing.T) {
	files := map[string][]byte{}
	for _, name := range []string{"a.png", "b.png", "c.png", "d.png", "e.png"} {
		files["img/"+name] = []byte(name)
	}
	a, err := epub.OpenArchive(buildArchive(t, files))
	require.NoError(t, err)

	var batches [][2]int
	store := extractImages(a, 2, zap.NewNop(), func(done, total int) {
		batches = append(batches, [2]int{done, total})
	})

	assert.Equal(t, 5, store.Len())
	// Five images in batches of two: completion points at 2, 4, 5.
	assert.Equal(t, [][2]int{{2, 5}, {4, 5}, {5, 5}}, batches)
}

func TestMimeForImage(t *testing.T) {
	assert.Equal(t, "image/jpeg", mimeForImage("a/b.JPG"))
	assert.Equal(t, "image/svg+xml", mimeForImage("x.svg"))
	assert.Equal(t, "image/png", mimeForImage("weird.xyz"))
}

func TestIsImagePath(t *testing.T) {
	assert.True(t, isImagePath("images/pic.webp"))
	assert.False(t, isImagePath("text/ch1.xhtml"))
	assert.False(t, isImagePath("styles/main.css"))
}
