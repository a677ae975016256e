package importer

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// buildArchive zips the given name->content entries into an in-memory EPUB.
func buildArchive(t *testing.T, files map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

// pngBytes encodes a solid-color PNG of the given size.
func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 180, G: 60, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

const testContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// chapterXHTML wraps body markup in a minimal XHTML document.
func chapterXHTML(body string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Chapter</title></head>
<body>` + body + `</body>
</html>`)
}

// testOPF builds a package document from raw manifest and spine markup.
func testOPF(manifest, spine string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Test Novel</dc:title>
    <dc:creator>Test Author</dc:creator>
    <dc:language>ja</dc:language>
  </metadata>
  <manifest>` + manifest + `</manifest>
  <spine>` + spine + `</spine>
</package>`)
}

// twoChapterEPUB is a baseline fixture: two text chapters, one image, a
// legacy NCX table of contents.
func twoChapterEPUB(t *testing.T) []byte {
	t.Helper()

	return buildArchive(t, map[string][]byte{
		"mimetype":               []byte("application/epub+zip"),
		"META-INF/container.xml": []byte(testContainerXML),
		"OEBPS/content.opf": testOPF(`
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="img1" href="images/pic.png" media-type="image/png"/>`, `
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>`),
		"OEBPS/text/ch1.xhtml": chapterXHTML(
			`<h1>Chapter One</h1><p>The first paragraph has words.</p><p>Another paragraph here.</p>`),
		"OEBPS/text/ch2.xhtml": chapterXHTML(
			`<p>Second chapter text.</p><p><img src="../images/pic.png" width="400" height="300"/></p>`),
		"OEBPS/toc.ncx": []byte(`<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="n1" playOrder="1">
      <navLabel><text>Chapter One</text></navLabel>
      <content src="text/ch1.xhtml"/>
    </navPoint>
    <navPoint id="n2" playOrder="2">
      <navLabel><text>Chapter Two</text></navLabel>
      <content src="text/ch2.xhtml#start"/>
    </navPoint>
  </navMap>
</ncx>`),
		"OEBPS/images/pic.png": pngBytes(t, 8, 8),
	})
}
