package woff

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/tdewolff/test"
)

func TestParseMetadataTree(t *testing.T) {
	src := `<?xml version="1.0" encoding="UTF-8"?>
<metadata version="1.0">
  <uniqueid id="org.example.myfont"/>
  <vendor name="Example Type" url="https://example.org"/>
  <credits>
    <credit name="Jane Doe" role="designer"/>
  </credits>
  <description>
    <text>A sample description.</text>
    <text lang="fr">Une description d'exemple.</text>
  </description>
  <license url="https://example.org/license">
    <text>All rights reserved.</text>
  </license>
</metadata>`

	tree, err := ParseMetadata([]byte(src))
	test.Error(t, err)
	test.T(t, tree.Name, "metadata")

	version, ok := tree.Attr("version")
	test.T(t, ok, true)
	test.T(t, version, "1.0")

	vendors := tree.ChildrenOf("vendor")
	test.T(t, len(vendors), 1)
	name, ok := vendors[0].Attr("name")
	test.T(t, ok, true)
	test.T(t, name, "Example Type")

	descriptions := tree.ChildrenOf("description")
	test.T(t, len(descriptions), 1)
	texts := descriptions[0].ChildrenOf("text")
	test.T(t, len(texts), 2)
	test.T(t, texts[0].Text, "A sample description.")
	lang, ok := texts[1].Attr("lang")
	test.T(t, ok, true)
	test.T(t, lang, "fr")
}

func TestSerializeMetadataAlwaysPrependsDeclaration(t *testing.T) {
	tree := &MetadataElement{Name: "metadata"}
	out := SerializeMetadata(tree)
	if !strings.HasPrefix(string(out), xmlDeclaration) {
		test.Fail(t, "expected the XML declaration to be prepended")
	}

	reparsed, err := ParseMetadata(out)
	test.Error(t, err)
	test.T(t, reparsed.Name, "metadata")
}

func TestSerializeMetadataEscapesAttributesAndText(t *testing.T) {
	tree := &MetadataElement{
		Name: "credit",
		Attrs: []xml.Attr{
			{Name: xml.Name{Local: "name"}, Value: `Jane "JD" Doe & Co`},
		},
		Text: "x < y",
	}
	out := string(SerializeMetadata(tree))
	if strings.Contains(out, `"JD"`) {
		test.Fail(t, "expected the quote characters in the attribute value to be escaped")
	}
	if !strings.Contains(out, "&amp;") {
		test.Fail(t, "expected & to be escaped to &amp;")
	}
	if !strings.Contains(out, "x &lt; y") {
		test.Fail(t, "expected < in the text to be escaped to &lt;")
	}
}

func TestParseMetadataUnbalancedIsError(t *testing.T) {
	_, err := ParseMetadata([]byte(`<metadata version="1.0"><vendor name="x"></metadata>`))
	if err == nil {
		test.Fail(t, "expected an error for mismatched end tags")
	}
}
