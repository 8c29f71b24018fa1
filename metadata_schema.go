package woff

import "fmt"

// elementRule describes the attribute/text/child contract for one element
// of the WOFF 1.0 metadata vocabulary (§4.8), parameterised the way the
// spec's "abstract element" predicate is: required/optional attributes,
// whether free text is required or forbidden, and the expected children.
type elementRule struct {
	requiredAttrs []string
	optionalAttrs []string
	requireText   bool
	forbidText    bool
	// knownChildren, when non-nil, restricts which child element names are
	// recognised (anything else is a forward-compat WARNING). An empty
	// knownChildren (non-nil, zero length) means "no children expected".
	// Every entry must occur at least once: a missing one is an ERROR
	// (credits/credit, description/text, license/text, copyright/text,
	// trademark/text all require "one or more").
	knownChildren []string
}

var metadataRules = map[string]elementRule{
	"uniqueid":    {requiredAttrs: []string{"id"}, forbidText: true, knownChildren: []string{}},
	"vendor":      {requiredAttrs: []string{"name"}, optionalAttrs: []string{"url"}, forbidText: true, knownChildren: []string{}},
	"credits":     {forbidText: true, knownChildren: []string{"credit"}},
	"credit":      {requiredAttrs: []string{"name"}, optionalAttrs: []string{"url", "role"}, forbidText: true, knownChildren: []string{}},
	"description": {forbidText: true, knownChildren: []string{"text"}},
	"license":     {optionalAttrs: []string{"url", "id"}, forbidText: true, knownChildren: []string{"text"}},
	"copyright":   {forbidText: true, knownChildren: []string{"text"}},
	"trademark":   {forbidText: true, knownChildren: []string{"text"}},
	"licensee":    {requiredAttrs: []string{"name"}, forbidText: true, knownChildren: []string{}},
	"text":        {optionalAttrs: []string{"lang"}, requireText: true},
}

// topLevelChildren is the set of recognised <metadata> children, in the
// order §4.8's table lists them, along with the severity emitted when an
// optional child is entirely absent (uniqueid is a WARNING, everything
// else is a NOTE).
var topLevelChildren = []string{"uniqueid", "vendor", "credits", "description", "license", "copyright", "trademark", "licensee"}

// checkMetadataSchema validates root (the parsed <metadata> element)
// against the §4.8 vocabulary, reporting findings through v.
func checkMetadataSchema(root *MetadataElement, v *validation) {
	if root.Name != "metadata" {
		v.fail("metadata root element must be named 'metadata'", root.Name)
		return
	}
	if version, ok := root.Attr("version"); !ok {
		v.fail("metadata root element is missing the 'version' attribute", "")
	} else if version == "" {
		v.fail("metadata root element has an empty 'version' attribute", "")
	} else if version != "1.0" {
		v.warn("metadata root element version is not '1.0'", version)
	}
	if root.Text != "" {
		v.fail("metadata root element must not contain text", "")
	}

	seen := map[string]int{}
	unrecognised := false
	for _, child := range root.Children {
		seen[child.Name]++
		if _, ok := metadataRules[child.Name]; !ok {
			unrecognised = true
		}
		if seen[child.Name] > 1 {
			v.warn("duplicate top-level metadata element", child.Name)
		}
		checkElement(child, v, "metadata")
	}

	for _, name := range topLevelChildren {
		if seen[name] > 0 {
			continue
		}
		if name == "uniqueid" {
			v.warn("metadata is missing a uniqueid element", "")
		} else {
			v.note("metadata has no "+name+" element", "")
		}
	}

	if !unrecognised {
		v.pass("no unrecognised top-level structure found")
	}
}

// checkElement applies elementRule to el (a direct or nested child whose
// parent is named parentName), recursing into known children.
func checkElement(el *MetadataElement, v *validation, parentName string) {
	rule, known := metadataRules[el.Name]
	if !known {
		v.warn(fmt.Sprintf("unrecognised element '%s' inside '%s'", el.Name, parentName), "")
		return
	}

	attrs := map[string]string{}
	for _, a := range el.Attrs {
		attrs[a.Name.Local] = a.Value
	}
	for _, name := range rule.requiredAttrs {
		val, ok := attrs[name]
		if !ok {
			v.fail(fmt.Sprintf("'%s' element is missing required attribute '%s'", el.Name, name), "")
		} else if val == "" {
			v.fail(fmt.Sprintf("'%s' element has an empty '%s' attribute", el.Name, name), "")
		}
	}
	allowed := map[string]bool{}
	for _, name := range rule.requiredAttrs {
		allowed[name] = true
	}
	for _, name := range rule.optionalAttrs {
		allowed[name] = true
		if val, ok := attrs[name]; ok && val == "" {
			v.fail(fmt.Sprintf("'%s' element has an empty '%s' attribute", el.Name, name), "")
		}
	}
	for _, a := range el.Attrs {
		if !allowed[a.Name.Local] {
			v.warn(fmt.Sprintf("unrecognised attribute '%s' on '%s'", a.Name.Local, el.Name), "")
		}
	}

	if rule.forbidText && hasNonEmptyText(el) {
		v.fail(fmt.Sprintf("'%s' element must not contain text", el.Name), "")
	}
	if rule.requireText && el.Text == "" {
		v.fail(fmt.Sprintf("'%s' element must contain non-empty text", el.Name), "")
	}

	if el.Name == "text" {
		return // leaf; duplicate-lang check happens at the parent below
	}

	childSeen := map[string]int{}
	for _, c := range el.Children {
		childSeen[c.Name]++
		expected := rule.knownChildren == nil
		for _, name := range rule.knownChildren {
			if c.Name == name {
				expected = true
			}
		}
		if !expected {
			v.warn(fmt.Sprintf("unrecognised element '%s' inside '%s'", c.Name, el.Name), "")
			continue
		}
		checkElement(c, v, el.Name)
	}
	for _, want := range rule.knownChildren {
		if childSeen[want] == 0 {
			v.fail(fmt.Sprintf("'%s' element must contain at least one '%s' child", el.Name, want), "")
		}
	}
	if len(rule.knownChildren) == 1 && rule.knownChildren[0] == "text" {
		checkDuplicateLang(el, v)
	}
}

// checkDuplicateLang enforces that a <description>/<license>/<copyright>/
// <trademark> parent's <text> children carry distinct lang buckets (an
// absent lang attribute is its own bucket), per §4.8.
func checkDuplicateLang(parent *MetadataElement, v *validation) {
	texts := parent.ChildrenOf("text")
	seen := map[string]bool{}
	for _, t := range texts {
		lang, _ := t.Attr("lang")
		if seen[lang] {
			if lang == "" {
				v.fail(fmt.Sprintf("duplicate text language (undefined) inside '%s'", parent.Name), "")
			} else {
				v.fail(fmt.Sprintf("duplicate text language '%s' inside '%s'", lang, parent.Name), "")
			}
			continue
		}
		seen[lang] = true
	}
}

func hasNonEmptyText(el *MetadataElement) bool {
	for _, c := range el.Text {
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return true
		}
	}
	return false
}
