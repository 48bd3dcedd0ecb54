package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"bitspec/internal/diag"
	"bitspec/internal/directive"
	"bitspec/internal/source"
)

const dekuKey = "deku"

type loader struct {
	fs   *source.FileSet
	file *source.File
	rep  diag.Reporter
}

// Load parses the file id of fs into a Schema. Unknown directive names are
// reported to r and dropped; anything else that does not fit the layout is a
// *LoadError.
func Load(fs *source.FileSet, id source.FileID, r diag.Reporter) (*Schema, error) {
	file := fs.Get(id)
	if file == nil {
		return nil, fmt.Errorf("schema: unknown file id %d", id)
	}
	if r == nil {
		r = diag.NopReporter{}
	}
	l := &loader{fs: fs, file: file, rep: r}

	var root yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(file.Content))
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return &Schema{File: id, Path: file.Path}, nil
		}
		return nil, &LoadError{Path: file.Path, Msg: "invalid YAML", Err: err}
	}
	doc := &root
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return &Schema{File: id, Path: file.Path}, nil
		}
		doc = doc.Content[0]
	}

	s := &Schema{File: id, Path: file.Path}
	if doc.Kind == yaml.ScalarNode && doc.Tag == "!!null" {
		return s, nil
	}
	fields, err := l.mapping(doc, "containers")
	if err != nil {
		return nil, err
	}
	list, ok := fields["containers"]
	if !ok {
		return s, nil
	}
	if list.value.Kind == yaml.ScalarNode && list.value.Tag == "!!null" {
		return s, nil
	}
	if list.value.Kind != yaml.SequenceNode {
		return nil, l.errorf(list.value, "containers must be a sequence")
	}
	s.Containers = make([]*Node, 0, len(list.value.Content))
	for _, item := range list.value.Content {
		n, err := l.container(item)
		if err != nil {
			return nil, err
		}
		s.Containers = append(s.Containers, n)
	}
	return s, nil
}

type entry struct {
	key   *yaml.Node
	value *yaml.Node
}

// mapping checks that n is a mapping with keys from allowed, without repeats.
func (l *loader) mapping(n *yaml.Node, allowed ...string) (map[string]entry, error) {
	if n.Kind == yaml.AliasNode {
		return nil, l.errorf(n, "aliases are not supported")
	}
	if n.Kind != yaml.MappingNode {
		return nil, l.errorf(n, "expected a mapping")
	}
	out := make(map[string]entry, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, l.errorf(k, "mapping keys must be scalars")
		}
		if first, dup := out[k.Value]; dup {
			return nil, &LoadError{
				Path: l.file.Path, Line: k.Line, Column: k.Column,
				Err: &DuplicateKeyError{Key: k.Value, FirstLine: first.key.Line, FirstCol: first.key.Column, Line: k.Line, Col: k.Column},
			}
		}
		if !slices.Contains(allowed, k.Value) {
			return nil, l.errorf(k, "unexpected key %q", k.Value)
		}
		out[k.Value] = entry{key: k, value: v}
	}
	return out, nil
}

func (l *loader) container(n *yaml.Node) (*Node, error) {
	fields, err := l.mapping(n, "enum", "struct", dekuKey, "variants", "fields")
	if err != nil {
		return nil, err
	}
	enumEntry, isEnum := fields["enum"]
	structEntry, isStruct := fields["struct"]
	switch {
	case isEnum && isStruct:
		return nil, l.errorf(structEntry.key, "container is both enum and struct")
	case !isEnum && !isStruct:
		return nil, l.errorf(n, "container needs an enum or struct key")
	}

	node := &Node{}
	var named entry
	var childKey string
	if isEnum {
		node.Kind, named, childKey = KindEnum, enumEntry, "variants"
		if _, bad := fields["fields"]; bad {
			return nil, l.errorf(fields["fields"].key, "enum %q declares fields; use variants", enumEntry.value.Value)
		}
	} else {
		node.Kind, named, childKey = KindStruct, structEntry, "fields"
		if _, bad := fields["variants"]; bad {
			return nil, l.errorf(fields["variants"].key, "struct %q declares variants", structEntry.value.Value)
		}
	}
	if node.Name, node.Span, err = l.name(named.value); err != nil {
		return nil, err
	}
	if d, ok := fields[dekuKey]; ok {
		if node.Directives, err = l.directives(d.value, node.Name); err != nil {
			return nil, err
		}
	}
	if c, ok := fields[childKey]; ok {
		memberKind := KindField
		if node.Kind == KindEnum {
			memberKind = KindVariant
		}
		if node.Children, err = l.members(c.value, memberKind, node.Name); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (l *loader) members(n *yaml.Node, kind NodeKind, parent string) ([]*Node, error) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, l.errorf(n, "expected a sequence of %ss", kind)
	}
	out := make([]*Node, 0, len(n.Content))
	for _, item := range n.Content {
		m, err := l.member(item, kind, parent)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (l *loader) member(n *yaml.Node, kind NodeKind, parent string) (*Node, error) {
	allowed := []string{"name", dekuKey, "fields"}
	if kind == KindField {
		allowed = []string{"name", "type", dekuKey}
	}
	fields, err := l.mapping(n, allowed...)
	if err != nil {
		return nil, err
	}
	nameEntry, ok := fields["name"]
	if !ok {
		return nil, l.errorf(n, "%s needs a name", kind)
	}
	node := &Node{Kind: kind}
	if node.Name, node.Span, err = l.name(nameEntry.value); err != nil {
		return nil, err
	}
	if t, ok := fields["type"]; ok {
		if t.value.Kind != yaml.ScalarNode {
			return nil, l.errorf(t.value, "field type must be a scalar")
		}
		node.Type = strings.TrimSpace(t.value.Value)
	}
	if d, ok := fields[dekuKey]; ok {
		if node.Directives, err = l.directives(d.value, Path(parent, node.Name)); err != nil {
			return nil, err
		}
	}
	if c, ok := fields["fields"]; ok {
		if node.Children, err = l.members(c.value, KindField, Path(parent, node.Name)); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (l *loader) name(n *yaml.Node) (string, source.Span, error) {
	if n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return "", source.Span{}, l.errorf(n, "name must be a non-empty scalar")
	}
	name := norm.NFC.String(strings.TrimSpace(n.Value))
	if name == "" {
		return "", source.Span{}, l.errorf(n, "name must be a non-empty scalar")
	}
	return name, l.span(n), nil
}

// directives keeps declaration order and passes repeated keys through.
func (l *loader) directives(n *yaml.Node, path string) ([]Directive, error) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, l.errorf(n, "deku must be a mapping of directives")
	}
	out := make([]Directive, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, l.errorf(k, "directive names must be scalars")
		}
		keySpan := l.span(k)
		spec, ok := directive.Lookup(k.Value)
		if !ok {
			diag.ReportError(l.rep, diag.SchUnknownDirective, keySpan, path,
				fmt.Sprintf("unknown directive %q", k.Value)).
				WithDirectives(k.Value).
				Emit()
			continue
		}
		d := Directive{Key: spec.Key, Name: spec.Name, Span: keySpan, ValueSpan: keySpan}
		switch {
		case v.Kind == yaml.ScalarNode && v.Tag == "!!null":
		case v.Kind == yaml.ScalarNode:
			d.Value = v.Value
			d.HasValue = true
			d.ValueSpan = l.span(v)
		default:
			return nil, l.errorf(v, "value of directive %q must be a scalar", k.Value)
		}
		out = append(out, d)
	}
	return out, nil
}

// span converts a yaml position into a byte span. yaml.v3 columns count runes.
func (l *loader) span(n *yaml.Node) source.Span {
	line := l.file.GetLine(uint32(max(n.Line, 0))) //nolint:gosec // yaml lines are small and non-negative
	col := byteColumn(line, n.Column)
	length := len(n.Value)
	switch n.Style {
	case yaml.DoubleQuotedStyle, yaml.SingleQuotedStyle:
		length += 2
	case yaml.LiteralStyle, yaml.FoldedStyle:
		length = 1
	}
	if rest := len(line) - (col - 1); rest >= 0 && length > rest {
		length = rest
	}
	return l.fs.SpanAt(l.file.ID, n.Line, col, length)
}

func byteColumn(line string, runeCol int) int {
	if runeCol <= 1 {
		return 1
	}
	off := 0
	for i := 1; i < runeCol && off < len(line); i++ {
		_, size := utf8.DecodeRuneInString(line[off:])
		off += size
	}
	return off + 1
}

func (l *loader) errorf(n *yaml.Node, format string, args ...any) *LoadError {
	return &LoadError{Path: l.file.Path, Line: n.Line, Column: n.Column, Msg: fmt.Sprintf(format, args...)}
}
