package scgi

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// decodeResponse parses an XML-RPC methodResponse. Anything in front of the
// XML prolog (SCGI status and header lines) is ignored. Faults come back as
// *FaultError.
func decodeResponse(raw []byte) (any, error) {
	start := bytes.Index(raw, []byte("<?xml"))
	if start < 0 {
		start = bytes.Index(raw, []byte("<methodResponse"))
	}
	if start < 0 {
		return nil, fmt.Errorf("%w: no XML found", ErrMalformedResponse)
	}

	d := xml.NewDecoder(bytes.NewReader(raw[start:]))
	value, err := parseMethodResponse(d)
	if err != nil {
		if _, ok := err.(*FaultError); ok {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return value, nil
}

func parseMethodResponse(d *xml.Decoder) (any, error) {
	root, err := nextStart(d)
	if err != nil {
		return nil, err
	}
	if root.Name.Local != "methodResponse" {
		return nil, fmt.Errorf("unexpected root <%s>", root.Name.Local)
	}

	body, ok, err := nextChild(d)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var value any
	switch body.Name.Local {
	case "params":
		if value, err = parseParams(d); err != nil {
			return nil, err
		}
	case "fault":
		fault, err := parseFault(d)
		if err != nil {
			return nil, err
		}
		if err := expectEnd(d); err != nil {
			return nil, err
		}
		return nil, fault
	default:
		return nil, fmt.Errorf("unexpected <%s> in methodResponse", body.Name.Local)
	}
	return value, expectEnd(d)
}

// parseParams returns the single param's value, or nil for an empty list.
// It consumes the closing </params>.
func parseParams(d *xml.Decoder) (any, error) {
	param, ok, err := nextChild(d)
	if err != nil || !ok {
		return nil, err
	}
	if param.Name.Local != "param" {
		return nil, fmt.Errorf("unexpected <%s> in params", param.Name.Local)
	}
	if err := expectStart(d, "value"); err != nil {
		return nil, err
	}
	v, err := parseValue(d)
	if err != nil {
		return nil, err
	}
	if err := expectEnd(d); err != nil {
		return nil, err
	}
	return v, expectEnd(d)
}

func parseFault(d *xml.Decoder) (*FaultError, error) {
	if err := expectStart(d, "value"); err != nil {
		return nil, err
	}
	v, err := parseValue(d)
	if err != nil {
		return nil, err
	}
	fault := &FaultError{}
	if m, ok := v.(map[string]any); ok {
		if s, ok := m["faultString"].(string); ok {
			fault.Message = s
		}
		if c, ok := m["faultCode"].(int64); ok {
			fault.Code = c
		}
	}
	return fault, nil
}

// parseValue consumes everything up to and including the </value> that
// closes the <value> just read.
func parseValue(d *xml.Decoder) (any, error) {
	var text strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			// untyped value
			return text.String(), nil
		case xml.StartElement:
			v, err := parseTyped(d, t)
			if err != nil {
				return nil, err
			}
			if err := expectEnd(d); err != nil {
				return nil, err
			}
			return v, nil
		}
	}
}

func parseTyped(d *xml.Decoder, t xml.StartElement) (any, error) {
	switch t.Name.Local {
	case "string":
		return readText(d)
	case "i4", "i8", "int":
		s, err := readText(d)
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad <%s>: %w", t.Name.Local, err)
		}
		return n, nil
	case "double":
		s, err := readText(d)
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("bad <double>: %w", err)
		}
		return f, nil
	case "boolean":
		s, err := readText(d)
		if err != nil {
			return nil, err
		}
		switch strings.TrimSpace(s) {
		case "1", "true":
			return true, nil
		case "0", "false":
			return false, nil
		}
		return nil, fmt.Errorf("bad <boolean> %q", s)
	case "base64":
		s, err := readText(d)
		if err != nil {
			return nil, err
		}
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(s), ""))
		if err != nil {
			return nil, fmt.Errorf("bad <base64>: %w", err)
		}
		return b, nil
	case "array":
		return parseArray(d)
	case "struct":
		return parseStruct(d)
	case "nil":
		return nil, expectEnd(d)
	default:
		return nil, fmt.Errorf("unknown value type <%s>", t.Name.Local)
	}
}

func parseArray(d *xml.Decoder) (any, error) {
	if err := expectStart(d, "data"); err != nil {
		return nil, err
	}
	items := []any{}
	for {
		child, ok, err := nextChild(d)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if child.Name.Local != "value" {
			return nil, fmt.Errorf("unexpected <%s> in array data", child.Name.Local)
		}
		v, err := parseValue(d)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, expectEnd(d)
}

func parseStruct(d *xml.Decoder) (any, error) {
	out := map[string]any{}
	for {
		member, ok, err := nextChild(d)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		if member.Name.Local != "member" {
			return nil, fmt.Errorf("unexpected <%s> in struct", member.Name.Local)
		}
		if err := expectStart(d, "name"); err != nil {
			return nil, err
		}
		name, err := readText(d)
		if err != nil {
			return nil, err
		}
		if err := expectStart(d, "value"); err != nil {
			return nil, err
		}
		v, err := parseValue(d)
		if err != nil {
			return nil, err
		}
		out[name] = v
		if err := expectEnd(d); err != nil {
			return nil, err
		}
	}
}

// readText returns the character data of the current element and consumes
// its end tag.
func readText(d *xml.Decoder) (string, error) {
	var text strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return "", unexpectedEOF(err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			return text.String(), nil
		case xml.StartElement:
			return "", fmt.Errorf("unexpected <%s> in text element", t.Name.Local)
		}
	}
}

// nextChild returns the next child element of the current one. ok is false
// when the parent's end tag is reached instead; that tag is consumed.
func nextChild(d *xml.Decoder) (xml.StartElement, bool, error) {
	for {
		tok, err := d.Token()
		if err != nil {
			return xml.StartElement{}, false, unexpectedEOF(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, true, nil
		case xml.EndElement:
			return xml.StartElement{}, false, nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return xml.StartElement{}, false, fmt.Errorf("unexpected text %q", string(t))
			}
		}
	}
}

func nextStart(d *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := d.Token()
		if err != nil {
			return xml.StartElement{}, unexpectedEOF(err)
		}
		if t, ok := tok.(xml.StartElement); ok {
			return t, nil
		}
	}
}

func expectStart(d *xml.Decoder, name string) error {
	t, ok, err := nextChild(d)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("missing <%s>", name)
	}
	if t.Name.Local != name {
		return fmt.Errorf("expected <%s>, got <%s>", name, t.Name.Local)
	}
	return nil
}

// expectEnd skips whitespace up to the end tag of the current element.
func expectEnd(d *xml.Decoder) error {
	t, ok, err := nextChild(d)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("unexpected <%s>", t.Name.Local)
	}
	return nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
