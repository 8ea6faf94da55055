package scgi

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

func encodeCall(method string, args []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("<?xml version=\"1.0\"?>\n<methodCall>\n<methodName>")
	if err := xml.EscapeText(&buf, []byte(method)); err != nil {
		return nil, err
	}
	buf.WriteString("</methodName>\n<params>\n")
	for i, arg := range args {
		buf.WriteString("<param>")
		if err := encodeValue(&buf, arg); err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		buf.WriteString("</param>\n")
	}
	buf.WriteString("</params>\n</methodCall>")
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	buf.WriteString("<value>")
	switch x := v.(type) {
	case string:
		buf.WriteString("<string>")
		if err := xml.EscapeText(buf, []byte(x)); err != nil {
			return err
		}
		buf.WriteString("</string>")
	case []byte:
		buf.WriteString("<base64>")
		buf.WriteString(base64.StdEncoding.EncodeToString(x))
		buf.WriteString("</base64>")
	case bool:
		buf.WriteString("<boolean>")
		if x {
			buf.WriteByte('1')
		} else {
			buf.WriteByte('0')
		}
		buf.WriteString("</boolean>")
	case int:
		writeInt(buf, int64(x))
	case int8:
		writeInt(buf, int64(x))
	case int16:
		writeInt(buf, int64(x))
	case int32:
		writeInt(buf, int64(x))
	case int64:
		writeInt(buf, x)
	case uint8:
		writeInt(buf, int64(x))
	case uint16:
		writeInt(buf, int64(x))
	case uint32:
		writeInt(buf, int64(x))
	case uint:
		if uint64(x) > math.MaxInt64 {
			return fmt.Errorf("%w: %d overflows i8", ErrUnsupportedType, x)
		}
		writeInt(buf, int64(x))
	case uint64:
		if x > math.MaxInt64 {
			return fmt.Errorf("%w: %d overflows i8", ErrUnsupportedType, x)
		}
		writeInt(buf, int64(x))
	case float32:
		writeDouble(buf, float64(x))
	case float64:
		writeDouble(buf, x)
	case []any:
		buf.WriteString("<array><data>")
		for _, item := range x {
			if err := encodeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteString("</data></array>")
	default:
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return fmt.Errorf("%w: %T", ErrUnsupportedType, v)
		}
		buf.WriteString("<array><data>")
		for i := 0; i < rv.Len(); i++ {
			if err := encodeValue(buf, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		buf.WriteString("</data></array>")
	}
	buf.WriteString("</value>")
	return nil
}

// writeInt uses i4 when the value fits, i8 otherwise.
func writeInt(buf *bytes.Buffer, n int64) {
	tag := "i4"
	if n < math.MinInt32 || n > math.MaxInt32 {
		tag = "i8"
	}
	buf.WriteString("<" + tag + ">")
	buf.WriteString(strconv.FormatInt(n, 10))
	buf.WriteString("</" + tag + ">")
}

func writeDouble(buf *bytes.Buffer, f float64) {
	buf.WriteString("<double>")
	buf.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
	buf.WriteString("</double>")
}
