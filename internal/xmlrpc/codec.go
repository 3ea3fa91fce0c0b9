// Package xmlrpc is the RPC transport adapter. It speaks the classic
// XML-RPC wire format with a hand-rolled codec over encoding/xml,
// covering only the value types the gateway exchanges.
package xmlrpc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"model-gateway/internal/store"
)

type methodCall struct {
	XMLName xml.Name   `xml:"methodCall"`
	Name    string     `xml:"methodName"`
	Params  []rpcParam `xml:"params>param"`
}

type rpcParam struct {
	Value rpcValue `xml:"value"`
}

type rpcValue struct {
	Int     *string    `xml:"int"`
	I4      *string    `xml:"i4"`
	Boolean *string    `xml:"boolean"`
	Str     *string    `xml:"string"`
	Double  *string    `xml:"double"`
	Array   *rpcArray  `xml:"array"`
	Struct  *rpcStruct `xml:"struct"`
	Nil     *struct{}  `xml:"nil"`
	Text    string     `xml:",chardata"`
}

type rpcArray struct {
	Values []rpcValue `xml:"data>value"`
}

type rpcStruct struct {
	Members []rpcMember `xml:"member"`
}

type rpcMember struct {
	Name  string   `xml:"name"`
	Value rpcValue `xml:"value"`
}

// parseCall decodes a methodCall body into a method name and decoded
// Go parameter values.
func parseCall(body []byte) (string, []interface{}, error) {
	var call methodCall
	if err := xml.Unmarshal(body, &call); err != nil {
		return "", nil, fmt.Errorf("malformed XML-RPC request: %w", err)
	}
	if call.Name == "" {
		return "", nil, fmt.Errorf("malformed XML-RPC request: missing methodName")
	}

	params := make([]interface{}, 0, len(call.Params))
	for _, p := range call.Params {
		v, err := decodeValue(p.Value)
		if err != nil {
			return "", nil, err
		}
		params = append(params, v)
	}
	return call.Name, params, nil
}

func decodeValue(v rpcValue) (interface{}, error) {
	switch {
	case v.Nil != nil:
		return nil, nil
	case v.Boolean != nil:
		return strings.TrimSpace(*v.Boolean) == "1", nil
	case v.Int != nil:
		return parseInt(*v.Int)
	case v.I4 != nil:
		return parseInt(*v.I4)
	case v.Double != nil:
		f, err := strconv.ParseFloat(strings.TrimSpace(*v.Double), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed double value: %w", err)
		}
		return f, nil
	case v.Str != nil:
		return *v.Str, nil
	case v.Array != nil:
		out := make([]interface{}, 0, len(v.Array.Values))
		for _, elem := range v.Array.Values {
			decoded, err := decodeValue(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, decoded)
		}
		return out, nil
	case v.Struct != nil:
		out := make(map[string]interface{}, len(v.Struct.Members))
		for _, m := range v.Struct.Members {
			decoded, err := decodeValue(m.Value)
			if err != nil {
				return nil, err
			}
			out[m.Name] = decoded
		}
		return out, nil
	default:
		// An untyped value carries its text as a string.
		return strings.TrimSpace(v.Text), nil
	}
}

func parseInt(s string) (interface{}, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed int value: %w", err)
	}
	return n, nil
}

// marshalResponse renders a single-param methodResponse.
func marshalResponse(result interface{}) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<methodResponse><params><param>")
	encodeValue(&buf, result)
	buf.WriteString("</param></params></methodResponse>")
	return buf.Bytes()
}

// marshalFault renders a fault response with a numeric code.
func marshalFault(code int, message string) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<methodResponse><fault><value><struct>")
	buf.WriteString("<member><name>faultCode</name><value><int>")
	buf.WriteString(strconv.Itoa(code))
	buf.WriteString("</int></value></member>")
	buf.WriteString("<member><name>faultString</name><value><string>")
	_ = xml.EscapeText(&buf, []byte(message))
	buf.WriteString("</string></value></member>")
	buf.WriteString("</struct></value></fault></methodResponse>")
	return buf.Bytes()
}

func encodeValue(buf *bytes.Buffer, v interface{}) {
	buf.WriteString("<value>")
	switch val := v.(type) {
	case nil:
		buf.WriteString("<nil/>")
	case bool:
		if val {
			buf.WriteString("<boolean>1</boolean>")
		} else {
			buf.WriteString("<boolean>0</boolean>")
		}
	case int:
		fmt.Fprintf(buf, "<int>%d</int>", val)
	case int64:
		fmt.Fprintf(buf, "<int>%d</int>", val)
	case float64:
		fmt.Fprintf(buf, "<double>%g</double>", val)
	case string:
		buf.WriteString("<string>")
		_ = xml.EscapeText(buf, []byte(val))
		buf.WriteString("</string>")
	case []interface{}:
		buf.WriteString("<array><data>")
		for _, elem := range val {
			encodeValue(buf, elem)
		}
		buf.WriteString("</data></array>")
	case []int64:
		buf.WriteString("<array><data>")
		for _, elem := range val {
			encodeValue(buf, elem)
		}
		buf.WriteString("</data></array>")
	case []string:
		buf.WriteString("<array><data>")
		for _, elem := range val {
			encodeValue(buf, elem)
		}
		buf.WriteString("</data></array>")
	case map[string]interface{}:
		encodeStruct(buf, val)
	case map[string]bool:
		converted := make(map[string]interface{}, len(val))
		for k, b := range val {
			converted[k] = b
		}
		encodeStruct(buf, converted)
	case []map[string]interface{}:
		buf.WriteString("<array><data>")
		for _, elem := range val {
			encodeValue(buf, elem)
		}
		buf.WriteString("</data></array>")
	case store.Record:
		encodeStruct(buf, map[string]interface{}(val))
	case []store.Record:
		buf.WriteString("<array><data>")
		for _, elem := range val {
			encodeValue(buf, elem)
		}
		buf.WriteString("</data></array>")
	default:
		buf.WriteString("<string>")
		_ = xml.EscapeText(buf, []byte(fmt.Sprint(val)))
		buf.WriteString("</string>")
	}
	buf.WriteString("</value>")
}

// encodeStruct writes members in sorted key order so output is stable.
func encodeStruct(buf *bytes.Buffer, m map[string]interface{}) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteString("<struct>")
	for _, k := range keys {
		buf.WriteString("<member><name>")
		_ = xml.EscapeText(buf, []byte(k))
		buf.WriteString("</name>")
		encodeValue(buf, m[k])
		buf.WriteString("</member>")
	}
	buf.WriteString("</struct>")
}
