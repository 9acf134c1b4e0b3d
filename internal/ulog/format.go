package ulog

import (
	"fmt"
	"strconv"
	"strings"
)

// formatField is one declared field of a message format, before flattening.
type formatField struct {
	typeName string
	name     string
	arrayLen int // 0 for scalar
}

// basicSizes maps the ULog scalar type names to their encoded byte widths.
var basicSizes = map[string]int{
	"int8_t": 1, "uint8_t": 1,
	"int16_t": 2, "uint16_t": 2,
	"int32_t": 4, "uint32_t": 4,
	"int64_t": 8, "uint64_t": 8,
	"float": 4, "double": 8,
	"bool": 1, "char": 1,
}

// parseFormat parses one 'F' message payload of the shape
// "name:type field;type field;..." into its field list.
func parseFormat(payload string) (string, []formatField, error) {
	name, rest, ok := strings.Cut(payload, ":")
	if !ok {
		return "", nil, fmt.Errorf("format %q: missing ':' separator", payload)
	}
	var fields []formatField
	for _, decl := range strings.Split(rest, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		f, err := parseFieldDecl(decl)
		if err != nil {
			return "", nil, fmt.Errorf("format %q: %w", name, err)
		}
		fields = append(fields, f)
	}
	return name, fields, nil
}

// parseFieldDecl parses "type field" or "type[N] field".
func parseFieldDecl(decl string) (formatField, error) {
	typePart, fieldName, ok := strings.Cut(decl, " ")
	if !ok {
		return formatField{}, fmt.Errorf("field %q: missing name", decl)
	}
	f := formatField{name: fieldName}
	if open := strings.IndexByte(typePart, '['); open >= 0 {
		if !strings.HasSuffix(typePart, "]") {
			return formatField{}, fmt.Errorf("field %q: malformed array type", decl)
		}
		n, err := strconv.Atoi(typePart[open+1 : len(typePart)-1])
		if err != nil || n <= 0 {
			return formatField{}, fmt.Errorf("field %q: bad array length", decl)
		}
		f.arrayLen = n
		f.typeName = typePart[:open]
	} else {
		f.typeName = typePart
	}
	return f, nil
}

// column is one flattened, fixed-offset scalar within a data message.
type column struct {
	name    string // flattened name, e.g. "q[0]" or "pos.x"
	typ   string // scalar type name
	offset  int    // byte offset within the message payload after msg_id
	padding bool   // true for logger padding fields, decoded but not stored
}

// flatten resolves a message format into its scalar columns, expanding fixed
// arrays to "name[i]" and nested message types to "outer.inner". It returns
// the columns and the total encoded size in bytes.
func flatten(formats map[string][]formatField, name string) ([]column, int, error) {
	return flattenInto(formats, name, "", 0, 0)
}

func flattenInto(formats map[string][]formatField, name, prefix string, offset, depth int) ([]column, int, error) {
	if depth > 8 {
		return nil, 0, fmt.Errorf("format %q: nesting too deep (recursive definition?)", name)
	}
	fields, ok := formats[name]
	if !ok {
		return nil, 0, fmt.Errorf("format %q: not defined", name)
	}
	var cols []column
	for _, f := range fields {
		count := f.arrayLen
		scalar := count == 0
		if scalar {
			count = 1
		}
		for i := 0; i < count; i++ {
			elemName := prefix + f.name
			if !scalar {
				elemName = fmt.Sprintf("%s%s[%d]", prefix, f.name, i)
			}
			if size, basic := basicSizes[f.typeName]; basic {
				cols = append(cols, column{
					name:    elemName,
					typ:   f.typeName,
					offset:  offset,
					padding: strings.HasPrefix(f.name, "_padding"),
				})
				offset += size
				continue
			}
			// Nested message type.
			nested, next, err := flattenInto(formats, f.typeName, elemName+".", offset, depth+1)
			if err != nil {
				return nil, 0, err
			}
			cols = append(cols, nested...)
			offset = next
		}
	}
	return cols, offset, nil
}
