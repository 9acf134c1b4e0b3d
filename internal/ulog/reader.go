package ulog

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// magic is the 7-byte file signature preceding the version byte.
var magic = []byte{'U', 'L', 'o', 'g', 0x01, 0x12, 0x35}

// Message type bytes, definitions section first.
const (
	msgFlagBits     = 'B'
	msgFormat       = 'F'
	msgInfo         = 'I'
	msgInfoMulti    = 'M'
	msgParameter    = 'P'
	msgParamDefault = 'Q'
	msgAddLogged    = 'A'
	msgRemoveLogged = 'R'
	msgData         = 'D'
	msgLoggedString = 'L'
	msgTaggedString = 'C'
	msgSync         = 'S'
	msgDropout      = 'O'
)

// incompatFlagAppended marks logs that carry appended data (mid-flight power
// loss recovery). Everything past the first appended offset is untrusted and
// skipped.
const incompatFlagAppended = 1 << 0

var (
	// ErrBadMagic reports a file that is not a ULog container.
	ErrBadMagic = errors.New("ulog: bad magic, not a ULog file")
	// ErrIncompatible reports a log using incompatible format extensions.
	ErrIncompatible = errors.New("ulog: incompatible format flags")
)

// subscription tracks one 'A' registration: the dataset being filled and the
// flattened column layout used to decode its 'D' messages.
type subscription struct {
	dataset *Dataset
	cols    []column
	size    int
}

// ReadFile opens and decodes a ULog file.
func ReadFile(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ulog: open: %w", err)
	}
	defer f.Close()
	lg, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("ulog: read %s: %w", path, err)
	}
	return lg, nil
}

// Read decodes a ULog stream. Truncation mid-message is tolerated: whatever
// decoded cleanly up to that point is returned.
func Read(r io.Reader) (*Log, error) {
	br := bufio.NewReaderSize(r, 1<<16)

	head := make([]byte, 16)
	if _, err := io.ReadFull(br, head); err != nil {
		return nil, ErrBadMagic
	}
	if !bytes.Equal(head[:7], magic) {
		return nil, ErrBadMagic
	}

	lg := &Log{
		Version: head[7],
		StartUS: binary.LittleEndian.Uint64(head[8:16]),
		Info:    make(map[string]any),
		Params:  make(map[string]float64),
	}

	formats := make(map[string][]formatField)
	subs := make(map[uint16]*subscription)

	var consumed int64 = 16
	var appendedAt int64 // 0 = no appended data

	hdr := make([]byte, 3)
	var payload []byte
	for {
		if appendedAt > 0 && consumed >= appendedAt {
			break
		}
		if _, err := io.ReadFull(br, hdr); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, err
		}
		size := int(binary.LittleEndian.Uint16(hdr[:2]))
		typ := hdr[2]
		if cap(payload) < size {
			payload = make([]byte, size)
		}
		payload = payload[:size]
		if _, err := io.ReadFull(br, payload); err != nil {
			// Truncated trailing message; keep what we have.
			break
		}
		consumed += int64(3 + size)

		switch typ {
		case msgFlagBits:
			if size < 40 {
				return nil, fmt.Errorf("ulog: flag bits message too short (%d bytes)", size)
			}
			incompat := binary.LittleEndian.Uint64(payload[8:16])
			if incompat&^uint64(incompatFlagAppended) != 0 {
				return nil, fmt.Errorf("%w: %#x", ErrIncompatible, incompat)
			}
			if incompat&incompatFlagAppended != 0 {
				appendedAt = int64(binary.LittleEndian.Uint64(payload[16:24]))
			}

		case msgFormat:
			name, fields, err := parseFormat(string(payload))
			if err != nil {
				return nil, err
			}
			formats[name] = fields

		case msgInfo:
			key, val, err := splitKeyed(payload, 1)
			if err != nil {
				return nil, fmt.Errorf("ulog: info message: %w", err)
			}
			name, v, err := decodeInfoValue(key, val)
			if err == nil {
				lg.Info[name] = v
			}

		case msgParameter:
			key, val, err := splitKeyed(payload, 1)
			if err != nil {
				return nil, fmt.Errorf("ulog: parameter message: %w", err)
			}
			f, err := parseFieldDecl(key)
			if err != nil || len(val) < 4 {
				break
			}
			switch f.typeName {
			case "float":
				lg.Params[f.name] = float64(math.Float32frombits(binary.LittleEndian.Uint32(val)))
			case "int32_t":
				lg.Params[f.name] = float64(int32(binary.LittleEndian.Uint32(val)))
			}

		case msgAddLogged:
			if size < 3 {
				return nil, fmt.Errorf("ulog: add-logged message too short (%d bytes)", size)
			}
			multiID := payload[0]
			msgID := binary.LittleEndian.Uint16(payload[1:3])
			topic := string(payload[3:])
			cols, total, err := flatten(formats, topic)
			if err != nil {
				return nil, fmt.Errorf("ulog: subscribe %q: %w", topic, err)
			}
			ds := &Dataset{
				Name:    topic,
				MultiID: multiID,
				Fields:  make(map[string][]float64),
			}
			for _, c := range cols {
				if c.padding || c.name == "timestamp" {
					continue
				}
				ds.Fields[c.name] = nil
			}
			lg.Datasets = append(lg.Datasets, ds)
			subs[msgID] = &subscription{dataset: ds, cols: cols, size: total}

		case msgData:
			if size < 2 {
				break
			}
			sub, ok := subs[binary.LittleEndian.Uint16(payload[:2])]
			if !ok {
				// Data for a subscription we never saw; skip rather than fail
				// the whole log.
				break
			}
			decodeSample(lg, sub, payload[2:])

		case msgLoggedString:
			if size < 9 {
				break
			}
			lg.Messages = append(lg.Messages, LoggedMessage{
				Level:       payload[0],
				TimestampUS: binary.LittleEndian.Uint64(payload[1:9]),
				Text:        string(payload[9:]),
			})

		case msgTaggedString:
			if size < 11 {
				break
			}
			lg.Messages = append(lg.Messages, LoggedMessage{
				Level:       payload[0],
				TimestampUS: binary.LittleEndian.Uint64(payload[3:11]),
				Text:        string(payload[11:]),
			})

		case msgDropout:
			lg.Dropouts++

		case msgInfoMulti, msgParamDefault, msgRemoveLogged, msgSync:
			// Recognized but not needed for plotting.

		default:
			// Unknown message type: skip by length, per format forward
			// compatibility rules.
		}
	}

	return lg, nil
}

// decodeSample appends one 'D' message body to the subscription's columns.
// Trailing padding may be omitted by the logger, so columns past the actual
// payload are skipped.
func decodeSample(lg *Log, sub *subscription, data []byte) {
	for _, c := range sub.cols {
		width := basicSizes[c.typ]
		if c.offset+width > len(data) {
			break
		}
		if c.padding {
			continue
		}
		v := decodeScalar(c.typ, data[c.offset:c.offset+width])
		if c.name == "timestamp" {
			us := uint64(v)
			sub.dataset.TimestampUS = append(sub.dataset.TimestampUS, us)
			if us > lg.LastUS {
				lg.LastUS = us
			}
			continue
		}
		sub.dataset.Fields[c.name] = append(sub.dataset.Fields[c.name], v)
	}
}

// decodeScalar widens one little-endian scalar to float64.
func decodeScalar(typ string, b []byte) float64 {
	switch typ {
	case "int8_t":
		return float64(int8(b[0]))
	case "uint8_t", "char":
		return float64(b[0])
	case "bool":
		if b[0] != 0 {
			return 1
		}
		return 0
	case "int16_t":
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case "uint16_t":
		return float64(binary.LittleEndian.Uint16(b))
	case "int32_t":
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case "uint32_t":
		return float64(binary.LittleEndian.Uint32(b))
	case "int64_t":
		return float64(int64(binary.LittleEndian.Uint64(b)))
	case "uint64_t":
		return float64(binary.LittleEndian.Uint64(b))
	case "float":
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case "double":
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return 0
}

// splitKeyed splits the "keyLen key value" layout shared by info and
// parameter messages. skip is the number of leading bytes before keyLen.
func splitKeyed(payload []byte, skip int) (key string, value []byte, err error) {
	if len(payload) < skip {
		return "", nil, fmt.Errorf("short payload (%d bytes)", len(payload))
	}
	keyLen := int(payload[skip-1])
	if len(payload) < skip+keyLen {
		return "", nil, fmt.Errorf("key length %d exceeds payload", keyLen)
	}
	return string(payload[skip : skip+keyLen]), payload[skip+keyLen:], nil
}

// decodeInfoValue turns a typed info entry ("char[9] sys_name" + bytes) into
// a Go value keyed by the bare name.
func decodeInfoValue(key string, val []byte) (string, any, error) {
	f, err := parseFieldDecl(key)
	if err != nil {
		return "", nil, err
	}
	if f.typeName == "char" {
		return f.name, string(val), nil
	}
	width := basicSizes[f.typeName]
	if width == 0 || len(val) < width {
		return "", nil, fmt.Errorf("info %q: bad value size", key)
	}
	switch f.typeName {
	case "float", "double":
		return f.name, decodeScalar(f.typeName, val), nil
	default:
		return f.name, int64(decodeScalar(f.typeName, val)), nil
	}
}
