// Package snapshot encodes finalized scan results to MessagePack for
// compact caching and transport. The codec is written against the msgp
// runtime directly; field names match the JSON tags so a decoded
// snapshot is interchangeable with a fresh scan.
package snapshot

import (
	"fmt"
	"sort"

	"github.com/tinylib/msgp/msgp"

	"github.com/mailgrade/mailgrade"
	"github.com/mailgrade/mailgrade/check"
)

// Marshal encodes a scan result. Map keys are emitted in sorted order
// so equal results produce identical bytes.
func Marshal(result *mailgrade.ScanResult) ([]byte, error) {
	b := make([]byte, 0, 2048)
	b = msgp.AppendMapHeader(b, 9)

	b = msgp.AppendString(b, "domain")
	b = msgp.AppendString(b, result.Domain)
	b = msgp.AppendString(b, "score")
	b = msgp.AppendInt(b, result.Score)
	b = msgp.AppendString(b, "max_score")
	b = msgp.AppendInt(b, result.MaxScore)
	b = msgp.AppendString(b, "grade")
	b = msgp.AppendString(b, result.Grade)
	b = msgp.AppendString(b, "grade_color")
	b = msgp.AppendString(b, result.GradeColor)
	b = msgp.AppendString(b, "score_version")
	b = msgp.AppendString(b, result.ScoreVersion)
	b = msgp.AppendString(b, "provider")
	b = msgp.AppendString(b, result.Provider)

	b = msgp.AppendString(b, "checks")
	b = msgp.AppendMapHeader(b, uint32(len(result.Checks)))
	for _, control := range sortedKeys(result.Checks) {
		b = msgp.AppendString(b, control)
		var err error
		b, err = appendCheck(b, result.Checks[control])
		if err != nil {
			return nil, fmt.Errorf("snapshot: encode %s check: %w", control, err)
		}
	}

	b = msgp.AppendString(b, "remediation")
	b = appendStrings(b, result.Remediation)
	return b, nil
}

func appendCheck(b []byte, c *check.Result) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 7)

	b = msgp.AppendString(b, "control")
	b = msgp.AppendString(b, c.Control)
	b = msgp.AppendString(b, "points")
	b = msgp.AppendInt(b, c.Points)
	b = msgp.AppendString(b, "max_points")
	b = msgp.AppendInt(b, c.MaxPoints)

	b = msgp.AppendString(b, "messages")
	b = msgp.AppendArrayHeader(b, uint32(len(c.Messages)))
	for _, m := range c.Messages {
		b = msgp.AppendMapHeader(b, 2)
		b = msgp.AppendString(b, "level")
		b = msgp.AppendString(b, string(m.Level))
		b = msgp.AppendString(b, "text")
		b = msgp.AppendString(b, m.Text)
	}

	b = msgp.AppendString(b, "raw_records")
	b = appendStrings(b, c.RawRecords)

	b = msgp.AppendString(b, "parsed_data")
	b = msgp.AppendMapHeader(b, uint32(len(c.ParsedData)))
	for _, key := range sortedKeys(c.ParsedData) {
		b = msgp.AppendString(b, key)
		var err error
		b, err = msgp.AppendIntf(b, c.ParsedData[key])
		if err != nil {
			return nil, err
		}
	}

	b = msgp.AppendString(b, "remediation")
	b = appendStrings(b, c.Remediation)
	return b, nil
}

func appendStrings(b []byte, ss []string) []byte {
	b = msgp.AppendArrayHeader(b, uint32(len(ss)))
	for _, s := range ss {
		b = msgp.AppendString(b, s)
	}
	return b
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Unmarshal decodes a snapshot produced by Marshal. Unknown fields are
// skipped so older readers tolerate newer snapshots.
func Unmarshal(data []byte) (*mailgrade.ScanResult, error) {
	result := &mailgrade.ScanResult{}

	fields, b, err := msgp.ReadMapHeaderBytes(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	for i := uint32(0); i < fields; i++ {
		var name string
		name, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return nil, fmt.Errorf("snapshot: field name: %w", err)
		}
		switch name {
		case "domain":
			result.Domain, b, err = msgp.ReadStringBytes(b)
		case "score":
			result.Score, b, err = msgp.ReadIntBytes(b)
		case "max_score":
			result.MaxScore, b, err = msgp.ReadIntBytes(b)
		case "grade":
			result.Grade, b, err = msgp.ReadStringBytes(b)
		case "grade_color":
			result.GradeColor, b, err = msgp.ReadStringBytes(b)
		case "score_version":
			result.ScoreVersion, b, err = msgp.ReadStringBytes(b)
		case "provider":
			result.Provider, b, err = msgp.ReadStringBytes(b)
		case "checks":
			result.Checks, b, err = readChecks(b)
		case "remediation":
			result.Remediation, b, err = readStrings(b)
		default:
			b, err = msgp.Skip(b)
		}
		if err != nil {
			return nil, fmt.Errorf("snapshot: field %s: %w", name, err)
		}
	}
	return result, nil
}

func readChecks(b []byte) (map[string]*check.Result, []byte, error) {
	size, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return nil, b, err
	}
	checks := make(map[string]*check.Result, size)
	for i := uint32(0); i < size; i++ {
		var control string
		control, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return nil, b, err
		}
		var c *check.Result
		c, b, err = readCheck(b)
		if err != nil {
			return nil, b, err
		}
		checks[control] = c
	}
	return checks, b, nil
}

func readCheck(b []byte) (*check.Result, []byte, error) {
	fields, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return nil, b, err
	}
	c := &check.Result{}
	for i := uint32(0); i < fields; i++ {
		var name string
		name, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return nil, b, err
		}
		switch name {
		case "control":
			c.Control, b, err = msgp.ReadStringBytes(b)
		case "points":
			c.Points, b, err = msgp.ReadIntBytes(b)
		case "max_points":
			c.MaxPoints, b, err = msgp.ReadIntBytes(b)
		case "messages":
			c.Messages, b, err = readMessages(b)
		case "raw_records":
			c.RawRecords, b, err = readStrings(b)
		case "parsed_data":
			c.ParsedData, b, err = readParsedData(b)
		case "remediation":
			c.Remediation, b, err = readStrings(b)
		default:
			b, err = msgp.Skip(b)
		}
		if err != nil {
			return nil, b, err
		}
	}
	return c, b, nil
}

func readMessages(b []byte) ([]check.Message, []byte, error) {
	size, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, b, err
	}
	messages := make([]check.Message, 0, size)
	for i := uint32(0); i < size; i++ {
		var fields uint32
		fields, b, err = msgp.ReadMapHeaderBytes(b)
		if err != nil {
			return nil, b, err
		}
		var m check.Message
		for j := uint32(0); j < fields; j++ {
			var name, value string
			name, b, err = msgp.ReadStringBytes(b)
			if err != nil {
				return nil, b, err
			}
			value, b, err = msgp.ReadStringBytes(b)
			if err != nil {
				return nil, b, err
			}
			switch name {
			case "level":
				m.Level = check.Severity(value)
			case "text":
				m.Text = value
			}
		}
		messages = append(messages, m)
	}
	return messages, b, nil
}

func readParsedData(b []byte) (map[string]any, []byte, error) {
	size, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return nil, b, err
	}
	data := make(map[string]any, size)
	for i := uint32(0); i < size; i++ {
		var key string
		key, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return nil, b, err
		}
		var value any
		value, b, err = msgp.ReadIntfBytes(b)
		if err != nil {
			return nil, b, err
		}
		data[key] = value
	}
	return data, b, nil
}

func readStrings(b []byte) ([]string, []byte, error) {
	size, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, b, err
	}
	if size == 0 {
		return nil, b, nil
	}
	ss := make([]string, 0, size)
	for i := uint32(0); i < size; i++ {
		var s string
		s, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return nil, b, err
		}
		ss = append(ss, s)
	}
	return ss, b, nil
}
