package op

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeJSON reads an operation list. Both a bare list of
// {"tool_name", "args"} objects and the parser envelope
// {"success": true, "operations": [...]} are accepted.
func DecodeJSON(r io.Reader) ([]Operation, error) {
	var tree any
	if err := json.NewDecoder(r).Decode(&tree); err != nil {
		return nil, fmt.Errorf("%w: parse json: %v", ErrBadOperation, err)
	}
	return fromTree(tree)
}

// DecodeYAML reads an operation list in the same shapes as DecodeJSON.
func DecodeYAML(r io.Reader) ([]Operation, error) {
	var tree any
	if err := yaml.NewDecoder(r).Decode(&tree); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrBadOperation, err)
	}
	return fromTree(tree)
}

// Decode picks JSON or YAML by sniffing the first non-space byte.
func Decode(data []byte) ([]Operation, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' || trimmed[0] == '{' {
		return DecodeJSON(bytes.NewReader(trimmed))
	}
	return DecodeYAML(bytes.NewReader(trimmed))
}

// DecodeFile reads an operation list from path; "-" reads stdin.
func DecodeFile(path string, stdin io.Reader) ([]Operation, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read operations: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(bytes.NewReader(data))
	case ".json":
		return DecodeJSON(bytes.NewReader(data))
	}
	return Decode(data)
}

func fromTree(tree any) ([]Operation, error) {
	var list []any
	switch t := tree.(type) {
	case nil:
		return nil, nil
	case []any:
		list = t
	case map[string]any:
		if ok, present := t["success"].(bool); present && !ok {
			return nil, fmt.Errorf("%w: parser reported success=false", ErrBadOperation)
		}
		raw, ok := t["operations"]
		if !ok {
			return nil, fmt.Errorf("%w: missing \"operations\"", ErrBadOperation)
		}
		if raw == nil {
			return nil, nil
		}
		if list, ok = raw.([]any); !ok {
			return nil, fmt.Errorf("%w: \"operations\" must be a list, got %T", ErrBadOperation, raw)
		}
	default:
		return nil, fmt.Errorf("%w: want list or object, got %T", ErrBadOperation, tree)
	}

	ops := make([]Operation, 0, len(list))
	for i, item := range list {
		o, err := operationOf(item)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		ops = append(ops, o)
	}
	return ops, nil
}

func operationOf(item any) (Operation, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return Operation{}, fmt.Errorf("%w: want object, got %T", ErrBadOperation, item)
	}
	name, _ := m["tool_name"].(string)
	if name == "" {
		return Operation{}, fmt.Errorf("%w: missing tool_name", ErrBadOperation)
	}
	args := map[string]any{}
	switch a := m["args"].(type) {
	case nil:
	case map[string]any:
		args = a
	default:
		return Operation{}, fmt.Errorf("%w: args must be an object, got %T", ErrBadOperation, a)
	}
	return New(name, args), nil
}
