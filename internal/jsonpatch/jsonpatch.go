// Package jsonpatch applies RFC 6902 patches to configuration documents.
// Only the operations that edit values are allowed.
package jsonpatch

import (
	"encoding/json"
	"fmt"
	"os"

	jp "github.com/evanphx/json-patch/v5"
)

type PatchError struct {
	msg string
}

func (p *PatchError) Error() string {
	return p.msg
}

type Patch = jp.Patch

var opts = jp.ApplyOptions{
	EnsurePathExistsOnAdd:    true, // will create paths
	AllowMissingPathOnRemove: true,
}

// Decode parses a JSON patch document.
func Decode(bs []byte) (Patch, error) {
	p, err := jp.DecodePatch(bs)
	if err != nil {
		return nil, &PatchError{fmt.Sprintf("invalid patch: %v", err)}
	}
	return p, nil
}

// ReadFile decodes the patch stored in the named file.
func ReadFile(name string) (Patch, error) {
	bs, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return Decode(bs)
}

func Apply(p Patch, doc json.RawMessage) (json.RawMessage, error) {
	for _, op := range p {
		switch op.Kind() {
		case "replace", "remove", "add": // OK
		default:
			return nil, &PatchError{fmt.Sprintf("unsupported patch operation %q, must be one of \"replace\", \"add\", \"remove\"", op.Kind())}
		}
	}
	return p.ApplyWithOptions(doc, &opts)
}
