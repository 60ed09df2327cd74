package dispatch

import (
	"encoding/json"

	"github.com/mitchellh/mapstructure"

	"github.com/purc-tools/purcrdr/errs"
)

// decodeEJSON unmarshals an EJSON request body into out, going
// through an untyped map so mapstructure can apply its usual
// loose-typing field matching (case-insensitive keys, string<->number
// coercion) the way config-loading code elsewhere in the module does.
func decodeEJSON(data []byte, out any) error {
	if len(data) == 0 {
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errs.New(errs.CodeProtocol, "malformed EJSON body: "+err.Error())
	}
	if err := mapstructure.Decode(raw, out); err != nil {
		return errs.New(errs.CodeProtocol, "EJSON body does not match expected shape: "+err.Error())
	}
	return nil
}
