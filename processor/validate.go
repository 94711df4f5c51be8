package processor

import (
	"encoding/json"
	"net/url"
	"reflect"

	"github.com/igniter-go/igniter/router"
	"github.com/igniter-go/igniter/val"
)

// validateAction runs action's declared body/query schemas against the
// request, at the ACTION_MW -> HANDLED boundary (spec §4.11, §8 scenario
// 2). A schema match decodes the raw value into a fresh instance of the
// schema's type via a JSON round-trip and replaces *bodyJSON with it, so
// the handler observes typed, validated data (spec §4.4 "body may be
// replaced once by schema validation"). Returns a *val.ValidationError
// (satisfying errs.IssueSource) on the first schema that rejects.
func validateAction(action *router.Action, bodyJSON *any, query url.Values) error {
	if action.BodySchema != nil {
		decoded, err := bindAndValidate(*bodyJSON, action.BodySchema)
		if err != nil {
			return err
		}

		*bodyJSON = decoded
	}

	if action.QuerySchema != nil {
		flat := make(map[string]string, len(query))
		for k, v := range query {
			if len(v) > 0 {
				flat[k] = v[0]
			}
		}

		if _, err := bindAndValidate(flat, action.QuerySchema); err != nil {
			return err
		}
	}

	return nil
}

// bindAndValidate decodes raw into a fresh instance of schema's type (a
// pointer to a zero-value struct used only as a type template) via a JSON
// round-trip, then runs the declarative validation tags (C1/C10's val
// engine) against it.
func bindAndValidate(raw any, schema any) (any, error) {
	target := reflect.New(reflect.TypeOf(schema).Elem())

	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(buf, target.Interface()); err != nil {
		return nil, err
	}

	if ve := val.ValidateStruct(target.Interface()); ve != nil {
		return nil, ve
	}

	return target.Interface(), nil
}
