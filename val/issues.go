package val

import "github.com/igniter-go/igniter/errs"

// Issues converts the field errors into the wire-level issue shape consumed
// by the request processor's error classifier (C7): {path, message, code}.
// A nil receiver yields an empty, non-nil slice so callers can range over it
// without a nil check.
func (ve *ValidationError) Issues() []errs.Issue {
	if ve == nil || len(ve.Errors) == 0 {
		return []errs.Issue{}
	}

	issues := make([]errs.Issue, len(ve.Errors))
	for i, fe := range ve.Errors {
		code := fe.Code
		if code == "" {
			code = ErrCodeInvalidFormat
		}

		issues[i] = errs.Issue{Path: fe.Field, Message: fe.Message, Code: code}
	}

	return issues
}

var _ errs.IssueSource = (*ValidationError)(nil)
