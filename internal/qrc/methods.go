package qrc

// QRC method vocabulary. The core rejects anything else, so the client
// guards the set locally and returns ErrMethodUnsupported before touching
// the wire.
const (
	MethodComponentGet         = "Component.Get"
	MethodComponentSet         = "Component.Set"
	MethodComponentGetControls = "Component.GetControls"
	MethodControlGet           = "Control.Get"
	MethodControlSet           = "Control.Set"
	MethodControlGetValues     = "Control.GetValues"
	MethodChangeGroupAdd       = "ChangeGroup.AddControl"
	MethodChangeGroupRemove    = "ChangeGroup.Remove"
	MethodChangeGroupClear     = "ChangeGroup.Clear"
	MethodChangeGroupPoll      = "ChangeGroup.Poll"
	MethodChangeGroupDestroy   = "ChangeGroup.Destroy"
	MethodStatusGet            = "Status.Get"
	MethodNoOp                 = "NoOp"

	// methodStatusGetLegacy is the pre-9.x spelling of Status.Get. Older
	// cores only answer this form; Send normalises the alias.
	methodStatusGetLegacy = "StatusGet"
)

// supportedMethods is the fixed set of methods the client will send.
var supportedMethods = map[string]struct{}{
	MethodComponentGet:         {},
	MethodComponentSet:         {},
	MethodComponentGetControls: {},
	MethodControlGet:           {},
	MethodControlSet:           {},
	MethodControlGetValues:     {},
	MethodChangeGroupAdd:       {},
	MethodChangeGroupRemove:    {},
	MethodChangeGroupClear:     {},
	MethodChangeGroupPoll:      {},
	MethodChangeGroupDestroy:   {},
	MethodStatusGet:            {},
	MethodNoOp:                 {},
	methodStatusGetLegacy:      {},
}

// normalizeMethod maps method aliases onto their canonical spelling.
func normalizeMethod(method string) string {
	if method == methodStatusGetLegacy {
		return MethodStatusGet
	}
	return method
}

// MethodSupported reports whether the client can issue the given method.
func MethodSupported(method string) bool {
	_, ok := supportedMethods[method]
	return ok
}
