package minimact

import (
	"encoding/json"
	"fmt"

	"github.com/minimact-dev/minimact/pkg/component"
)

// Client-to-server invocation targets. Case-sensitive.
const (
	targetRegisterComponent    = "RegisterComponent"
	targetInvokeMethod         = "InvokeComponentMethod"
	targetUpdateState          = "UpdateComponentState"
	targetUpdateStateOperation = "UpdateComponentStateWithOperation"
)

// UpdateComponentState implements component.ServerSync. The send is
// fire-and-forget; the server reconciles and pushes authoritative
// patches if the client's view drifted.
func (rt *Runtime) UpdateComponentState(componentID, stateKey string, value any) error {
	return rt.conn.Send(targetUpdateState, componentID, stateKey, value)
}

// UpdateComponentStateWithOperation implements component.ServerSync,
// preserving the semantic array operation on the wire.
func (rt *Runtime) UpdateComponentStateWithOperation(componentID, stateKey string, newValue any, op component.ArrayOperation) error {
	return rt.conn.Send(targetUpdateStateOperation, componentID, stateKey, newValue, op)
}

// InvokeComponentMethod implements component.ServerSync. Arguments
// travel as one JSON-encoded array string.
func (rt *Runtime) InvokeComponentMethod(componentID, method string, args []any) error {
	if args == nil {
		args = []any{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("minimact: marshal method args: %w", err)
	}
	return rt.conn.Send(targetInvokeMethod, componentID, method, string(argsJSON))
}
