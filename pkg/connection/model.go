package connection

// RPCError is the error member of an RPC response.
type RPCError struct {
	Code        int    `json:"code"`
	Message     string `json:"message,omitempty"`
	Description string `json:"description,omitempty"`
}

func (r RPCError) Error() string {
	if r.Description != "" {
		return r.Description
	}
	return r.Message
}

func (r *RPCError) Is(target error) bool {
	if target == nil {
		return r == nil
	}

	_, ok := target.(*RPCError)
	return ok
}

// RPCRequest is a request sent to the entity service.
type RPCRequest struct {
	ID     any    `json:"id"`
	Method string `json:"method,omitempty"`
	Params []any  `json:"params,omitempty"`
}

// RPCResponse is either the reply to a request, carrying its ID, or a live
// notification, carrying no ID and a Notification as its result.
type RPCResponse[T any] struct {
	ID     any       `json:"id"`
	Error  *RPCError `json:"error,omitempty"`
	Result *T        `json:"result,omitempty"`
}

type RPCFunction string

const (
	Select RPCFunction = "select"
	Live   RPCFunction = "live"
	Kill   RPCFunction = "kill"
	Create RPCFunction = "create"
	Update RPCFunction = "update"
	Delete RPCFunction = "delete"
)
