package connection

import (
	"context"
	"fmt"
)

// Send issues method and decodes the response result into res.
// res may be nil when the caller only needs the error.
func Send[Result any](c Connection, ctx context.Context, res *RPCResponse[Result], method RPCFunction, params ...any) error {
	rawRes, err := c.Send(ctx, string(method), params...)
	if err != nil {
		return err
	}

	if res == nil {
		return nil
	}

	if rawRes.ID != nil {
		res.ID = rawRes.ID
	}
	res.Error = rawRes.Error

	if rawRes.Result == nil || rawRes.Result.IsNull() {
		res.Result = nil
		return nil
	}

	var r Result
	if err := c.GetUnmarshaler().Unmarshal(*rawRes.Result, &r); err != nil {
		return fmt.Errorf("%s: error unmarshaling result: %w", method, err)
	}
	res.Result = &r

	return nil
}
