package extension

import "fmt"

// Bus channels for action dispatch.
const (
	// ChannelActionCalled is published before an action's handlers run.
	ChannelActionCalled = "action-called"

	// ChannelActionResolved is published after all handlers completed.
	ChannelActionResolved = "action-resolved"
)

// ActionResult is the outcome of one action dispatch. Results and Errors
// have the same length as the handler list and are position-aligned: for
// every index exactly one of the two is set.
type ActionResult struct {
	ID      string
	Params  map[string]any
	Results []any
	Errors  []error
}

// CallAction dispatches an action to every handler registered for it in
// the workspace's context, sequentially in registration order. A handler
// failure (returned error or panic) is captured in its slot and does not
// prevent later handlers from running.
func (r *Runtime) CallAction(id string, params map[string]any, workspace string) ActionResult {
	result := ActionResult{ID: id, Params: params}

	r.bus.Publish(ChannelActionCalled, result)

	if ec := r.Context(workspace); ec != nil {
		handlers := ec.ActionHandlers(id)
		result.Results = make([]any, len(handlers))
		result.Errors = make([]error, len(handlers))
		for i, h := range handlers {
			result.Results[i], result.Errors[i] = callActionHandler(h, params)
		}
	}

	r.bus.Publish(ChannelActionResolved, result)
	return result
}

// callActionHandler invokes one handler, converting panics into errors so
// dispatch keeps its deterministic result/error pairing.
func callActionHandler(h ActionHandler, params map[string]any) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			value = nil
			err = fmt.Errorf("action handler panic: %v", rec)
		}
	}()
	return h(params)
}
