package engine

import (
	"context"

	"github.com/capitalize-ai/assistant-gateway/internal/model"
	"github.com/capitalize-ai/assistant-gateway/internal/tool"
	"github.com/capitalize-ai/assistant-gateway/pkg/metrics"
)

// DefaultMaxToolCalls bounds how many tool-invoking assistant turns one spin
// may produce before force-terminating.
const DefaultMaxToolCalls = 5

// Publisher receives the full conversation after every step so a client sees
// intermediate tool-call states, not just the final resting point.
type Publisher func(conv *model.Conversation)

// Spin drives the turn engine until the conversation reaches a resting point
// or the tool-call budget runs out.
//
// The budget counts "the model decided to call a tool" events, not raw
// iterations: it increments when the previous step appended an assistant
// message carrying a pending call, and is checked before executing that
// call. Exhaustion is not an error — the conversation is left mid-flow and a
// later spin (next append, or resume on reconnect) picks the pending call
// back up.
//
// Provider infrastructure errors abort the spin and propagate; everything
// appended by earlier steps stays.
func (e *Engine) Spin(ctx context.Context, conv *model.Conversation, ec tool.ExecContext, maxToolCalls int, publish Publisher) error {
	if maxToolCalls <= 0 {
		maxToolCalls = DefaultMaxToolCalls
	}
	if publish == nil {
		publish = func(*model.Conversation) {}
	}

	toolTurns := 0
	for {
		if last, ok := conv.Last(); ok && last.PendingToolCall() != nil {
			toolTurns++
			if toolTurns >= maxToolCalls {
				metrics.SpinBudgetExhaustedTotal.Inc()
				return nil
			}
		}

		changed, err := e.Step(ctx, conv, ec)
		if err != nil {
			return err
		}
		metrics.SpinStepsTotal.Inc()
		// Published whether or not the step changed anything: the final
		// unchanged step is the client's signal that the loop has rested.
		publish(conv)
		if !changed {
			return nil
		}
	}
}
