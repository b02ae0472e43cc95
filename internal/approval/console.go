package approval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// ConsoleResponder asks for confirmation on an interactive terminal,
// reading a yes/no answer line from its input.
type ConsoleResponder struct {
	in       io.Reader
	out      io.Writer
	approver string
}

// NewConsoleResponder constructs a responder over the given streams.
// approver names the responding human in decisions, when known.
func NewConsoleResponder(in io.Reader, out io.Writer, approver string) *ConsoleResponder {
	return &ConsoleResponder{in: in, out: out, approver: approver}
}

// Decide prints the prompt and waits for a yes/no line. Anything other
// than "yes" or "y" is treated as a denial; the gate fails closed.
func (r *ConsoleResponder) Decide(ctx context.Context, prompt Prompt) (Response, error) {
	r.printPrompt(ctx, prompt)

	type lineResult struct {
		text string
		err  error
	}
	ch := make(chan lineResult, 1)
	go func() {
		scanner := bufio.NewScanner(r.in)
		if scanner.Scan() {
			ch <- lineResult{text: scanner.Text()}
			return
		}
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		ch <- lineResult{err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return Response{}, fmt.Errorf("read approval response: %w", res.err)
		}
		answer := strings.ToLower(strings.TrimSpace(res.text))
		granted := answer == "yes" || answer == "y"
		return Response{Granted: granted, Approver: r.approver}, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

func (r *ConsoleResponder) printPrompt(ctx context.Context, prompt Prompt) {
	if r.out == nil {
		return
	}
	fmt.Fprintf(r.out, "\n%s\n", prompt.Message)
	if prompt.Escalated {
		fmt.Fprintln(r.out, "This is the escalated confirmation for a destructive action.")
	}
	if deadline, ok := ctx.Deadline(); ok {
		fmt.Fprintf(r.out, "Respond yes/no before %s: ", deadline.Format(time.Kitchen))
		return
	}
	fmt.Fprint(r.out, "Respond yes/no: ")
}
