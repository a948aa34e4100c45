package rlm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/recallhq/cli/cmd/recall/cli/index"
	"github.com/recallhq/cli/cmd/recall/cli/memory"
)

// Sandbox errors.
var (
	ErrExecutionTimedOut  = errors.New("sandbox-execution-timed-out")
	ErrSandboxTerminated  = errors.New("sandbox-terminated")
	ErrLlmBudgetExhausted = errors.New("llm-budget-exhausted")
)

// DefaultExecuteTimeout bounds one Execute call.
const DefaultExecuteTimeout = 2 * time.Second

// GitEffect runs a sanitized git log invocation on behalf of the sandbox.
type GitEffect func(ctx context.Context, args []string) (string, error)

// Env is the read-only data handed to the sandbox at creation.
type Env struct {
	Index         *index.TrailerIndex
	WorkingMemory *memory.WorkingMemory
	ScopeKeys     []string
}

// ExecResult is what one Execute call produced.
type ExecResult struct {
	Stdout      string
	ReturnValue any
	Error       string
	Done        bool
	DoneAnswer  string
	SubCalls    int
}

// Sandbox executes LLM-authored JavaScript fragments against the trailer
// index. The interpreter runs on a dedicated goroutine with no host
// bindings beyond the documented API; the host talks to it exclusively
// through message channels. Globals persist across Execute calls so the
// code can accumulate intermediate results.
type Sandbox struct {
	execCh chan executeMsg
	reqCh  chan hostRequest
	doneCh chan struct{}

	llm LlmEffect
	git GitEffect

	vm *goja.Runtime // host side only calls Interrupt/ClearInterrupt

	mu         sync.Mutex
	busy       bool
	terminated bool
	closeOnce  sync.Once
}

type executeMsg struct {
	ctx   context.Context
	code  string
	reply chan executeReply
}

type executeReply struct {
	result ExecResult
	err    error
}

// hostRequest is a child→host effect request; the response echoes the id.
type hostRequest struct {
	id       int
	kind     string // "llm-request" or "gitlog-request"
	ctx      context.Context
	messages []Message
	args     []string
	reply    chan hostResponse
}

type hostResponse struct {
	id    int
	value string
	err   error
}

// interruptTimeout is the sentinel passed to vm.Interrupt on timer expiry.
const interruptTimeout = "execute-timeout"

// NewSandbox spins up the interpreter goroutine, sends it the environment,
// and waits for the ready handshake.
func NewSandbox(env Env, llm LlmEffect, git GitEffect) (*Sandbox, error) {
	s := &Sandbox{
		execCh: make(chan executeMsg),
		reqCh:  make(chan hostRequest),
		doneCh: make(chan struct{}),
		llm:    llm,
		git:    git,
		vm:     goja.New(),
	}

	ready := make(chan error, 1)
	go s.childLoop(env, ready)
	go s.dispatchLoop()

	if err := <-ready; err != nil {
		s.Terminate()
		return nil, err
	}
	return s, nil
}

// Execute runs one code fragment, bounded by DefaultExecuteTimeout. On
// timeout the call fails with sandbox-execution-timed-out but the sandbox
// and its globals survive for recovery attempts. Compile and runtime errors
// are not failures: they come back in the result's Error field so the REPL
// can feed them to the LLM.
func (s *Sandbox) Execute(ctx context.Context, code string) (ExecResult, error) {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return ExecResult{}, ErrSandboxTerminated
	}
	if s.busy {
		s.mu.Unlock()
		return ExecResult{}, errors.New("execute already in flight")
	}
	s.busy = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	timer := time.AfterFunc(DefaultExecuteTimeout, func() {
		s.vm.Interrupt(interruptTimeout)
		cancel()
	})
	defer timer.Stop()

	reply := make(chan executeReply, 1)
	select {
	case s.execCh <- executeMsg{ctx: execCtx, code: code, reply: reply}:
	case <-s.doneCh:
		return ExecResult{}, ErrSandboxTerminated
	}

	select {
	case r := <-reply:
		// The timer may have fired after the fragment finished; a stale
		// interrupt must not poison the next execute.
		timer.Stop()
		s.vm.ClearInterrupt()
		return r.result, r.err
	case <-s.doneCh:
		return ExecResult{}, ErrSandboxTerminated
	}
}

// Terminate shuts the sandbox down. Idempotent; interrupts any in-flight
// execution.
func (s *Sandbox) Terminate() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.terminated = true
		s.mu.Unlock()
		s.vm.Interrupt(ErrSandboxTerminated)
		close(s.doneCh)
	})
}

// Terminated reports whether Terminate has been called.
func (s *Sandbox) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// dispatchLoop is the host side of the message channel: it forwards child
// effect requests to the injected handles and posts back the responses.
func (s *Sandbox) dispatchLoop() {
	for {
		select {
		case req := <-s.reqCh:
			var value string
			var err error
			switch req.kind {
			case "llm-request":
				if s.llm == nil {
					err = fmt.Errorf("%w: no llm effect", ErrLlmCallFailed)
				} else {
					value, err = s.llm(req.ctx, req.messages)
				}
			case "gitlog-request":
				args, sanitizeErr := SanitizeGitLogArgs(req.args)
				if sanitizeErr != nil {
					err = sanitizeErr
				} else if s.git == nil {
					err = errors.New("git-log-failed: no git effect")
				} else {
					value, err = s.git(req.ctx, args)
				}
			default:
				err = fmt.Errorf("unknown request kind %q", req.kind)
			}
			req.reply <- hostResponse{id: req.id, value: value, err: err}
		case <-s.doneCh:
			return
		}
	}
}

// childState is the per-execute scratch owned by the interpreter goroutine.
type childState struct {
	ctx        context.Context
	stdout     strings.Builder
	done       bool
	doneAnswer string
	subCalls   int
	nextID     int
}

// childLoop owns the interpreter. It binds the environment, signals ready,
// then serves execute messages until termination.
func (s *Sandbox) childLoop(env Env, ready chan<- error) {
	vm := s.vm
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	state := &childState{}

	envIndex, err := toJSValue(vm, env.Index)
	if err != nil {
		ready <- fmt.Errorf("binding index: %w", err)
		return
	}
	envMemory, err := toJSValue(vm, env.WorkingMemory)
	if err != nil {
		ready <- fmt.Errorf("binding working memory: %w", err)
		return
	}
	scopeKeys := env.ScopeKeys
	if scopeKeys == nil {
		scopeKeys = []string{}
	}

	api := []goja.Value{
		vm.ToValue(s.makeQuery(env.Index)),
		vm.ToValue(s.makeCallLlm(state)),
		vm.ToValue(s.makeGitLog(state)),
		vm.ToValue(func(answer string) { state.done = true; state.doneAnswer = answer }),
		s.makeConsole(state),
		envIndex,
		envMemory,
		vm.ToValue(scopeKeys),
	}

	ready <- nil

	for {
		select {
		case msg := <-s.execCh:
			state.ctx = msg.ctx
			state.stdout.Reset()
			state.done = false
			state.doneAnswer = ""
			state.subCalls = 0

			result, err := s.runFragment(state, msg.code, api)
			msg.reply <- executeReply{result: result, err: err}
		case <-s.doneCh:
			return
		}
	}
}

// runFragment compiles the code as an async function over the API names,
// invokes it, and collects the settled outcome.
func (s *Sandbox) runFragment(state *childState, code string, api []goja.Value) (ExecResult, error) {
	vm := s.vm
	finish := func(errMsg string, ret any) (ExecResult, error) {
		return ExecResult{
			Stdout:      state.stdout.String(),
			ReturnValue: ret,
			Error:       errMsg,
			Done:        state.done,
			DoneAnswer:  state.doneAnswer,
			SubCalls:    state.subCalls,
		}, nil
	}

	wrapper := "(async function(query, callLlm, gitLog, done, console, index, workingMemory, scopeKeys) {\n" +
		code + "\n})"
	fnVal, err := vm.RunString(wrapper)
	if err != nil {
		// Syntax errors go back through the result so the REPL can ask
		// the LLM to fix them.
		return finish(err.Error(), nil)
	}

	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return finish("compiled fragment is not callable", nil)
	}

	// Timeouts fail the call but keep what the fragment consumed before the
	// interrupt, so the caller can still account for stdout and sub-calls.
	timeoutResult := func() (ExecResult, error) {
		vm.ClearInterrupt()
		return ExecResult{
			Stdout:   state.stdout.String(),
			SubCalls: state.subCalls,
		}, ErrExecutionTimedOut
	}

	retVal, callErr := fn(goja.Undefined(), api...)
	if callErr != nil {
		if timedOut(callErr) {
			return timeoutResult()
		}
		return finish(exceptionMessage(callErr), nil)
	}

	// An async function always yields a promise; by the time the call
	// returns to Go the job queue has drained, so it is settled.
	if promise, ok := retVal.Export().(*goja.Promise); ok {
		switch promise.State() {
		case goja.PromiseStateRejected:
			res := promise.Result()
			if isTimeoutValue(res) {
				return timeoutResult()
			}
			return finish(res.String(), nil)
		case goja.PromiseStateFulfilled:
			return finish("", promise.Result().Export())
		default:
			return finish("execution did not settle", nil)
		}
	}
	return finish("", retVal.Export())
}

// makeQuery binds the host-side intersection algorithm over the pre-loaded
// index.
func (s *Sandbox) makeQuery(ix *index.TrailerIndex) func(params index.QueryParams) []index.IndexedCommit {
	return func(params index.QueryParams) []index.IndexedCommit {
		if ix == nil {
			return []index.IndexedCommit{}
		}
		return ix.Query(params)
	}
}

// makeCallLlm posts an llm-request over the channel and blocks on the
// matching response. The returned string is directly awaitable by the
// fragment.
func (s *Sandbox) makeCallLlm(state *childState) func(messages []Message) (string, error) {
	return func(messages []Message) (string, error) {
		state.subCalls++
		return s.roundTrip(state, hostRequest{kind: "llm-request", messages: messages})
	}
}

// makeGitLog posts a gitlog-request; args are validated host-side before
// the git effect runs.
func (s *Sandbox) makeGitLog(state *childState) func(args []string) (string, error) {
	return func(args []string) (string, error) {
		state.subCalls++
		return s.roundTrip(state, hostRequest{kind: "gitlog-request", args: args})
	}
}

// roundTrip sends one request and waits for the response with the same id.
func (s *Sandbox) roundTrip(state *childState, req hostRequest) (string, error) {
	state.nextID++
	req.id = state.nextID
	req.ctx = state.ctx
	req.reply = make(chan hostResponse, 1)

	select {
	case s.reqCh <- req:
	case <-s.doneCh:
		return "", ErrSandboxTerminated
	}
	select {
	case resp := <-req.reply:
		if resp.id != req.id {
			return "", fmt.Errorf("response id %d does not match request %d", resp.id, req.id)
		}
		return resp.value, resp.err
	case <-s.doneCh:
		return "", ErrSandboxTerminated
	}
}

// makeConsole builds a console object whose log appends stringified,
// space-joined, newline-terminated arguments to the execute's stdout
// buffer.
func (s *Sandbox) makeConsole(state *childState) goja.Value {
	console := s.vm.NewObject()
	log := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, stringifyValue(arg))
		}
		state.stdout.WriteString(strings.Join(parts, " "))
		state.stdout.WriteByte('\n')
		return goja.Undefined()
	}
	_ = console.Set("log", log)
	_ = console.Set("error", log)
	return console
}

// stringifyValue renders a JS value the way console.log would: strings
// verbatim, objects as JSON.
func stringifyValue(v goja.Value) string {
	if v == nil {
		return "undefined"
	}
	exported := v.Export()
	switch exported.(type) {
	case map[string]any, []any:
		if data, err := json.Marshal(exported); err == nil {
			return string(data)
		}
	}
	return v.String()
}

// toJSValue converts host data to a plain JS value via a JSON round-trip so
// the fragment sees ordinary objects with the wire field names.
func toJSValue(vm *goja.Runtime, v any) (goja.Value, error) {
	if v == nil {
		return goja.Null(), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var plain any
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, err
	}
	return vm.ToValue(plain), nil
}

// timedOut reports whether the call error is our interrupt sentinel.
func timedOut(err error) bool {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Sprint(interrupted.Value()) == interruptTimeout
	}
	return false
}

// isTimeoutValue reports whether a rejected promise carries the interrupt
// sentinel.
func isTimeoutValue(v goja.Value) bool {
	return v != nil && strings.Contains(v.String(), interruptTimeout)
}

// exceptionMessage extracts the thrown value's message from a goja error.
func exceptionMessage(err error) string {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return ex.Value().String()
	}
	return err.Error()
}
