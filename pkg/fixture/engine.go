package fixture

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/devicelab-dev/contacts-runner/pkg/logger"
	"github.com/dop251/goja"
)

// Engine evaluates ${...} expressions in fixture values.
type Engine struct {
	runtime   *goja.Runtime
	variables map[string]interface{}
	mu        sync.Mutex
}

// NewEngine creates an engine with console, json and env globals.
func NewEngine() *Engine {
	e := &Engine{
		runtime:   goja.New(),
		variables: make(map[string]interface{}),
	}
	e.setupBuiltins()
	return e
}

func (e *Engine) setupBuiltins() {
	e.setupConsole()
	e.runtime.Set("json", e.jsonFunc())
	e.runtime.Set("env", environ())
}

// setupConsole routes console.log/warn/error to the run log.
func (e *Engine) setupConsole() {
	makeConsoleFunc := func(log func(string, ...interface{})) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			log("fixture: %s", strings.Join(parts, " "))
			return goja.Undefined()
		}
	}

	console := e.runtime.NewObject()
	console.Set("log", makeConsoleFunc(logger.Info))
	console.Set("warn", makeConsoleFunc(logger.Warn))
	console.Set("error", makeConsoleFunc(logger.Error))
	e.runtime.Set("console", console)
}

// jsonFunc returns the json() helper, which parses a JSON string.
func (e *Engine) jsonFunc() func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(e.runtime.NewTypeError("json requires 1 argument"))
		}

		result, err := e.runtime.RunString(fmt.Sprintf("JSON.parse(%q)", call.Arguments[0].String()))
		if err != nil {
			panic(e.runtime.NewTypeError(fmt.Sprintf("invalid JSON: %v", err)))
		}
		return result
	}
}

func environ() map[string]interface{} {
	out := make(map[string]interface{})
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}

// SetVariable sets a variable accessible in JS as a global.
func (e *Engine) SetVariable(name string, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.variables[name] = value
	e.runtime.Set(name, value)
}

// Variable returns a value set with SetVariable.
func (e *Engine) Variable(name string) (interface{}, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.variables[name]
	return v, ok
}

// Eval evaluates a JavaScript expression and returns the result.
func (e *Engine) Eval(script string) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.runtime.RunString(script)
	if err != nil {
		return nil, fmt.Errorf("JS eval error: %w", err)
	}
	return result.Export(), nil
}

// EvalString evaluates a JavaScript expression and formats the result.
func (e *Engine) EvalString(script string) (string, error) {
	result, err := e.Eval(script)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprintf("%v", result), nil
}

// ExpandVariables replaces every ${expr} in text with its value.
// Unbalanced braces are left as they are; a failing expression is an error.
func (e *Engine) ExpandVariables(text string) (string, error) {
	result := text
	start := 0

	for {
		idx := strings.Index(result[start:], "${")
		if idx == -1 {
			break
		}
		idx += start

		depth := 1
		end := idx + 2
		for end < len(result) && depth > 0 {
			switch result[end] {
			case '{':
				depth++
			case '}':
				depth--
			}
			end++
		}
		if depth != 0 {
			start = idx + 2
			continue
		}

		expr := result[idx+2 : end-1]
		value, err := e.EvalString(expr)
		if err != nil {
			return "", fmt.Errorf("expand %q: %w", "${"+expr+"}", err)
		}

		result = result[:idx] + value + result[end:]
		start = idx + len(value)
	}

	return result, nil
}
