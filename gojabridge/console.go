package gojabridge

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/joeycumines/logiface"
)

// bindConsole installs a minimal console global, that writes to the logger.
func (b *Bridge) bindConsole() error {
	console := b.runtime.NewObject()
	for name, level := range map[string]logiface.Level{
		`log`:   logiface.LevelInformational,
		`info`:  logiface.LevelInformational,
		`warn`:  logiface.LevelWarning,
		`error`: logiface.LevelError,
		`debug`: logiface.LevelDebug,
	} {
		if err := console.Set(name, b.consoleFunc(level)); err != nil {
			return fmt.Errorf("gojabridge: failed to bind console.%s: %w", name, err)
		}
	}
	if err := b.runtime.Set(`console`, console); err != nil {
		return fmt.Errorf("gojabridge: failed to bind console: %w", err)
	}
	return nil
}

func (b *Bridge) consoleFunc(level logiface.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		b.logger.Build(level).
			Str(`source`, `console`).
			Log(strings.Join(parts, ` `))
		return goja.Undefined()
	}
}
