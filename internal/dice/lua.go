package dice

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Shopify/go-lua"
)

// ErrInvalidFormula indicates a modifier formula failed to evaluate.
var ErrInvalidFormula = errors.New("modifier formula is invalid")

// Modifier evaluates a stat modifier formula with the stat value bound as
// the Lua global "stat".
//
// Formulas are single Lua expressions, for example "(stat - 10) / 2".
// Sheets written for systems with integer division may use "//"; it is
// rewritten to a plain division with the whole expression floored. The
// result is always floored to an integer.
func Modifier(formula string, stat int) (int, error) {
	trimmed := strings.TrimSpace(formula)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: formula is empty", ErrInvalidFormula)
	}
	if strings.Contains(trimmed, "//") {
		trimmed = "math.floor(" + strings.ReplaceAll(trimmed, "//", "/") + ")"
	}

	state := lua.NewState()
	lua.OpenLibraries(state)

	state.PushInteger(stat)
	state.SetGlobal("stat")

	if err := lua.DoString(state, "return "+trimmed); err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidFormula, formula, err)
	}

	value, ok := state.ToNumber(-1)
	state.Pop(1)
	if !ok {
		return 0, fmt.Errorf("%w: %q did not evaluate to a number", ErrInvalidFormula, formula)
	}
	return int(math.Floor(value)), nil
}
