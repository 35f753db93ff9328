package scoring

import (
	"fmt"
	"math"
)

// EvalError reports a runtime failure of a compiled program.
type EvalError struct {
	msg string
}

func (e *EvalError) Error() string { return e.msg }

func evalErrorf(format string, args ...interface{}) *EvalError {
	return &EvalError{msg: fmt.Sprintf(format, args...)}
}

// Eval runs the program against a context vector laid out to match
// program.Env. The terminal stack value is the result.
func (p *Program) Eval(ctx []float32) (float32, error) {
	stack := make([]float32, 0, 8)

	for _, op := range p.Ops {
		switch op.Kind {
		case OpPushNumber:
			stack = append(stack, op.Number)

		case OpPushVar:
			if op.Var >= len(ctx) {
				return 0, evalErrorf("variable index %d out of bounds (ctx has %d)", op.Var, len(ctx))
			}
			stack = append(stack, ctx[op.Var])

		case OpCall:
			if len(stack) < op.Arity {
				return 0, evalErrorf("stack underflow calling %s/%d", op.Name, op.Arity)
			}
			args := stack[len(stack)-op.Arity:]
			result, err := call(op.Name, args)
			if err != nil {
				return 0, err
			}
			stack = stack[:len(stack)-op.Arity]
			stack = append(stack, result)
		}
	}

	if len(stack) == 0 {
		return 0, evalErrorf("stack empty after execution")
	}
	return stack[len(stack)-1], nil
}

func call(name string, args []float32) (float32, error) {
	switch name {
	case "exp":
		return float32(math.Exp(float64(args[0]))), nil
	case "ln":
		return float32(math.Log(float64(args[0]))), nil
	case "sqrt":
		return float32(math.Sqrt(float64(args[0]))), nil
	case "pow":
		return float32(math.Pow(float64(args[0]), float64(args[1]))), nil
	case "+":
		return args[0] + args[1], nil
	case "-":
		return args[0] - args[1], nil
	case "*":
		return args[0] * args[1], nil
	case "/":
		return args[0] / args[1], nil
	default:
		return 0, evalErrorf("unknown function %s/%d", name, len(args))
	}
}
