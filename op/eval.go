package op

// EvalBinary applies a binary arithmetic, bitwise or relational opcode to
// two cells. It returns false for division or remainder by zero and for
// opcodes that are not binary operators. Shift counts use their low five
// bits, and right shifts are arithmetic.
func EvalBinary(code Code, a, b int32) (int32, bool) {
	switch code {
	case Add:
		return a + b, true
	case Sub:
		return a - b, true
	case Mul:
		return a * b, true
	case Div:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case Rem:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case BAnd:
		return a & b, true
	case BOr:
		return a | b, true
	case BXor:
		return a ^ b, true
	case Shl:
		return a << (uint32(b) & 31), true
	case Shr:
		return a >> (uint32(b) & 31), true
	case Lt:
		return truth(a < b), true
	case Le:
		return truth(a <= b), true
	case Eq:
		return truth(a == b), true
	case Ne:
		return truth(a != b), true
	case Ge:
		return truth(a >= b), true
	case Gt:
		return truth(a > b), true
	}
	return 0, false
}

// EvalUnary applies a unary opcode to a cell.
func EvalUnary(code Code, a int32) (int32, bool) {
	switch code {
	case Neg:
		return -a, true
	case Not:
		return truth(a == 0), true
	case BNot:
		return ^a, true
	}
	return 0, false
}

func truth(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
