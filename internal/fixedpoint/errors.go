package fixedpoint

import "fmt"

// ArithmeticError reports an overflow, underflow or division by zero.
type ArithmeticError struct {
	Op string
	A  string
	B  string
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("fixedpoint: %s overflow (%s, %s)", e.Op, e.A, e.B)
}

// Recover turns an *ArithmeticError panic raised in the current function into
// an error assigned to *errp. Any other panic is re-raised.
//
//	func apply() (err error) {
//		defer fixedpoint.Recover(&err)
//		...
//	}
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	ae, ok := r.(*ArithmeticError)
	if !ok {
		panic(r)
	}
	*errp = ae
}

// Try runs fn and returns any arithmetic failure as an error.
func Try(fn func() error) (err error) {
	defer Recover(&err)
	return fn()
}
