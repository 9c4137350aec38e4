package flows

import "fmt"

func recoveredError(op string, r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%s: recovered panic: %w", op, err)
	}
	return fmt.Errorf("%s: recovered panic: %v", op, r)
}
