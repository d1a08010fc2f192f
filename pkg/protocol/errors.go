package protocol

import "fmt"

var (
	errChiSquareNeedsExpected = fmt.Errorf("chi_square must be finalized via finalizeChiSquare, not finalize")
	errLengthMismatch         = fmt.Errorf("observed/expected length mismatch")
)

func errUnknownOperation(op Operation) error {
	return fmt.Errorf("unknown operation %q", op)
}
