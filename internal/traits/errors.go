package traits

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/meander-cli/api/schemas"
)

// ErrUnknownTrait marks references to trait IDs the catalog does not define.
// Errors carrying it always include the offending ID in their message.
var ErrUnknownTrait = errors.New("unknown trait")

// InvalidValueError reports a trait value outside [0.0, 1.0]. Values are
// rejected, never clamped: silent clamping would hide caller bugs.
type InvalidValueError struct {
	Trait schemas.TraitID
	Value float64
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("trait %q: value %g outside [0.0, 1.0]", e.Trait, e.Value)
}
