package miya

import (
	"github.com/liquidgo/liquid/liquiderr"
	"github.com/liquidgo/liquid/parser"
)

// Error is what every Environment/Template operation returns on failure: a
// parse or render error located against its source, formatted per spec §7
// as "<message>, on line <L> of <origin>". Unwrap reaches the concrete
// *runtime.UndefinedError, *parser.SyntaxError, etc.
type Error = liquiderr.Error

// locate wraps err against src so callers get a located *Error instead of
// the bare internal error type.
func locate(err error, src *parser.Source) error {
	return liquiderr.Wrap(err, src)
}
