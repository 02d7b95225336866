package device

import (
	"github.com/ezrec/vm16/translate"
)

var f = translate.From

// ErrBankFile locates a failure to load a drum bank file.
type ErrBankFile struct {
	Name string
	Err  error
}

func (err *ErrBankFile) Error() string {
	return f("bank %v: %v", err.Name, err.Err)
}

func (err *ErrBankFile) Unwrap() error {
	return err.Err
}
