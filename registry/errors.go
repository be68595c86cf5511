package registry

import (
	"errors"
	"strconv"
	"strings"

	"github.com/nspcc-dev/passkey-registry/contracts/passkey/passkeyconst"
)

// Code is a stable numeric identifier of the registry failure.
type Code uint32

// Failure codes. Values are a part of the public contract and never change.
const (
	CodeNotInited Code = iota + 1
	CodeAlreadyInited
	CodePasskeyAlreadyRegistered
	CodePasskeyNotRegistered
	CodeInvalidCaller
)

// Error is a failure signal surfaced to the registry callers.
type Error struct {
	code Code
	msg  string
}

// Code returns numeric code of the failure.
func (e *Error) Code() Code {
	return e.code
}

func (e *Error) Error() string {
	return e.msg
}

// Closed set of the registry failures. Returned errors can be compared with
// errors.Is.
var (
	// ErrNotInited is returned when registry is accessed before initialization.
	ErrNotInited = &Error{code: CodeNotInited, msg: passkeyconst.ErrNotInited}
	// ErrAlreadyInited is returned by repeated initialization.
	ErrAlreadyInited = &Error{code: CodeAlreadyInited, msg: passkeyconst.ErrAlreadyInited}
	// ErrPasskeyAlreadyRegistered is returned on attempt to bind passkey twice.
	ErrPasskeyAlreadyRegistered = &Error{code: CodePasskeyAlreadyRegistered, msg: passkeyconst.ErrPasskeyAlreadyRegistered}
	// ErrPasskeyNotRegistered is returned by the lookup of unknown passkey.
	ErrPasskeyNotRegistered = &Error{code: CodePasskeyNotRegistered, msg: passkeyconst.ErrPasskeyNotRegistered}
	// ErrInvalidCaller is reserved for caller authentication and is not
	// returned by any operation yet.
	ErrInvalidCaller = &Error{code: CodeInvalidCaller, msg: passkeyconst.ErrInvalidCaller}
)

var taxonomy = []*Error{
	ErrNotInited,
	ErrAlreadyInited,
	ErrPasskeyAlreadyRegistered,
	ErrPasskeyNotRegistered,
	ErrInvalidCaller,
}

// ErrInvalidPasskey is returned when passkey has an unexpected shape.
var ErrInvalidPasskey = errors.New(passkeyconst.ErrInvalidPasskey)

// CodeOf returns failure code of the registry error in err's chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.code, true
	}
	return 0, false
}

// ErrorByCode returns registry error with the given code.
func ErrorByCode(c Code) (*Error, error) {
	for i := range taxonomy {
		if taxonomy[i].code == c {
			return taxonomy[i], nil
		}
	}
	return nil, errors.New("unknown registry error code " + strconv.FormatUint(uint64(c), 10))
}

// ErrorByMessage returns registry error which text is contained in msg. It is
// used to restore errors from the contract fault exceptions.
func ErrorByMessage(msg string) (*Error, bool) {
	for i := range taxonomy {
		if strings.Contains(msg, taxonomy[i].msg) {
			return taxonomy[i], true
		}
	}
	return nil, false
}
