package brokerage

import "errors"

var (
	// ErrAuthenticityCheckFailed indicates the challenge page did not show the
	// secret image and phrase, the password is never sent when this happens.
	ErrAuthenticityCheckFailed = errors.New("challenge page did not show the expected secret image and phrase")

	// ErrLoginFailed indicates any other failure during the login sequence.
	ErrLoginFailed = errors.New("failed to login to your account")

	// ErrExportFailed indicates a listing or export step was rejected by the site.
	ErrExportFailed = errors.New("export failed")

	// ErrMalformedPage indicates a page was missing the markup we expected.
	ErrMalformedPage = errors.New("malformed page")

	// ErrMissingToken indicates a state token required by a step never appeared.
	ErrMissingToken = errors.New("missing state token")

	// ErrTransferStageFailed is wrapped by every transfer stage failure.
	ErrTransferStageFailed = errors.New("transfer stage failed")

	ErrTransferSetupFailed        = stageError("transfer setup failed")
	ErrTransferValidationFailed   = stageError("transfer validation failed")
	ErrTransferConfirmationFailed = stageError("transfer confirmation failed")

	// ErrNotAuthenticated indicates an operation was attempted before Login succeeded.
	ErrNotAuthenticated = errors.New("session is not authenticated")

	// ErrSessionIndeterminate indicates a previous login failed partway, the
	// session must be discarded.
	ErrSessionIndeterminate = errors.New("session is in an indeterminate state, create a new one")

	// ErrUnknownAccount indicates an account number not present in the account listing.
	ErrUnknownAccount = errors.New("unknown account")
)

type transferStageError struct {
	msg string
}

func stageError(msg string) error {
	return transferStageError{msg: msg}
}

func (e transferStageError) Error() string {
	return e.msg
}

func (e transferStageError) Unwrap() error {
	return ErrTransferStageFailed
}
