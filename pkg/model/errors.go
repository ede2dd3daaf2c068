package model

import "github.com/m-mizutani/goerr/v2"

var (
	ErrInstanceNotFound = goerr.New("instance not found")
	ErrInstanceExists   = goerr.New("instance already exists")

	ErrConnectionTimeout = goerr.New("connection wait timed out")
	ErrConnectionFailed  = goerr.New("connection failed")

	ErrPhotoPoolExhausted = goerr.New("no unused photos available")
	ErrPhotoNotClaimed    = goerr.New("photo is not claimed")

	ErrPersonaSchemaInvalid = goerr.New("persona violates schema")
	ErrPersonaRejected      = goerr.New("persona rejected by policy")

	ErrProfileApplyFailed = goerr.New("profile update failed")
	ErrPersistenceFailure = goerr.New("failed to persist record")
)
