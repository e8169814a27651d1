package utils

import "errors"

// ----------------- storage ------------------
var (
	ErrStorageEmptyHostName       = errors.New("host name is empty")
	ErrStorageInvalidPortNumber   = errors.New("port number is invalid")
	ErrStorageEmptyUsername       = errors.New("username is empty")
	ErrStorageEmptyPassword       = errors.New("password is empty")
	ErrStorageInvalidDatabaseName = errors.New("database name is empty")
	ErrStorageInvalidSslMode      = errors.New("SSL mode is invalid")
	ErrStorageInvalidPoolSize     = errors.New("pool size is invalid")
	ErrStorageInvalidTimeout      = errors.New("timeout is invalid")
)

// ----------------- google product service ------------------
var (
	ErrInvalidGoogleProductID = errors.New("invalid google product id")
	ErrGoogleProductNotFound  = errors.New("google product not found")
	ErrVariantNotLoaded       = errors.New("google product has no variant loaded")
	ErrStatusNotImplemented   = errors.New("remote product status is not implemented")
)

// ----------------- worker ------------------
var (
	ErrUnknownCommand = errors.New("unknown command type")
	ErrRecordLocked   = errors.New("google product is being synced by another worker")
	ErrInvalidCommand = errors.New("invalid command payload")
)
