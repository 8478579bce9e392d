package types

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrTagAuth marks webhook deliveries whose signature is missing or invalid
	ErrTagAuth = goerr.NewTag("auth")

	// ErrTagParse marks malformed payloads or payloads missing required fields
	ErrTagParse = goerr.NewTag("parse")

	// ErrTagAPI marks failed calls to the GitHub REST API
	ErrTagAPI = goerr.NewTag("api")

	// ErrTagConfig marks invalid process configuration
	ErrTagConfig = goerr.NewTag("config")
)
