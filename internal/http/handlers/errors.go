package handlers

import "errors"

var (
	errNoJob            = errors.New("no job available")
	errUnsupportedGrant = errors.New("only client_credentials is supported")
)
