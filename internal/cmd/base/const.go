// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package base

const (
	// FlagNameAddr is the flag used in the base command to read in the
	// address of the Cask server.
	FlagNameAddr = "addr"
	// FlagNameCACert is the flag used in the base command to read in the CA
	// cert.
	FlagNameCACert = "ca-cert"
	// FlagNameCAPath is the flag used in the base command to read in the CA
	// cert path.
	FlagNameCAPath = "ca-path"
	// FlagNameClientKey is the flag used in the base command to read in the
	// client key
	FlagNameClientKey = "client-key"
	// FlagNameClientCert is the flag used in the base command to read in the
	// client cert
	FlagNameClientCert = "client-cert"
	// FlagNameTLSInsecure is the flag used in the base command to read in
	// the option to ignore TLS certificate verification.
	FlagNameTLSInsecure = "tls-insecure"
	// FlagTLSServerName is the flag used in the base command to read in
	// the TLS server name.
	FlagTLSServerName = "tls-server-name"
	// FlagNameUserProject is the flag used in the base command to read in
	// the project billed for the request.
	FlagNameUserProject = "user-project"
)

const (
	EnvCaskCLINoColor = `CASK_CLI_NO_COLOR`
	EnvCaskCLIFormat  = `CASK_CLI_FORMAT`
)

// Command exit codes. Service rejections and local failures get distinct
// codes so scripts can tell them apart.
const (
	CommandSuccess int = iota
	CommandApiError
	CommandCliError
	CommandUserError
)
