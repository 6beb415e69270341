// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package api

type contextKey int

const contextSkipCurlOutput contextKey = iota

// Option is a func that sets optional attributes for a call. This does not
// need to be used directly, but instead option arguments are built from the
// functions in this package. WithX options set a value to that given in the
// argument; DefaultX options indicate that the value should be set to its
// default. When an API call is made options are processed in the order they
// appear in the function call, so for a given argument X, a succession of
// WithX or DefaultX calls will result in the last call taking effect.
type Option func(*options)

type options struct {
	withSkipCurlOutput bool
}

func getDefaultOptions() options {
	return options{}
}

func getOpts(opt ...Option) options {
	opts := getDefaultOptions()
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	return opts
}

// WithSkipCurlOutput tells the API not to use the current call for cURL
// output. Useful for when a command needs to make a lookup before the call
// the user actually asked for.
func WithSkipCurlOutput(skip bool) Option {
	return func(o *options) {
		o.withSkipCurlOutput = skip
	}
}
