// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package buckets

import (
	"strconv"
	"strings"

	"github.com/caskstore/cask/api"
)

// Option is a func that sets optional attributes for a call. This does not
// need to be used directly, but instead option arguments are built from the
// functions in this package. WithX options set a value to that given in the
// argument; DefaultX options indicate that the value should be set to its
// default. When an API call is made options are processed in the order they
// appear in the function call, so for a given argument X, a succession of
// WithX or DefaultX calls will result in the last call taking effect.
type Option func(*options)

type options struct {
	postMap                 map[string]any
	queryMap                map[string]string
	withAutomaticVersioning bool
	withSkipCurlOutput      bool
	withFilter              string
}

func getDefaultOptions() options {
	return options{
		postMap:  make(map[string]any),
		queryMap: make(map[string]string),
	}
}

func getOpts(opt ...Option) (options, []api.Option) {
	opts := getDefaultOptions()
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	var apiOpts []api.Option
	if opts.withSkipCurlOutput {
		apiOpts = append(apiOpts, api.WithSkipCurlOutput(true))
	}
	if opts.withFilter != "" {
		opts.queryMap["filter"] = opts.withFilter
	}
	return opts, apiOpts
}

// If set, and if the version is zero during an update, the API will perform
// a fetch to get the current version of the resource and populate it during
// the update call. This is convenient but opens up the possibility for
// subtle order-of-modification issues, so use carefully.
func WithAutomaticVersioning(enable bool) Option {
	return func(o *options) {
		o.withAutomaticVersioning = enable
	}
}

// WithSkipCurlOutput tells the API to not use the current call for cURL
// output. Useful for when we need to look up versions.
func WithSkipCurlOutput(skip bool) Option {
	return func(o *options) {
		o.withSkipCurlOutput = skip
	}
}

// WithFilter tells the API to filter the items returned using the provided
// filter term.
func WithFilter(filter string) Option {
	return func(o *options) {
		o.withFilter = strings.TrimSpace(filter)
	}
}

func WithDescription(inDescription string) Option {
	return func(o *options) {
		o.postMap["description"] = inDescription
	}
}

func DefaultDescription() Option {
	return func(o *options) {
		o.postMap["description"] = nil
	}
}

func WithLocation(inLocation string) Option {
	return func(o *options) {
		o.postMap["location"] = inLocation
	}
}

func WithStorageClass(inStorageClass string) Option {
	return func(o *options) {
		o.postMap["storageClass"] = inStorageClass
	}
}

// WithUserProject sets the project billed for the call, overriding any
// default configured on the client.
func WithUserProject(inUserProject string) Option {
	return func(o *options) {
		o.queryMap["userProject"] = inUserProject
	}
}

// WithRequestedPolicyVersion selects the IAM policy schema version to
// retrieve. Policies with conditional bindings require at least version 3;
// omitting this option may silently yield a lower-version policy, or an
// error if the stored policy requires a higher version.
func WithRequestedPolicyVersion(inVersion uint32) Option {
	return func(o *options) {
		o.queryMap["optionsRequestedPolicyVersion"] = strconv.FormatUint(uint64(inVersion), 10)
	}
}

// WithQueryParam passes an arbitrary query parameter through to the service
// unexamined. Intended for parameters newer than this client.
func WithQueryParam(key, value string) Option {
	return func(o *options) {
		o.queryMap[key] = value
	}
}
