// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package buckets

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/caskstore/cask/api"
	"github.com/hashicorp/go-secure-stdlib/strutil"
)

var (
	// ErrMissingPolicy is returned, wrapped, when SetPolicy is called with a
	// nil policy. No request is issued in that case.
	ErrMissingPolicy = errors.New("a policy is required")

	// ErrMissingPermissions is returned, wrapped, when TestPermissions is
	// called with a nil permission list. An empty non-nil list is valid and
	// is sent to the service as-is. No request is issued in the nil case.
	ErrMissingPermissions = errors.New("permissions are required")
)

// Expr is a condition scoping a binding. Expression is CEL text; it is
// opaque to this client and evaluated only by the service.
type Expr struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`
}

// Binding associates a role with the identities granted that role,
// optionally scoped by a condition.
type Binding struct {
	Role      string   `json:"role"`
	Members   []string `json:"members,omitempty"`
	Condition *Expr    `json:"condition,omitempty"`
}

// Policy is a bucket's access control policy. Etag implements the service's
// optimistic concurrency: a stale etag causes SetPolicy to be rejected by
// the service.
type Policy struct {
	Bindings []*Binding `json:"bindings,omitempty"`
	Etag     string     `json:"etag,omitempty"`
	Version  uint32     `json:"version,omitempty"`
}

type PolicyResult struct {
	Item     *Policy
	response *api.Response
}

func (n PolicyResult) GetItem() any {
	return n.Item
}

func (n PolicyResult) GetResponse() *api.Response {
	return n.response
}

type TestPermissionsResult struct {
	// Item maps each requested permission to whether the caller holds it.
	// Permissions the caller did not ask about are never present, even if
	// the service mentioned them.
	Item     map[string]bool
	response *api.Response
}

func (n TestPermissionsResult) GetItem() any {
	return n.Item
}

func (n TestPermissionsResult) GetResponse() *api.Response {
	return n.response
}

// IamClient is an accessor for a single bucket's IAM endpoints. It holds the
// injected request executor and the bucket's fixed resource identifier;
// construct one with NewIamClient or Client.IAM.
type IamClient struct {
	client     *api.Client
	resourceId string
}

// NewIamClient returns an IAM accessor scoped to the named bucket. The
// resource identifier is computed once here and is immutable afterwards.
func NewIamClient(c *api.Client, bucketName string) *IamClient {
	return &IamClient{
		client:     c,
		resourceId: "buckets/" + bucketName,
	}
}

// ResourceId returns the identifier naming the governed bucket to the
// service, in the form "buckets/<name>".
func (c *IamClient) ResourceId() string {
	return c.resourceId
}

// Policy fetches the bucket's current IAM policy.
func (c *IamClient) Policy(ctx context.Context, opt ...Option) (*PolicyResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}

	opts, apiOpts := getOpts(opt...)
	defaultUserProject(c.client, &opts)

	req, err := c.client.NewRequest(ctx, "GET", c.resourceId+"/iam", nil, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating Policy request: %w", err)
	}

	if len(opts.queryMap) > 0 {
		q := url.Values{}
		for k, v := range opts.queryMap {
			q.Add(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing client request during Policy call: %w", err)
	}

	target := new(Policy)
	apiErr, err := resp.Decode(target)
	if err != nil {
		return nil, fmt.Errorf("error decoding Policy response: %w", err)
	}
	if apiErr != nil {
		return nil, apiErr
	}

	return &PolicyResult{Item: target, response: resp}, nil
}

// SetPolicy replaces the bucket's IAM policy with the given one. The request
// body is the caller's policy merged with the accessor's resource
// identifier; the accessor's identifier always wins, so callers cannot
// redirect the write to another resource.
func (c *IamClient) SetPolicy(ctx context.Context, policy *Policy, opt ...Option) (*PolicyResult, error) {
	if policy == nil {
		return nil, fmt.Errorf("nil policy passed into SetPolicy request: %w", ErrMissingPolicy)
	}
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}

	opts, apiOpts := getOpts(opt...)
	defaultUserProject(c.client, &opts)

	body := make(map[string]any, len(opts.postMap)+4)
	for k, v := range opts.postMap {
		body[k] = v
	}
	if len(policy.Bindings) > 0 {
		body["bindings"] = policy.Bindings
	}
	if policy.Etag != "" {
		body["etag"] = policy.Etag
	}
	if policy.Version != 0 {
		body["version"] = policy.Version
	}
	// Applied last, overriding anything the caller supplied.
	body["resourceId"] = c.resourceId

	req, err := c.client.NewRequest(ctx, "PUT", c.resourceId+"/iam", body, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating SetPolicy request: %w", err)
	}

	if len(opts.queryMap) > 0 {
		q := url.Values{}
		for k, v := range opts.queryMap {
			q.Add(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing client request during SetPolicy call: %w", err)
	}

	target := new(Policy)
	apiErr, err := resp.Decode(target)
	if err != nil {
		return nil, fmt.Errorf("error decoding SetPolicy response: %w", err)
	}
	if apiErr != nil {
		return nil, apiErr
	}

	return &PolicyResult{Item: target, response: resp}, nil
}

// TestPermissions asks the service which of the given permissions the caller
// holds on the bucket. Each requested permission becomes one repeated
// `permissions` query parameter; the result covers exactly the requested
// permissions, in a fresh map per call.
func (c *IamClient) TestPermissions(ctx context.Context, permissions []string, opt ...Option) (*TestPermissionsResult, error) {
	if permissions == nil {
		return nil, fmt.Errorf("nil permissions passed into TestPermissions request: %w", ErrMissingPermissions)
	}
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}

	opts, apiOpts := getOpts(opt...)
	defaultUserProject(c.client, &opts)

	req, err := c.client.NewRequest(ctx, "GET", c.resourceId+"/iam/testPermissions", nil, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating TestPermissions request: %w", err)
	}

	q := url.Values{}
	for _, p := range permissions {
		q.Add("permissions", p)
	}
	for k, v := range opts.queryMap {
		q.Add(k, v)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing client request during TestPermissions call: %w", err)
	}

	type testPermissionsResponse struct {
		// The service may omit this entirely when nothing is granted.
		Permissions []string `json:"permissions"`
	}
	target := &testPermissionsResponse{}
	apiErr, err := resp.Decode(target)
	if err != nil {
		return nil, fmt.Errorf("error decoding TestPermissions response: %w", err)
	}
	if apiErr != nil {
		return nil, apiErr
	}

	granted := make(map[string]bool, len(permissions))
	for _, p := range permissions {
		granted[p] = strutil.StrListContains(target.Permissions, p)
	}

	return &TestPermissionsResult{Item: granted, response: resp}, nil
}

// defaultUserProject fills in the client's default billing project when the
// call didn't specify one.
func defaultUserProject(c *api.Client, opts *options) {
	if _, ok := opts.queryMap["userProject"]; ok {
		return
	}
	if up := c.UserProject(); up != "" {
		opts.queryMap["userProject"] = up
	}
}
