// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package buckets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caskstore/cask/api"
	"github.com/kr/pretty"
)

// Bucket is a container for objects, and the resource that IAM policies
// attach to.
type Bucket struct {
	Name         string    `json:"name,omitempty"`
	Description  string    `json:"description,omitempty"`
	Location     string    `json:"location,omitempty"`
	StorageClass string    `json:"storageClass,omitempty"`
	CreatedTime  time.Time `json:"createdTime,omitempty"`
	UpdatedTime  time.Time `json:"updatedTime,omitempty"`
	Version      uint32    `json:"version,omitempty"`
}

type BucketResult struct {
	Item     *Bucket
	response *api.Response
}

func (n BucketResult) GetItem() any {
	return n.Item
}

func (n BucketResult) GetResponse() *api.Response {
	return n.response
}

type BucketListResult struct {
	Items    []*Bucket
	response *api.Response
}

func (n BucketListResult) GetItems() any {
	return n.Items
}

func (n BucketListResult) GetResponse() *api.Response {
	return n.response
}

// Client is a client for the buckets collection.
type Client struct {
	client *api.Client
}

// NewClient creates a new client for this collection. The submitted API
// client is retained as-is; use ApiClient() to access it for later changes.
func NewClient(c *api.Client) *Client {
	return &Client{client: c}
}

// ApiClient returns the underlying API client
func (c *Client) ApiClient() *api.Client {
	return c.client
}

// IAM returns an accessor for the named bucket's IAM endpoints.
func (c *Client) IAM(bucketName string) *IamClient {
	return NewIamClient(c.client, bucketName)
}

func (c *Client) Create(ctx context.Context, bucketName string, opt ...Option) (*BucketResult, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("empty bucketName value passed into Create request")
	}
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}

	opts, apiOpts := getOpts(opt...)
	defaultUserProject(c.client, &opts)

	opts.postMap["name"] = bucketName

	req, err := c.client.NewRequest(ctx, "POST", "buckets", opts.postMap, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating Create request: %w", err)
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
		return nil, fmt.Errorf("error performing client request during Create call: %w", err)
	}

	target := new(Bucket)
	apiErr, err := resp.Decode(target)
	if err != nil {
		return nil, fmt.Errorf("error decoding Create response: %w", err)
	}
	if apiErr != nil {
		return nil, apiErr
	}

	return &BucketResult{Item: target, response: resp}, nil
}

func (c *Client) Read(ctx context.Context, bucketName string, opt ...Option) (*BucketResult, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("empty bucketName value passed into Read request")
	}
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}

	opts, apiOpts := getOpts(opt...)
	defaultUserProject(c.client, &opts)

	req, err := c.client.NewRequest(ctx, "GET", fmt.Sprintf("buckets/%s", url.PathEscape(bucketName)), nil, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating Read request: %w", err)
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
		return nil, fmt.Errorf("error performing client request during Read call: %w", err)
	}

	target := new(Bucket)
	apiErr, err := resp.Decode(target)
	if err != nil {
		return nil, fmt.Errorf("error decoding Read response: %w", err)
	}
	if apiErr != nil {
		return nil, apiErr
	}

	return &BucketResult{Item: target, response: resp}, nil
}

func (c *Client) Update(ctx context.Context, bucketName string, version uint32, opt ...Option) (*BucketResult, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("empty bucketName value passed into Update request")
	}
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}

	opts, apiOpts := getOpts(opt...)
	defaultUserProject(c.client, &opts)

	if version == 0 {
		if !opts.withAutomaticVersioning {
			return nil, errors.New("zero version number passed into Update request and automatic versioning not specified")
		}
		existingTarget, existingErr := c.Read(ctx, bucketName, append([]Option{WithSkipCurlOutput(true)}, opt...)...)
		if existingErr != nil {
			if apiErr := api.AsServerError(existingErr); apiErr != nil {
				return nil, fmt.Errorf("error from controller when performing initial check-and-set read: %s", pretty.Sprint(apiErr))
			}
			return nil, fmt.Errorf("error performing initial check-and-set read: %w", existingErr)
		}
		if existingTarget == nil || existingTarget.Item == nil {
			return nil, errors.New("nil resource found when performing initial check-and-set read")
		}
		version = existingTarget.Item.Version
	}

	opts.queryMap["version"] = fmt.Sprintf("%d", version)

	req, err := c.client.NewRequest(ctx, "PATCH", fmt.Sprintf("buckets/%s", url.PathEscape(bucketName)), opts.postMap, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating Update request: %w", err)
	}

	q := url.Values{}
	for k, v := range opts.queryMap {
		q.Add(k, v)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing client request during Update call: %w", err)
	}

	target := new(Bucket)
	apiErr, err := resp.Decode(target)
	if err != nil {
		return nil, fmt.Errorf("error decoding Update response: %w", err)
	}
	if apiErr != nil {
		return nil, apiErr
	}

	return &BucketResult{Item: target, response: resp}, nil
}

func (c *Client) Delete(ctx context.Context, bucketName string, opt ...Option) (bool, error) {
	if bucketName == "" {
		return false, fmt.Errorf("empty bucketName value passed into Delete request")
	}
	if c.client == nil {
		return false, fmt.Errorf("nil client")
	}

	opts, apiOpts := getOpts(opt...)
	defaultUserProject(c.client, &opts)

	req, err := c.client.NewRequest(ctx, "DELETE", fmt.Sprintf("buckets/%s", url.PathEscape(bucketName)), nil, apiOpts...)
	if err != nil {
		return false, fmt.Errorf("error creating Delete request: %w", err)
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
		return false, fmt.Errorf("error performing client request during Delete call: %w", err)
	}

	type deleteResponse struct {
		Existed bool `json:"existed"`
	}
	target := &deleteResponse{}
	apiErr, err := resp.Decode(target)
	if err != nil {
		return false, fmt.Errorf("error decoding Delete response: %w", err)
	}
	if apiErr != nil {
		return false, apiErr
	}

	return target.Existed, nil
}

func (c *Client) List(ctx context.Context, opt ...Option) (*BucketListResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}

	opts, apiOpts := getOpts(opt...)
	defaultUserProject(c.client, &opts)

	req, err := c.client.NewRequest(ctx, "GET", "buckets", nil, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating List request: %w", err)
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
		return nil, fmt.Errorf("error performing client request during List call: %w", err)
	}

	type listResponse struct {
		Items []*Bucket `json:"items"`
	}
	target := &listResponse{}
	apiErr, err := resp.Decode(target)
	if err != nil {
		return nil, fmt.Errorf("error decoding List response: %w", err)
	}
	if apiErr != nil {
		return nil, apiErr
	}

	return &BucketListResult{Items: target.Items, response: resp}, nil
}
