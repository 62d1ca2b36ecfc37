package github

import (
	"context"
	"errors"
	"iter"

	"github.com/google/go-github/v66/github"
)

// ErrPaginatorConsumed is returned when a Paginator is iterated a second time
var ErrPaginatorConsumed = errors.New("paginator already consumed")

// PageFetcher requests a single page. It returns the page items and the number
// of the next page, or 0 when the endpoint reports no further page.
type PageFetcher[T any] func(ctx context.Context, opts github.ListOptions) ([]T, int, error)

// Paginator walks a page-numbered list endpoint. A Paginator can only be consumed once.
type Paginator[T any] struct {
	fetch    PageFetcher[T]
	pageSize int
	resource string
	retry    *RetryConfig
	consumed bool
}

// NewPaginator creates a paginator requesting pageSize items per page
func NewPaginator[T any](resource string, pageSize int, retry *RetryConfig, fetch PageFetcher[T]) *Paginator[T] {
	return &Paginator[T]{
		fetch:    fetch,
		pageSize: pageSize,
		resource: resource,
		retry:    retry,
	}
}

// Pages yields each page in order. Iteration stops after the first error.
func (p *Paginator[T]) Pages(ctx context.Context) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		if p.consumed {
			yield(nil, ErrPaginatorConsumed)
			return
		}
		p.consumed = true

		opts := github.ListOptions{PerPage: p.pageSize}
		for {
			var items []T
			var next int
			err := WithRetry(ctx, func() error {
				var err error
				items, next, err = p.fetch(ctx, opts)
				if err != nil {
					return WrapGitHubError(err, p.resource)
				}
				return nil
			}, p.retry)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(items, nil) || next == 0 {
				return
			}
			opts.Page = next
		}
	}
}

// Collect gathers every item across all pages. On error the partially collected
// items are discarded.
func (p *Paginator[T]) Collect(ctx context.Context) ([]T, error) {
	var all []T
	for items, err := range p.Pages(ctx) {
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}

// CollectAll is a shorthand for NewPaginator(...).Collect(ctx)
func CollectAll[T any](ctx context.Context, resource string, pageSize int, retry *RetryConfig, fetch PageFetcher[T]) ([]T, error) {
	return NewPaginator(resource, pageSize, retry, fetch).Collect(ctx)
}
