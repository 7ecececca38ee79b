package adminclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Resource — CRUD одного REST-ресурса апстрима (users, roles, policies, ...).
// T — форма записи; для произвольных данных подходит map[string]any.
type Resource[T any] struct {
	c    *Client
	base string
}

// NewResource — ресурс по пути апстрима basePath ("users", "/roles", "stores/1/items").
func NewResource[T any](c *Client, basePath string) *Resource[T] {
	return &Resource[T]{c: c, base: "/" + strings.Trim(basePath, "/")}
}

func (r *Resource[T]) item(id string) string {
	return r.base + "/" + url.PathEscape(id)
}

// List — GET <base>[?query].
func (r *Resource[T]) List(ctx context.Context, query url.Values) ([]T, error) {
	path := r.base
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var out []T
	if err := r.c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get — GET <base>/<id>.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	err := r.c.Do(ctx, http.MethodGet, r.item(id), nil, &out)
	return out, err
}

// Create — POST <base>.
func (r *Resource[T]) Create(ctx context.Context, in T) (T, error) {
	var out T
	err := r.c.Do(ctx, http.MethodPost, r.base, in, &out)
	return out, err
}

// Update — PUT <base>/<id>.
func (r *Resource[T]) Update(ctx context.Context, id string, in T) (T, error) {
	var out T
	err := r.c.Do(ctx, http.MethodPut, r.item(id), in, &out)
	return out, err
}

// Delete — DELETE <base>/<id>.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.c.Do(ctx, http.MethodDelete, r.item(id), nil, nil)
}
