package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apimorph/internal/model"
	"github.com/vyrodovalexey/apimorph/internal/response"
	"github.com/vyrodovalexey/apimorph/internal/server"
	"github.com/vyrodovalexey/apimorph/internal/transform"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
	excerptLength  = 40
)

// demoStore is an in-memory set of users and posts.
type demoStore struct {
	mu    sync.RWMutex
	users []map[string]any
	posts []map[string]any
}

func newDemoStore() *demoStore {
	return &demoStore{
		users: []map[string]any{
			{"id": 1, "name": "Ada Lovelace", "email": "ada@example.com", "password": "analytical", "active": true},
			{"id": 2, "name": "Alan Turing", "email": "alan@example.com", "password": "enigma", "active": true},
			{"id": 3, "name": "Grace Hopper", "email": "grace@example.com", "password": "cobol", "active": false},
		},
		posts: []map[string]any{
			{"id": 1, "author_id": 1, "title": "Notes on the Analytical Engine", "body": "The engine might compose elaborate pieces of music of any degree of complexity."},
			{"id": 2, "author_id": 2, "title": "Computing Machinery and Intelligence", "body": "I propose to consider the question, can machines think?"},
			{"id": 3, "author_id": 1, "title": "Bernoulli Numbers", "body": "A table of the operations required to compute the numbers."},
		},
	}
}

func (d *demoStore) user(id int) (*model.Resource, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, u := range d.users {
		if u["id"] == id {
			return model.NewResource("user", copyAttrs(u)), true
		}
	}
	return nil, false
}

// usersPage returns one page of users and its pagination.
func (d *demoStore) usersPage(page, perPage int) *model.List {
	d.mu.RLock()
	defer d.mu.RUnlock()

	total := len(d.users)
	start := min((page-1)*perPage, total)
	end := min(start+perPage, total)

	items := make([]model.Record, 0, end-start)
	for _, u := range d.users[start:end] {
		items = append(items, model.NewResource("user", copyAttrs(u)))
	}

	list := model.NewList("users", items...)
	list.Page = &model.Pagination{
		Total:       total,
		Count:       len(items),
		PerPage:     perPage,
		CurrentPage: page,
		TotalPages:  (total + perPage - 1) / perPage,
		Links:       pageLinks("/users", page, perPage, total),
	}
	return list
}

// post returns a post with its author embedded as a related record.
func (d *demoStore) post(id int) (*model.Resource, bool) {
	d.mu.RLock()
	p, ok := d.findPost(id)
	d.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return d.withAuthor(p), true
}

func (d *demoStore) allPosts() *model.List {
	d.mu.RLock()
	all := make([]map[string]any, len(d.posts))
	copy(all, d.posts)
	d.mu.RUnlock()

	items := make([]model.Record, 0, len(all))
	for _, p := range all {
		items = append(items, d.withAuthor(p))
	}
	return model.NewList("posts", items...)
}

func (d *demoStore) findPost(id int) (map[string]any, bool) {
	for _, p := range d.posts {
		if p["id"] == id {
			return p, true
		}
	}
	return nil, false
}

func (d *demoStore) withAuthor(p map[string]any) *model.Resource {
	attrs := copyAttrs(p)
	if authorID, ok := attrs["author_id"].(int); ok {
		if author, ok := d.user(authorID); ok {
			attrs["author"] = author
		}
	}
	return model.NewResource("post", attrs)
}

func copyAttrs(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func pageLinks(path string, page, perPage, total int) map[string]string {
	links := make(map[string]string, 2)
	if page > 1 {
		links["previous"] = fmt.Sprintf("%s?page=%d&per_page=%d", path, page-1, perPage)
	}
	if page*perPage < total {
		links["next"] = fmt.Sprintf("%s?page=%d&per_page=%d", path, page+1, perPage)
	}
	return links
}

// demoTransformers returns the transformers written in code for the demo
// resources. Configured rules for the same resources replace them.
func demoTransformers() []server.RuntimeOption {
	user := transform.TransformerFunc(func(_ context.Context, rec model.Record, _ *transform.Scope) (model.Record, error) {
		attrs := copyAttrs(rec.Attributes())
		delete(attrs, "password")
		return model.NewResource(rec.ResourceKey(), attrs), nil
	})

	post := transform.TransformerFunc(func(ctx context.Context, rec model.Record, scope *transform.Scope) (model.Record, error) {
		attrs := copyAttrs(rec.Attributes())

		if author, ok := attrs["author"]; ok {
			nested, err := scope.Nested(ctx, author)
			if err != nil {
				return nil, err
			}
			if r, ok := nested.(model.Record); ok {
				attrs["author"] = r.Attributes()
			} else {
				delete(attrs, "author")
			}
			delete(attrs, "author_id")
		}

		if body, ok := attrs["body"].(string); ok {
			attrs["excerpt"] = excerpt(body)
		}
		if scope.Depth() == 0 {
			scope.AddMeta("generator", "morphd-demo")
		}

		return model.NewResource(rec.ResourceKey(), attrs), nil
	})

	return []server.RuntimeOption{
		server.WithTransformer("user", user),
		server.WithTransformer("post", post),
	}
}

func excerpt(body string) string {
	runes := []rune(body)
	if len(runes) <= excerptLength {
		return body
	}
	return strings.TrimSpace(string(runes[:excerptLength])) + "..."
}

// registerDemoRoutes registers the demo endpoints on s.
func registerDemoRoutes(s *server.Server, store *demoStore) {
	s.GET("/users", func(c *gin.Context) (*response.Response, error) {
		page, perPage, err := pagination(c)
		if err != nil {
			return nil, err
		}
		users := store.usersPage(page, perPage)
		return response.New(users, http.StatusOK, nil).Bind(transform.NewBinding(users)), nil
	})

	s.GET("/users/:id", func(c *gin.Context) (*response.Response, error) {
		id, err := pathID(c)
		if err != nil {
			return nil, err
		}
		user, ok := store.user(id)
		if !ok {
			return nil, server.NewHTTPError(http.StatusNotFound, fmt.Sprintf("user %d not found", id))
		}
		return response.New(user, http.StatusOK, nil).Bind(transform.NewBinding(user)), nil
	})

	s.GET("/posts", func(*gin.Context) (*response.Response, error) {
		posts := store.allPosts()
		return response.New(posts, http.StatusOK, nil).
			Bind(transform.NewBinding(posts)).
			AddMeta("count", len(posts.Items)), nil
	})

	s.GET("/posts/:id", func(c *gin.Context) (*response.Response, error) {
		id, err := pathID(c)
		if err != nil {
			return nil, err
		}
		post, ok := store.post(id)
		if !ok {
			return nil, server.NewHTTPError(http.StatusNotFound, fmt.Sprintf("post %d not found", id))
		}
		return response.New(post, http.StatusOK, nil).Bind(transform.NewBinding(post)), nil
	})

	// /echo re-renders a JSON request body in the negotiated format.
	s.POST("/echo", func(c *gin.Context) (*response.Response, error) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		if err != nil {
			return nil, server.NewHTTPError(http.StatusBadRequest, "failed to read request body")
		}
		resp, err := response.FromJSON(body, http.StatusOK, nil)
		if err != nil {
			return nil, server.NewHTTPError(http.StatusBadRequest, "request body is not valid JSON")
		}
		return resp, nil
	})
}

func pathID(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, server.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid id %q", c.Param("id")))
	}
	return id, nil
}

func pagination(c *gin.Context) (page, perPage int, err error) {
	page, perPage = 1, defaultPerPage

	if v := c.Query("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil || page < 1 {
			return 0, 0, server.NewHTTPError(http.StatusBadRequest, "page must be a positive integer")
		}
	}
	if v := c.Query("per_page"); v != "" {
		if perPage, err = strconv.Atoi(v); err != nil || perPage < 1 || perPage > maxPerPage {
			return 0, 0, server.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("per_page must be between 1 and %d", maxPerPage))
		}
	}
	return page, perPage, nil
}
