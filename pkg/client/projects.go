package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/zohaib/garage/pkg/domain"
)

// PathProjects is the project collection endpoint.
const PathProjects = "/projects/"

func projectPath(id int) string {
	return fmt.Sprintf("%s%d/", PathProjects, id)
}

// ListProjects returns all projects, newest first. Both a bare array and a
// paginated {"results": [...]} body are accepted.
func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	resp, err := c.Send(ctx, &Request{Method: http.MethodGet, Path: PathProjects})
	if err != nil {
		return nil, fmt.Errorf("client.ListProjects: %w", err)
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) > 0 && body[0] == '{' {
		var page struct {
			Results []domain.Project `json:"results"`
			Count   int              `json:"count"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("client.ListProjects: decode page: %w", err)
		}
		return page.Results, nil
	}

	var projects []domain.Project
	if err := resp.Decode(&projects); err != nil {
		return nil, fmt.Errorf("client.ListProjects: %w", err)
	}
	return projects, nil
}

// GetProject fetches a single project by ID.
func (c *Client) GetProject(ctx context.Context, id int) (*domain.Project, error) {
	var p domain.Project
	if err := c.sendJSON(ctx, &Request{Method: http.MethodGet, Path: projectPath(id)}, &p); err != nil {
		return nil, fmt.Errorf("client.GetProject: %w", err)
	}
	return &p, nil
}

// CreateProject creates a new project.
func (c *Client) CreateProject(ctx context.Context, in domain.ProjectInput) (*domain.Project, error) {
	var created domain.Project
	if err := c.sendJSON(ctx, &Request{Method: http.MethodPost, Path: PathProjects, Body: in}, &created); err != nil {
		return nil, fmt.Errorf("client.CreateProject: %w", err)
	}
	return &created, nil
}

// UpdateProject applies a partial update.
func (c *Client) UpdateProject(ctx context.Context, id int, patch domain.ProjectPatch) (*domain.Project, error) {
	var updated domain.Project
	if err := c.sendJSON(ctx, &Request{Method: http.MethodPatch, Path: projectPath(id), Body: patch}, &updated); err != nil {
		return nil, fmt.Errorf("client.UpdateProject: %w", err)
	}
	return &updated, nil
}

// DeleteProject deletes a project.
func (c *Client) DeleteProject(ctx context.Context, id int) error {
	if _, err := c.Send(ctx, &Request{Method: http.MethodDelete, Path: projectPath(id)}); err != nil {
		return fmt.Errorf("client.DeleteProject: %w", err)
	}
	return nil
}
