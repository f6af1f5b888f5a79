package odk

import (
	"context"

	"github.com/posko-sync/internal/model"
)

// Dataset binds a client to one entity dataset so that callers hold a
// single-collection view of the platform.
type Dataset struct {
	client *Client
	name   string
}

// Dataset returns a dataset-scoped view of the client.
func (c *Client) Dataset(name string) *Dataset {
	return &Dataset{client: c, name: name}
}

// Name returns the dataset name.
func (d *Dataset) Name() string {
	return d.name
}

// ListEntities fetches all entities in the dataset.
func (d *Dataset) ListEntities(ctx context.Context) ([]model.ExternalEntity, error) {
	return d.client.ListEntities(ctx, d.name)
}

// GetEntity fetches one entity's current version.
func (d *Dataset) GetEntity(ctx context.Context, id string) (*model.ExternalEntity, error) {
	return d.client.GetEntity(ctx, d.name, id)
}

// UpdateEntity patches one entity conditioned on baseVersion.
func (d *Dataset) UpdateEntity(ctx context.Context, id, label string, data map[string]string, baseVersion int) error {
	return d.client.UpdateEntity(ctx, d.name, id, label, data, baseVersion)
}
