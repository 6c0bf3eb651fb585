package database

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"

	"github.com/locvowork/staffportal/internal/domain"
)

const feedKind = "NotificationFeed"

// FeedEntry is the Datastore shape of a delivered notification.
type FeedEntry struct {
	RecipientUserID string
	Title           string
	Message         string `datastore:",noindex"`
	Type            string
	Tag             string
	RelatedID       string
	CreatedAt       time.Time
}

func feedEntryOf(n domain.Notification) FeedEntry {
	return FeedEntry{
		RecipientUserID: n.RecipientUserID,
		Title:           n.Title,
		Message:         n.Message,
		Type:            n.Type,
		Tag:             n.Tag,
		RelatedID:       n.RelatedID,
		CreatedAt:       n.CreatedAt,
	}
}

// DatastoreClient mirrors committed notifications into a Datastore feed
// that other consumers read.
type DatastoreClient struct {
	client *datastore.Client
}

// NewDatastoreClient connects to the given project.
func NewDatastoreClient(ctx context.Context, projectID string) (*DatastoreClient, error) {
	client, err := datastore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create datastore client: %w", err)
	}
	return &DatastoreClient{client: client}, nil
}

func (dc *DatastoreClient) Name() string { return "datastore" }

// Publish stores every event keyed by notification id; replays overwrite.
func (dc *DatastoreClient) Publish(ctx context.Context, events []domain.Notification) error {
	if dc == nil || dc.client == nil {
		return fmt.Errorf("datastore client is nil")
	}

	if len(events) == 0 {
		return nil
	}

	keys := make([]*datastore.Key, len(events))
	entries := make([]FeedEntry, len(events))
	for i, n := range events {
		keys[i] = datastore.NameKey(feedKind, n.ID, nil)
		entries[i] = feedEntryOf(n)
	}

	if _, err := dc.client.PutMulti(ctx, keys, entries); err != nil {
		return fmt.Errorf("failed to publish %d notifications: %w", len(events), err)
	}
	return nil
}

func (dc *DatastoreClient) Close() error {
	if dc == nil || dc.client == nil {
		return nil
	}
	return dc.client.Close()
}
