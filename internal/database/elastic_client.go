package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/olivere/elastic/v7"

	"github.com/locvowork/staffportal/internal/domain"
)

// StaffDoc is the searchable projection of a user.
type StaffDoc struct {
	ID             string    `json:"id"`
	EmployeeNumber string    `json:"employee_number"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Role           string    `json:"role"`
	Department     string    `json:"department"`
	Building       string    `json:"building"`
	Position       string    `json:"position"`
	Active         bool      `json:"active"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func staffDocOf(u domain.User) StaffDoc {
	return StaffDoc{
		ID:             u.ID,
		EmployeeNumber: u.EmployeeNumber,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Role:           string(u.Role),
		Department:     u.Department,
		Building:       u.Building,
		Position:       u.Position,
		Active:         u.Active,
		UpdatedAt:      u.UpdatedAt,
	}
}

// ElasticSearchClient indexes the staff directory for free-text search.
type ElasticSearchClient struct {
	client *elastic.Client
	index  string
}

// NewElasticSearchClient creates a client for Elasticsearch 7.x.
func NewElasticSearchClient(url, index string) (*ElasticSearchClient, error) {
	client, err := elastic.NewClient(
		elastic.SetURL(url),
		elastic.SetSniff(false), // Essential when using Docker or cloud
		elastic.SetHealthcheck(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	return &ElasticSearchClient{client: client, index: index}, nil
}

// IndexUser upserts one staff document keyed by user id.
func (es *ElasticSearchClient) IndexUser(ctx context.Context, u domain.User) error {
	_, err := es.client.Index().
		Index(es.index).
		Id(u.ID).
		BodyJson(staffDocOf(u)).
		Refresh("true"). // Make changes immediately searchable
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to index user %s: %w", u.ID, err)
	}
	return nil
}

// SearchUsers returns matching user ids, best match first.
func (es *ElasticSearchClient) SearchUsers(ctx context.Context, query string, limit int) ([]string, error) {
	q := elastic.NewMultiMatchQuery(query, "first_name", "last_name", "email", "employee_number").
		Type("phrase_prefix")

	result, err := es.client.Search().
		Index(es.index).
		Query(q).
		Size(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	ids := make([]string, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var doc StaffDoc
		if err := json.Unmarshal(hit.Source, &doc); err != nil || doc.ID == "" {
			ids = append(ids, hit.Id)
			continue
		}
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

// BulkIndexUsers indexes many users in one request.
func (es *ElasticSearchClient) BulkIndexUsers(ctx context.Context, users []domain.User) error {
	bulkRequest := es.client.Bulk()

	for _, u := range users {
		req := elastic.NewBulkIndexRequest().
			Index(es.index).
			Id(u.ID).
			Doc(staffDocOf(u))
		bulkRequest = bulkRequest.Add(req)
	}

	if bulkRequest.NumberOfActions() == 0 {
		return nil
	}

	bulkResponse, err := bulkRequest.Refresh("true").Do(ctx)
	if err != nil {
		return fmt.Errorf("bulk index failed: %w", err)
	}

	if bulkResponse.Errors {
		for _, item := range bulkResponse.Failed() {
			if item.Error != nil {
				return fmt.Errorf("bulk item %s failed: %s", item.Id, item.Error.Reason)
			}
		}
	}
	return nil
}
