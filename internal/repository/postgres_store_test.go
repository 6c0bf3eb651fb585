package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/locvowork/staffportal/internal/domain"
)

func TestPostgresTransactionsAreSerializable(t *testing.T) {
	assert.Equal(t, sql.LevelSerializable, serializable.Isolation)
	assert.False(t, serializable.ReadOnly)
}

func TestRetrySerializable(t *testing.T) {
	ctx := context.Background()
	aborted := fmt.Errorf("failed to list time cards: %w", &pq.Error{Code: "40001"})

	tests := []struct {
		name      string
		failures  []error
		wantCalls int
		wantKind  domain.ErrorKind
		wantErr   error
	}{
		{name: "first attempt succeeds", wantCalls: 1},
		{name: "retries a serialization failure", failures: []error{aborted}, wantCalls: 2},
		{name: "retries a deadlock", failures: []error{&pq.Error{Code: "40P01"}}, wantCalls: 2},
		{name: "gives up as conflict", failures: []error{aborted, aborted, aborted}, wantCalls: 3, wantKind: domain.KindConflict},
		{name: "domain errors are not retried", failures: []error{domain.ErrDuplicatePeriod}, wantCalls: 1, wantErr: domain.ErrDuplicatePeriod},
		{name: "other driver errors are not retried", failures: []error{&pq.Error{Code: "23505"}}, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := retrySerializable(ctx, 3, func() error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			switch {
			case tt.wantKind != "":
				assert.Equal(t, tt.wantKind, domain.KindOf(err))
				var pqErr *pq.Error
				assert.True(t, errors.As(err, &pqErr))
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantCalls > len(tt.failures):
				assert.NoError(t, err)
			default:
				assert.Error(t, err)
			}
		})
	}
}
