package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewBookingCodeRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewBookingCodeRepository(pool)
	assert.NotNil(t, repo)
}

func TestAddBookingCode_RequiresSubjectAndCode(t *testing.T) {
	repo := NewBookingCodeRepository(&pgxpool.Pool{})

	assert.Error(t, repo.AddBookingCode(context.Background(), "", "ABC123"))
	assert.Error(t, repo.AddBookingCode(context.Background(), "user-1", ""))
}

func TestSchemaKeysBySubjectAndCode(t *testing.T) {
	assert.Contains(t, Schema, "PRIMARY KEY (subject, code)")
}
