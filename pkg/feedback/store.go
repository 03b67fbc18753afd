package feedback

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/valentinpelus/birdwatch/pkg/types"
)

const insertFeedbackQuery = `
	INSERT INTO feedback (
		feedback_id, slack_message_id, slack_user_id, model_version, is_correct,
		top_prediction, corrected_species, zip_code, comments, timestamp
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// Opener opens a connection that is used for exactly one statement and then closed
type Opener func(ctx context.Context) (*sql.DB, error)

// PostgresOpener returns an Opener dialing dsn with the lib/pq driver
func PostgresOpener(dsn string) Opener {
	return func(ctx context.Context) (*sql.DB, error) {
		if dsn == "" {
			return nil, fmt.Errorf("database URL is required")
		}

		connector, err := pq.NewConnector(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid database URL: %w", err)
		}

		db := sql.OpenDB(connector)
		db.SetMaxOpenConns(1)

		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return db, nil
	}
}

// Store writes feedback records to the relational store
type Store struct {
	open   Opener
	logger logrus.FieldLogger
}

// NewStore creates a new feedback store
func NewStore(open Opener, logger logrus.FieldLogger) *Store {
	return &Store{open: open, logger: logger}
}

// Insert writes record with a single INSERT on a freshly opened connection.
// The connection is released on every path.
func (s *Store) Insert(ctx context.Context, record types.FeedbackRecord) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close feedback database connection")
		}
	}()

	_, err = db.ExecContext(ctx, insertFeedbackQuery,
		record.FeedbackID,
		record.SlackMessageID,
		record.UserID,
		record.ModelVersion,
		record.IsCorrect,
		record.TopPrediction,
		record.CorrectedSpecies,
		record.ZipCode,
		record.Comments,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"feedback_id": record.FeedbackID,
		"is_correct":  record.IsCorrect,
	}).Info("Stored feedback")
	return nil
}
