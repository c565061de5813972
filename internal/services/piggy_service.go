package services

import (
	"context"
	"fmt"
	"log/slog"

	"piggybank/internal/amqp"
	"piggybank/internal/core"
	"piggybank/internal/storage"
)

// PiggyService orchestrates piggy-bank operations across validation, SQLite
// and the AMQP sync queue. Storage is the source of truth: a failed publish
// never fails the request, the startup reconcile sweep catches up later.
type PiggyService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewPiggyService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *PiggyService {
	return &PiggyService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// List returns every piggy bank owned by the given user.
func (s *PiggyService) List(ctx context.Context, owner string) ([]core.PiggyBank, error) {
	return s.storage.ListPiggies(ctx, owner)
}

// Create validates the raw input, stamps the owner and saves the piggy bank,
// then queues it for the savings report.
func (s *PiggyService) Create(ctx context.Context, owner string, in core.PiggyInput) (core.PiggyBank, error) {
	p, err := core.ValidatePiggyInput(in)
	if err != nil {
		return core.PiggyBank{}, err
	}
	p.Owner = owner

	saved, err := s.storage.CreatePiggy(ctx, p)
	if err != nil {
		return core.PiggyBank{}, fmt.Errorf("save piggy bank: %w", err)
	}

	s.publishSync(ctx, saved.ID, 1)
	return saved, nil
}

// Update validates the raw input like a creation would, then overwrites the
// record matching both id and owner. A foreign or missing id reports
// core.ErrPiggyNotFound either way.
func (s *PiggyService) Update(ctx context.Context, id int64, owner string, in core.PiggyInput) (core.PiggyBank, error) {
	p, err := core.ValidatePiggyInput(in)
	if err != nil {
		return core.PiggyBank{}, err
	}

	updated, err := s.storage.UpdatePiggy(ctx, id, owner, p)
	if err != nil {
		return core.PiggyBank{}, err
	}

	version := int64(0)
	if row, err := s.storage.GetPiggyRow(ctx, id); err == nil {
		version = row.Version
	}
	s.publishSync(ctx, id, version)
	return updated, nil
}

// Delete removes the record matching both id and owner and queues the report
// removal. The row data needed by the worker travels in the message, since
// the row itself is already gone.
func (s *PiggyService) Delete(ctx context.Context, id int64, owner string) error {
	// Capture the title before the row disappears; the worker needs it to
	// locate the report entry. Ownership is enforced by the delete itself.
	row, _ := s.storage.GetPiggyRow(ctx, id)

	if err := s.storage.DeletePiggy(ctx, id, owner); err != nil {
		return err
	}

	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message", "id", id)
		return nil
	}
	if err := s.amqpClient.PublishPiggyDelete(ctx, id, row.Piggy.Title, owner); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
	}
	return nil
}

func (s *PiggyService) publishSync(ctx context.Context, id, version int64) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message", "id", id)
		return
	}
	if err := s.amqpClient.PublishPiggySync(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
	}
}

// Close closes both storage and AMQP connections.
func (s *PiggyService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close piggy service: %v", errs)
	}
	return nil
}
