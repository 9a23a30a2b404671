package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ClientRepository struct {
	*base.Repository
}

func NewClientRepository(pool *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{Repository: base.NewRepository(pool)}
}

// GetOrCreate находит клиента по телефону или создаёт нового.
// Имя существующего клиента не перезаписывается.
func (r *ClientRepository) GetOrCreate(ctx context.Context, name, phone string) (*model.Client, error) {
	query := `
		INSERT INTO clients (name, phone)
		VALUES ($1, $2)
		ON CONFLICT (phone) DO UPDATE SET phone = EXCLUDED.phone
		RETURNING id, name, phone, created_at
	`

	var client model.Client
	err := r.Executor(ctx).QueryRow(ctx, query, name, phone).Scan(
		&client.ID,
		&client.Name,
		&client.Phone,
		&client.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get or create client: %w", err)
	}

	return &client, nil
}

// GetByID получает клиента по ID
func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*model.Client, error) {
	return r.getOne(ctx, `SELECT id, name, phone, created_at FROM clients WHERE id = $1`, id)
}

// FindByPhone получает клиента по телефону
func (r *ClientRepository) FindByPhone(ctx context.Context, phone string) (*model.Client, error) {
	return r.getOne(ctx, `SELECT id, name, phone, created_at FROM clients WHERE phone = $1`, phone)
}

func (r *ClientRepository) getOne(ctx context.Context, query string, arg any) (*model.Client, error) {
	var client model.Client
	err := r.Executor(ctx).QueryRow(ctx, query, arg).Scan(
		&client.ID,
		&client.Name,
		&client.Phone,
		&client.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client: %w", err)
	}

	return &client, nil
}
