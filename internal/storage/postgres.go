package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sgunnelsporter/VirtualTourist/internal/config"
	"github.com/sgunnelsporter/VirtualTourist/internal/models"
)

// PostgresStore keeps pin and photo metadata in Postgres and the image
// bytes in the object store. Concurrent fills for one photo settle on a
// conditional UPDATE, so the first completed download wins and later
// ones are discarded.
type PostgresStore struct {
	pool    *pgxpool.Pool
	objects *ObjectStore
}

func NewPostgresStore(cfg config.DatabaseConfig, objects *ObjectStore) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool, objects: objects}, nil
}

// EnsureSchema creates the pin and photo tables if they don't exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS pins (
			id UUID PRIMARY KEY,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			location_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS photos (
			id UUID PRIMARY KEY,
			pin_id UUID NOT NULL REFERENCES pins(id) ON DELETE CASCADE,
			image_url TEXT NOT NULL DEFAULT '',
			object_key TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_photos_pin ON photos(pin_id);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Pins ---

func (s *PostgresStore) CreatePin(ctx context.Context, lat, lon float64, name string) (*models.Pin, error) {
	p := &models.Pin{
		ID:           uuid.New(),
		Latitude:     lat,
		Longitude:    lon,
		LocationName: name,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO pins (id, latitude, longitude, location_name) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		p.ID, p.Latitude, p.Longitude, p.LocationName,
	).Scan(&p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create pin: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetPin(ctx context.Context, id uuid.UUID) (*models.Pin, error) {
	p := &models.Pin{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, latitude, longitude, location_name, created_at FROM pins WHERE id = $1`, id,
	).Scan(&p.ID, &p.Latitude, &p.Longitude, &p.LocationName, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get pin: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPins(ctx context.Context) ([]models.Pin, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, latitude, longitude, location_name, created_at FROM pins ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list pins: %w", err)
	}
	defer rows.Close()

	var pins []models.Pin
	for rows.Next() {
		var p models.Pin
		if err := rows.Scan(&p.ID, &p.Latitude, &p.Longitude, &p.LocationName, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pin: %w", err)
		}
		pins = append(pins, p)
	}
	return pins, nil
}

func (s *PostgresStore) DeletePin(ctx context.Context, id uuid.UUID) error {
	keys, err := s.objectKeysForPin(ctx, id)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM pins WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if len(keys) > 0 {
		if err := s.objects.DeleteMany(ctx, keys); err != nil {
			slog.Warn("delete pin objects", "pin_id", id, "error", err)
		}
	}
	return nil
}

// --- Photos ---

func (s *PostgresStore) CreatePendingPhoto(ctx context.Context, pinID uuid.UUID, imageURL string) (*models.Photo, error) {
	p := &models.Photo{
		ID:       uuid.New(),
		PinID:    pinID,
		ImageURL: imageURL,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO photos (id, pin_id, image_url) VALUES ($1, $2, $3) RETURNING created_at`,
		p.ID, p.PinID, p.ImageURL,
	).Scan(&p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create pending photo: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetPhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	p := &models.Photo{}
	var objectKey *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, pin_id, image_url, object_key, created_at FROM photos WHERE id = $1`, id,
	).Scan(&p.ID, &p.PinID, &p.ImageURL, &objectKey, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get photo: %w", err)
	}
	if objectKey != nil {
		p.ObjectKey = *objectKey
	}
	return p, nil
}

func (s *PostgresStore) FillPhotoData(ctx context.Context, photoID uuid.UUID, data []byte) error {
	var pinID uuid.UUID
	var objectKey *string
	err := s.pool.QueryRow(ctx,
		`SELECT pin_id, object_key FROM photos WHERE id = $1`, photoID,
	).Scan(&pinID, &objectKey)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("fill photo: %w", err)
	}
	if objectKey != nil {
		// Already filled; image bytes are written once.
		return nil
	}

	key := photoObjectKey(pinID, photoID)
	if err := s.objects.Put(ctx, key, data, "image/jpeg"); err != nil {
		return fmt.Errorf("fill photo: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE photos SET object_key = $1 WHERE id = $2 AND object_key IS NULL`,
		key, photoID)
	if err != nil {
		return fmt.Errorf("fill photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// The photo was deleted (or filled) while the bytes were uploading.
		if err := s.objects.Delete(ctx, key); err != nil {
			slog.Warn("delete orphaned object", "key", key, "error", err)
		}
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) PhotoData(ctx context.Context, photoID uuid.UUID) ([]byte, error) {
	var objectKey *string
	err := s.pool.QueryRow(ctx,
		`SELECT object_key FROM photos WHERE id = $1`, photoID,
	).Scan(&objectKey)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("photo data: %w", err)
	}
	if objectKey == nil {
		return nil, ErrNotFound
	}
	return s.objects.Get(ctx, *objectKey)
}

func (s *PostgresStore) PhotosForPin(ctx context.Context, pinID uuid.UUID) ([]models.Photo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, pin_id, image_url, object_key, created_at FROM photos WHERE pin_id = $1 ORDER BY id DESC`,
		pinID)
	if err != nil {
		return nil, fmt.Errorf("photos for pin: %w", err)
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		var p models.Photo
		var objectKey *string
		if err := rows.Scan(&p.ID, &p.PinID, &p.ImageURL, &objectKey, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		if objectKey != nil {
			p.ObjectKey = *objectKey
		}
		photos = append(photos, p)
	}
	return photos, nil
}

func (s *PostgresStore) DeletePhoto(ctx context.Context, photoID uuid.UUID) error {
	var objectKey *string
	err := s.pool.QueryRow(ctx,
		`DELETE FROM photos WHERE id = $1 RETURNING object_key`, photoID,
	).Scan(&objectKey)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("delete photo: %w", err)
	}

	if objectKey != nil {
		if err := s.objects.Delete(ctx, *objectKey); err != nil {
			slog.Warn("delete photo object", "key", *objectKey, "error", err)
		}
	}
	return nil
}

func (s *PostgresStore) DeleteAllPhotosForPin(ctx context.Context, pinID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx,
		`DELETE FROM photos WHERE pin_id = $1 RETURNING id, object_key`, pinID)
	if err != nil {
		return nil, fmt.Errorf("delete photos for pin: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	var keys []string
	for rows.Next() {
		var id uuid.UUID
		var objectKey *string
		if err := rows.Scan(&id, &objectKey); err != nil {
			return nil, fmt.Errorf("scan deleted photo: %w", err)
		}
		ids = append(ids, id)
		if objectKey != nil {
			keys = append(keys, *objectKey)
		}
	}

	if len(keys) > 0 {
		if err := s.objects.DeleteMany(ctx, keys); err != nil {
			slog.Warn("delete photo objects", "pin_id", pinID, "error", err)
		}
	}
	return ids, nil
}

func (s *PostgresStore) objectKeysForPin(ctx context.Context, pinID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT object_key FROM photos WHERE pin_id = $1 AND object_key IS NOT NULL`, pinID)
	if err != nil {
		return nil, fmt.Errorf("object keys for pin: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan object key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func photoObjectKey(pinID, photoID uuid.UUID) string {
	return fmt.Sprintf("photos/%s/%s.jpg", pinID.String(), photoID.String())
}
