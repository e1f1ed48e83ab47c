package directory

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tsfopeneyes/center-management-sub001/internal/db"
)

const locationNamesKey = "directory:location-names"
const locationNamesTTL = 5 * time.Minute

type Service struct {
	db    db.Querier
	redis *redis.Client
	log   zerolog.Logger
}

func NewService(querier db.Querier, redisClient *redis.Client) *Service {
	return &Service{
		db:    querier,
		redis: redisClient,
		log:   zerolog.New(os.Stderr).With().Timestamp().Str("component", "directory").Logger(),
	}
}

// LookupCode resolves a kiosk-entered PIN or scanned QR code to the active
// members it matches. Zero or multiple matches are the caller's problem:
// the kiosk prompts for disambiguation.
func (s *Service) LookupCode(ctx context.Context, code string) ([]Subject, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, full_name, pin, qr_code, is_active, created_at
		FROM subjects
		WHERE is_active AND (pin = $1 OR qr_code = $1)
		ORDER BY full_name
	`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []Subject
	for rows.Next() {
		var sub Subject
		if err := rows.Scan(&sub.ID, &sub.FullName, &sub.PIN, &sub.QRCode, &sub.Active, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subjects = append(subjects, sub)
	}
	return subjects, nil
}

func (s *Service) Locations(ctx context.Context) ([]Location, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name FROM locations ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.ID, &loc.Name); err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

// LocationNames returns the id → display name map, cached in redis for a
// few minutes since the registry changes rarely and reporting asks often.
func (s *Service) LocationNames(ctx context.Context) (map[string]string, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, locationNamesKey).Result(); err == nil {
			names := map[string]string{}
			if json.Unmarshal([]byte(cached), &names) == nil {
				return names, nil
			}
		}
	}

	locations, err := s.Locations(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(locations))
	for _, loc := range locations {
		names[loc.ID] = loc.Name
	}

	if s.redis != nil {
		if payload, err := json.Marshal(names); err == nil {
			if err := s.redis.Set(ctx, locationNamesKey, payload, locationNamesTTL).Err(); err != nil {
				s.log.Warn().Err(err).Msg("location name cache write failed")
			}
		}
	}
	return names, nil
}
