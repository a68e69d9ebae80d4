package settings

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "linkmark:settings:"

const (
	fieldSearchURL     = "searchUrl"
	fieldSearchText    = "searchText"
	fieldPartialSearch = "partialSearch"
	fieldSpecialCases  = "specialCases"
	fieldBgColor       = "bgColor"
	fieldFontSize      = "fontSize"
	fieldCleanerInput  = "cleanerInput"
	fieldActiveTab     = "activeTab"
)

// RedisStore keeps one profile's settings in a hash. Fields missing from the
// hash read back as their defaults.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, profile string) *RedisStore {
	return &RedisStore{client: client, key: keyPrefix + profile}
}

func (r *RedisStore) Load(ctx context.Context) (Settings, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return Settings{}, fmt.Errorf("loading settings %s: %w", r.key, err)
	}

	s := Defaults()
	if v, ok := fields[fieldSearchURL]; ok {
		s.SearchURL = v
	}
	if v, ok := fields[fieldSearchText]; ok {
		s.SearchText = parseBool(v)
	}
	if v, ok := fields[fieldPartialSearch]; ok {
		s.PartialSearch = parseBool(v)
	}
	if v, ok := fields[fieldSpecialCases]; ok {
		s.SpecialCases = parseBool(v)
	}
	if v, ok := fields[fieldBgColor]; ok && v != "" {
		s.BgColor = v
	}
	if v, ok := fields[fieldFontSize]; ok && v != "" {
		s.FontSize = v
	}
	if v, ok := fields[fieldCleanerInput]; ok {
		s.CleanerInput = v
	}
	if v, ok := fields[fieldActiveTab]; ok && v != "" {
		s.ActiveTab = v
	}
	return s, nil
}

func (r *RedisStore) Save(ctx context.Context, s Settings) error {
	err := r.client.HSet(ctx, r.key,
		fieldSearchURL, s.SearchURL,
		fieldSearchText, strconv.FormatBool(s.SearchText),
		fieldPartialSearch, strconv.FormatBool(s.PartialSearch),
		fieldSpecialCases, strconv.FormatBool(s.SpecialCases),
		fieldBgColor, s.BgColor,
		fieldFontSize, s.FontSize,
		fieldCleanerInput, s.CleanerInput,
		fieldActiveTab, s.ActiveTab,
	).Err()
	if err != nil {
		return fmt.Errorf("saving settings %s: %w", r.key, err)
	}
	return nil
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
