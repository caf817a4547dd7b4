package settings

import (
	"fmt"
	"strconv"

	"github.com/aristath/argus/internal/domain"
	"github.com/rs/zerolog"
)

// Service layers typed access over the key-value repository: reads merge
// stored values into the defaults table, writes are gated to known keys
// and stored as strings.
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a new settings service.
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "settings").Logger(),
	}
}

// GetAll retrieves every known setting, with stored overrides applied on
// top of the defaults. Stored values that fail to parse fall back to the
// default rather than erroring.
func (s *Service) GetAll() (map[string]interface{}, error) {
	stored, err := s.repo.GetAll()
	if err != nil {
		return nil, err
	}

	result := make(map[string]interface{}, len(SettingDefaults))
	for key, defaultValue := range SettingDefaults {
		dbValue, exists := stored[key]
		if !exists {
			result[key] = defaultValue
			continue
		}
		if StringSettings[key] {
			result[key] = dbValue
			continue
		}
		if floatVal, err := strconv.ParseFloat(dbValue, 64); err == nil {
			result[key] = floatVal
		} else {
			result[key] = defaultValue
		}
	}

	return result, nil
}

// Get retrieves one setting with fallback to its default. Unknown keys are
// input errors.
func (s *Service) Get(key string) (interface{}, error) {
	defaultValue, known := SettingDefaults[key]
	if !known {
		return nil, &domain.InputError{Field: key, Reason: "unknown setting"}
	}

	dbValue, err := s.repo.Get(key)
	if err != nil {
		return nil, err
	}
	if dbValue == nil {
		return defaultValue, nil
	}
	if StringSettings[key] {
		return *dbValue, nil
	}
	if floatVal, err := strconv.ParseFloat(*dbValue, 64); err == nil {
		return floatVal, nil
	}
	return defaultValue, nil
}

// Set validates and stores one setting. Floats are stored in their
// shortest form so a stored "1" satisfies the boolean getter as well as
// the numeric ones.
func (s *Service) Set(key string, value interface{}) error {
	if _, known := SettingDefaults[key]; !known {
		return &domain.InputError{Field: key, Reason: "unknown setting"}
	}

	switch key {
	case "web_search_api":
		mode, ok := value.(string)
		if !ok || (mode != "research" && mode != "general") {
			return &domain.InputError{Field: key, Reason: `must be "research" or "general"`}
		}
	case "r2_backup_schedule":
		cadence, ok := value.(string)
		if !ok || (cadence != "daily" && cadence != "weekly" && cadence != "monthly") {
			return &domain.InputError{Field: key, Reason: `must be "daily", "weekly" or "monthly"`}
		}
	case "ingestion_interval_minutes":
		minutes, ok := value.(float64)
		if !ok || minutes < 1 {
			return &domain.InputError{Field: key, Reason: "must be a number >= 1"}
		}
	case "r2_backup_retention_days":
		days, ok := value.(float64)
		if !ok || days < 0 {
			return &domain.InputError{Field: key, Reason: "must be a number >= 0"}
		}
	}

	var strValue string
	switch v := value.(type) {
	case string:
		strValue = v
	case float64:
		strValue = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		strValue = strconv.Itoa(v)
	case bool:
		// Toggles follow the 1.0/0.0 convention of the defaults table.
		if v {
			strValue = "1"
		} else {
			strValue = "0"
		}
	default:
		return &domain.InputError{Field: key, Reason: fmt.Sprintf("unsupported value type %T", value)}
	}

	var description *string
	if d, ok := SettingDescriptions[key]; ok {
		description = &d
	}

	return s.repo.Set(key, strValue, description)
}

// Reset deletes the stored override so the key falls back to its default,
// and returns the default now in effect. Unknown keys are input errors.
func (s *Service) Reset(key string) (interface{}, error) {
	defaultValue, known := SettingDefaults[key]
	if !known {
		return nil, &domain.InputError{Field: key, Reason: "unknown setting"}
	}
	if err := s.repo.Delete(key); err != nil {
		return nil, err
	}
	return defaultValue, nil
}
