package casdoor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// StudentDirectory resolves students and program membership from Casdoor.
// Program links are carried in user properties: "main_program_id" holds the
// primary program, "program_ids" a comma-separated list of every associated
// program (secondary enrollments included).
type StudentDirectory struct {
	client *casdoorsdk.Client
	redis  *redis.Client
	config CasdoorConfig

	// Cache settings
	cachePrefix string
	cacheTTL    time.Duration
}

func NewStudentDirectory(config CasdoorConfig, redisClient *redis.Client) repositories.StudentDirectory {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)

	return &StudentDirectory{
		client:      client,
		redis:       redisClient,
		config:      config,
		cachePrefix: "student:",
		cacheTTL:    15 * time.Minute,
	}
}

// ===== CACHE METHODS =====

func (d *StudentDirectory) getCacheKey(key string) string {
	return fmt.Sprintf("%s%s", d.cachePrefix, key)
}

func (d *StudentDirectory) getStudentFromCache(ctx context.Context, key string) (*models.Student, error) {
	if d.redis == nil {
		return nil, nil // Cache not available
	}

	data, err := d.redis.Get(ctx, d.getCacheKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Not found in cache
		}
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}

	var student models.Student
	if err := json.Unmarshal([]byte(data), &student); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached student: %w", err)
	}

	return &student, nil
}

func (d *StudentDirectory) setStudentCache(ctx context.Context, key string, student *models.Student) {
	if d.redis == nil {
		return
	}

	data, err := json.Marshal(student)
	if err != nil {
		return
	}

	d.redis.Set(ctx, d.getCacheKey(key), data, d.cacheTTL)
}

// ===== CONVERSION =====

func (d *StudentDirectory) convertCasdoorUser(casdoorUser *casdoorsdk.User) *models.Student {
	if casdoorUser == nil {
		return nil
	}

	var enrolledAt time.Time
	if casdoorUser.CreatedTime != "" {
		enrolledAt, _ = time.Parse(time.RFC3339, casdoorUser.CreatedTime)
	}

	student := &models.Student{
		ID:         casdoorUser.Id,
		FullName:   casdoorUser.DisplayName,
		Email:      casdoorUser.Email,
		EnrolledAt: enrolledAt,
	}

	if raw, ok := casdoorUser.Properties["main_program_id"]; ok {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			mainID := uint(id)
			student.MainProgramID = &mainID
		}
	}

	if raw, ok := casdoorUser.Properties["program_ids"]; ok {
		for _, part := range strings.Split(raw, ",") {
			if id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32); err == nil {
				student.ProgramIDs = append(student.ProgramIDs, uint(id))
			}
		}
	}
	// The main program counts as associated even when not listed explicitly.
	if student.MainProgramID != nil && !slices.Contains(student.ProgramIDs, *student.MainProgramID) {
		student.ProgramIDs = append(student.ProgramIDs, *student.MainProgramID)
	}

	return student
}

func (d *StudentDirectory) isStudent(casdoorUser *casdoorsdk.User) bool {
	if casdoorUser.IsAdmin {
		return false
	}
	for _, role := range casdoorUser.Roles {
		if strings.EqualFold(role.Name, "student") {
			return true
		}
	}
	// Users without explicit roles default to students in this org.
	return len(casdoorUser.Roles) == 0
}

// ===== READ OPERATIONS =====

// GetByID retrieves a student by ID
func (d *StudentDirectory) GetByID(ctx context.Context, id string) (*models.Student, error) {
	cacheKey := fmt.Sprintf("id:%s", id)
	if cached, err := d.getStudentFromCache(ctx, cacheKey); err == nil && cached != nil {
		return cached, nil
	}

	casdoorUser, err := d.client.GetUserByUserId(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
	}
	if casdoorUser == nil {
		return nil, fmt.Errorf("student not found with ID %s", id)
	}

	student := d.convertCasdoorUser(casdoorUser)
	d.setStudentCache(ctx, cacheKey, student)

	return student, nil
}

// ExistsByID checks whether a student exists
func (d *StudentDirectory) ExistsByID(ctx context.Context, id string) (bool, error) {
	cacheKey := d.getCacheKey(fmt.Sprintf("exists:%s", id))
	if d.redis != nil {
		if exists, err := d.redis.Get(ctx, cacheKey).Result(); err == nil {
			return exists == "true", nil
		}
	}

	casdoorUser, err := d.client.GetUserByUserId(id)
	if err != nil {
		return false, fmt.Errorf("failed to check student existence: %w", err)
	}

	exists := casdoorUser != nil
	if d.redis != nil {
		d.redis.Set(ctx, cacheKey, strconv.FormatBool(exists), 1*time.Minute)
	}

	return exists, nil
}

// ResolveProgramMembers lists student ids targeted by a program-scoped
// distribution. The full organization user list is scanned; the result is
// cached per (program, mode).
func (d *StudentDirectory) ResolveProgramMembers(ctx context.Context, programID uint, mode models.DistributionMode) ([]string, error) {
	cacheKey := d.getCacheKey(fmt.Sprintf("program:%d:%s", programID, mode))
	if d.redis != nil {
		if data, err := d.redis.Get(ctx, cacheKey).Result(); err == nil {
			var ids []string
			if err := json.Unmarshal([]byte(data), &ids); err == nil {
				return ids, nil
			}
		}
	}

	casdoorUsers, err := d.client.GetUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to list users from Casdoor: %w", err)
	}

	var ids []string
	for _, casdoorUser := range casdoorUsers {
		if !d.isStudent(casdoorUser) {
			continue
		}
		student := d.convertCasdoorUser(casdoorUser)

		switch mode {
		case models.ModeMainProgram:
			if student.MainProgramID != nil && *student.MainProgramID == programID {
				ids = append(ids, student.ID)
			}
		case models.ModeAnyAssociatedProgram:
			if slices.Contains(student.ProgramIDs, programID) {
				ids = append(ids, student.ID)
			}
		}
	}

	if d.redis != nil {
		if data, err := json.Marshal(ids); err == nil {
			d.redis.Set(ctx, cacheKey, data, 5*time.Minute)
		}
	}

	return ids, nil
}
