package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestPlanningDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, 60*time.Minute, cfg.Planning.CourseDuration)
	assert.Equal(t, 60*time.Minute, cfg.Planning.InterSiteTravel)
	assert.Equal(t, 5*time.Minute, cfg.Planning.SameSiteTravel)
	assert.Equal(t, 20, cfg.Planning.GroupSizeMin)
	assert.Equal(t, 40, cfg.Planning.GroupSizeMax)
	assert.Equal(t, 30*time.Minute, cfg.Planning.EditSafetyMargin)
	assert.Equal(t, 15*time.Minute, cfg.Planning.SafetyMargin)
	assert.Equal(t, 5*time.Minute, cfg.Planning.MaxExecutionTime)
	assert.Equal(t, "Europe/Brussels", cfg.Planning.DefaultTimezone)
	assert.True(t, cfg.Travel.RebuildAfterGeneration)
}

func TestPlanningOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("PLANNING_COURSE_DURATION", 90)
	v.Set("PLANNING_GROUP_SIZE_MIN", 10)
	v.Set("PLANNING_MAX_EXECUTION_TIME", "not-a-duration")
	v.Set("JWT_AUDIENCE", "planner, ,admin")

	cfg := fromViper(v)

	assert.Equal(t, 90*time.Minute, cfg.Planning.CourseDuration)
	assert.Equal(t, 10, cfg.Planning.GroupSizeMin)
	assert.Equal(t, 5*time.Minute, cfg.Planning.MaxExecutionTime)
	assert.Equal(t, []string{"planner", "admin"}, cfg.JWT.Audience)
}

func TestMinutesFallsBackOnNonPositive(t *testing.T) {
	assert.Equal(t, 60*time.Minute, minutes(0, 60))
	assert.Equal(t, 60*time.Minute, minutes(-5, 60))
	assert.Equal(t, 7*time.Minute, minutes(7, 60))
}
