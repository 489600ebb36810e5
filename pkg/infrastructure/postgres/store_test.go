package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithSourceFilterAppendsClause(t *testing.T) {
	query := `SELECT user_id FROM activity_detail_samples WHERE activity_id=$1`
	args := []interface{}{"act-1"}

	got, gotArgs := withSourceFilter(query, args, "garmin")
	assert.Equal(t, query+" AND activity_source=$2", got)
	assert.Equal(t, []interface{}{"act-1", "garmin"}, gotArgs)
}

func TestWithSourceFilterEmptySourceMatchesAny(t *testing.T) {
	query := `SELECT user_id FROM activity_detail_samples WHERE activity_id=$1`
	args := []interface{}{"act-1"}

	got, gotArgs := withSourceFilter(query, args, "")
	assert.Equal(t, query, got)
	assert.Equal(t, []interface{}{"act-1"}, gotArgs)
}

func TestWithSourceFilterNumbersAfterExistingArgs(t *testing.T) {
	query := `SELECT 1 FROM activities WHERE user_id=$1 AND activity_id=$2`
	args := []interface{}{"user-1", "act-1"}

	got, gotArgs := withSourceFilter(query, args, "strava")
	assert.Equal(t, query+" AND activity_source=$3", got)
	assert.Len(t, gotArgs, 3)
}
