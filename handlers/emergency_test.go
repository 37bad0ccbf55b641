package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trafficguard/backend/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dryRunDB opens a gorm handle that builds SQL without touching a database
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.Open("host=localhost user=trafficguard dbname=trafficguard"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func listContext(t *testing.T, target string) *gin.Context {
	t.Helper()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c
}

func TestEmergencyTotalCountsFilteredQuery(t *testing.T) {
	db := dryRunDB(t)
	c := listContext(t, "/api/emergency?status=pending&severity=high&type=fire&lat=-1.95&lng=30.06&radius=5")

	query := emergencyFilters(c, db.Model(&models.Emergency{}))

	// The pagination total must see the same predicates as the listing
	var total int64
	tx := query.Count(&total)
	sql := tx.Statement.SQL.String()
	assert.Contains(t, sql, "count(*)")
	assert.Contains(t, sql, "status = ")
	assert.Contains(t, sql, "severity = ")
	assert.Contains(t, sql, "type = ")
	assert.Contains(t, sql, "6371 * acos")
}

func TestEmergencyFiltersIgnoreRadiusWithoutCoords(t *testing.T) {
	db := dryRunDB(t)
	c := listContext(t, "/api/emergency?radius=5")

	var total int64
	tx := emergencyFilters(c, db.Model(&models.Emergency{})).Count(&total)
	assert.NotContains(t, tx.Statement.SQL.String(), "6371 * acos")
}

func TestWithEmergencyDistanceAddsEnrichment(t *testing.T) {
	db := dryRunDB(t)
	c := listContext(t, "/api/emergency?lat=-1.95&lng=30.06")

	var emergencies []models.Emergency
	tx := withEmergencyDistance(c, db.Model(&models.Emergency{})).Find(&emergencies)
	assert.Contains(t, tx.Statement.SQL.String(), "AS distance_km")
}

func TestCallerCoords(t *testing.T) {
	lat, lng, ok := callerCoords(listContext(t, "/api/emergency?lat=-1.95&lng=30.06"))
	require.True(t, ok)
	assert.Equal(t, -1.95, lat)
	assert.Equal(t, 30.06, lng)

	_, _, ok = callerCoords(listContext(t, "/api/emergency?lat=-1.95"))
	assert.False(t, ok)

	_, _, ok = callerCoords(listContext(t, "/api/emergency?lat=abc&lng=30.06"))
	assert.False(t, ok)
}
